package search

import (
	"iinfinder/internal/iin"
	"iinfinder/internal/registry"
)

// selection is the name-filtered subset of a screening batch that goes to
// the confirmation registry, in generation order.
type selection struct {
	matched []iin.ID
	window  []iin.ID
}

func (s selection) candidates() []iin.ID {
	out := make([]iin.ID, 0, len(s.matched)+len(s.window))
	out = append(out, s.matched...)
	return append(out, s.window...)
}

// selectCandidates partitions records into screening-name matches and the
// empty-name window.
func selectCandidates(records []registry.ScreeningRecord, foldedName string, windowSize int) selection {
	var sel selection
	for _, r := range records {
		if r.HasName() && iin.MatchesRegistered(*r.RegisteredName, foldedName) {
			sel.matched = append(sel.matched, r.ID)
		}
	}
	for _, i := range windowIndices(records, windowSize) {
		sel.window = append(sel.window, records[i].ID)
	}
	return sel
}

// windowIndices returns the indices of nameless records at most windowSize
// positions past the last named record. With no named record at all the
// window is the first windowSize records. Identifiers are issued in sequence
// order, so unregistered but issued ids cluster right after the newest
// registered one.
func windowIndices(records []registry.ScreeningRecord, windowSize int) []int {
	if windowSize <= 0 || len(records) == 0 {
		return nil
	}
	last := -1
	for i, r := range records {
		if r.HasName() {
			last = i
		}
	}
	start, end := last+1, last+1+windowSize
	if end > len(records) {
		end = len(records)
	}
	out := make([]int, 0, end-start)
	for i := start; i < end; i++ {
		if !records[i].HasName() {
			out = append(out, i)
		}
	}
	return out
}

// matchConfirmed keeps the confirmed records whose legal name matches.
func matchConfirmed(results []registry.ConfirmationResult, foldedName string) []registry.ConfirmationRecord {
	var found []registry.ConfirmationRecord
	for _, r := range results {
		if r.Outcome == registry.OutcomeFound && r.Record.Name().Matches(foldedName) {
			found = append(found, r.Record)
		}
	}
	return found
}

// leftoverFrom returns the window candidates the registry answered for
// definitively without a name match. Transient failures are not queued:
// they say nothing about the candidate.
func leftoverFrom(window []iin.ID, results map[iin.ID]registry.ConfirmationResult, foldedName string) []iin.ID {
	var leftover []iin.ID
	for _, id := range window {
		r, ok := results[id]
		if !ok || r.Outcome == registry.OutcomeTransient {
			continue
		}
		if r.Outcome == registry.OutcomeFound && r.Record.Name().Matches(foldedName) {
			continue
		}
		leftover = append(leftover, id)
	}
	return leftover
}
