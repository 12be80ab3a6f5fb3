// Package captcha decodes the numeric image challenge served by the
// confirmation registry by correlating it against a fixed glyph library.
package captcha

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/png"
	"sort"
	"strings"
)

const (
	DefaultThreshold = 0.99
	DefaultCropTop   = 5
)

// ErrNoMatch is returned when no glyph reached the threshold anywhere.
var ErrNoMatch = errors.New("captcha: no glyph matched")

// Solver is safe for concurrent use.
type Solver struct {
	library   *Library
	threshold float64
	cropTop   int
}

type Option func(*Solver)

// WithThreshold overrides the minimum correlation score for a glyph hit.
func WithThreshold(t float64) Option {
	return func(s *Solver) {
		if t > 0 && t <= 1 {
			s.threshold = t
		}
	}
}

// WithCropTop overrides how many rows are cut from the top of the image.
func WithCropTop(rows int) Option {
	return func(s *Solver) {
		if rows >= 0 {
			s.cropTop = rows
		}
	}
}

func NewSolver(library *Library, opts ...Option) (*Solver, error) {
	if library == nil {
		return nil, errors.New("glyph library is required")
	}
	s := &Solver{
		library:   library,
		threshold: DefaultThreshold,
		cropTop:   DefaultCropTop,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// SolveBase64 decodes a base64 PNG payload, with or without its data URI
// prefix, and solves it.
func (s *Solver) SolveBase64(payload string) (string, error) {
	payload = strings.TrimPrefix(strings.TrimSpace(payload), "data:image/png;base64,")
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", fmt.Errorf("decode captcha payload: %w", err)
	}
	img, err := png.Decode(bytes.NewReader(raw))
	if err != nil {
		return "", fmt.Errorf("decode captcha png: %w", err)
	}
	return s.Solve(img)
}

// Solve returns the digits found in img ordered by x position. Positions
// where no glyph reached the threshold are skipped, so the result may be
// shorter than the real code. Two glyphs hitting the same x leave whichever
// digit was tried last.
func (s *Solver) Solve(img image.Image) (string, error) {
	gray := binarize(img, s.cropTop)

	byX := make(map[int]byte)
	for _, g := range s.library.glyphs {
		for _, x := range matchPositions(gray, g.Image, s.threshold) {
			byX[x] = g.Digit
		}
	}
	if len(byX) == 0 {
		return "", ErrNoMatch
	}

	xs := make([]int, 0, len(byX))
	for x := range byX {
		xs = append(xs, x)
	}
	sort.Ints(xs)

	var b strings.Builder
	for _, x := range xs {
		b.WriteByte(byX[x])
	}
	return b.String(), nil
}
