package iin

import (
	"fmt"
	"time"
)

// Generate returns every valid identifier for a birth date and series, in
// sequence order. Bases are YYMMDD + "0" + series + a zero-padded sequence
// number in 1..count; bases without a legal checksum are skipped.
func Generate(birthDate time.Time, series Series, count int) []ID {
	if count <= 0 || !series.Valid() {
		return nil
	}
	if count > 999 {
		count = 999
	}
	prefix := DatePrefix(birthDate) + "0" + fmt.Sprint(int(series))
	ids := make([]ID, 0, count)
	for seq := 1; seq <= count; seq++ {
		base := fmt.Sprintf("%s%03d", prefix, seq)
		digit, ok := Checksum(base)
		if !ok {
			continue
		}
		ids = append(ids, ID(base+string(rune('0'+digit))))
	}
	return ids
}
