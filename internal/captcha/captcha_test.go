package captcha

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// Inner 3x7 shapes; '#' is ink. Every glyph gets a solid ink column on both
// sides so no window other than an exact one reaches the threshold.
var digitShapes = map[byte][7]string{
	'0': {"###", "#.#", "#.#", "#.#", "#.#", "#.#", "###"},
	'1': {".#.", "##.", ".#.", ".#.", ".#.", ".#.", "###"},
	'2': {"###", "..#", "..#", "###", "#..", "#..", "###"},
	'3': {"###", "..#", "..#", "###", "..#", "..#", "###"},
	'4': {"#.#", "#.#", "#.#", "###", "..#", "..#", "..#"},
	'5': {"###", "#..", "#..", "###", "..#", "..#", "###"},
	'6': {"###", "#..", "#..", "###", "#.#", "#.#", "###"},
	'7': {"###", "..#", "..#", ".#.", ".#.", ".#.", ".#."},
	'8': {"###", "#.#", "#.#", "###", "#.#", "#.#", "###"},
	'9': {"###", "#.#", "#.#", "###", "..#", "..#", "###"},
}

var italicSeven = [7]string{"###", "..#", "..#", ".#.", ".#.", "#..", "#.."}

const (
	glyphW = 5
	glyphH = 7
	gap    = 2
)

func shapeRows(inner [7]string) []string {
	rows := make([]string, glyphH)
	for i, r := range inner {
		rows[i] = "#" + r + "#"
	}
	return rows
}

func glyphImage(inner [7]string) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, glyphW, glyphH))
	for y, row := range shapeRows(inner) {
		for x := 0; x < glyphW; x++ {
			v := uint8(255)
			if row[x] == '#' {
				v = 0
			}
			img.SetGray(x, y, color.Gray{Y: v})
		}
	}
	return img
}

func regularLibrary(t *testing.T, skip ...byte) *Library {
	t.Helper()
	var glyphs []Glyph
	for d := byte('0'); d <= '9'; d++ {
		if bytes.IndexByte(skip, d) >= 0 {
			continue
		}
		glyphs = append(glyphs, Glyph{Digit: d, Style: StyleRegular, Image: glyphImage(digitShapes[d])})
	}
	lib, err := NewLibrary(glyphs)
	require.NoError(t, err)
	return lib
}

// renderChallenge draws shapes left to right under a noisy band of
// DefaultCropTop rows. Background pixels are transparent.
func renderChallenge(shapes ...[7]string) *image.NRGBA {
	width := gap + len(shapes)*(glyphW+gap)
	img := image.NewNRGBA(image.Rect(0, 0, width, DefaultCropTop+glyphH))
	for y := 0; y < DefaultCropTop; y++ {
		for x := 0; x < width; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x * 37), G: uint8(y * 91), B: 255, A: 255})
		}
	}
	for i, inner := range shapes {
		left := gap + i*(glyphW+gap)
		for y, row := range shapeRows(inner) {
			for x := 0; x < glyphW; x++ {
				c := color.NRGBA{R: 255, G: 255, B: 255, A: 255}
				if row[x] == '#' {
					c = color.NRGBA{A: 255}
				}
				img.SetNRGBA(left+x, DefaultCropTop+y, c)
			}
		}
	}
	return img
}

func shapesFor(code string) [][7]string {
	out := make([][7]string, 0, len(code))
	for i := 0; i < len(code); i++ {
		out = append(out, digitShapes[code[i]])
	}
	return out
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

type SolverSuite struct {
	suite.Suite
	solver *Solver
}

func TestSolverSuite(t *testing.T) {
	suite.Run(t, new(SolverSuite))
}

func (s *SolverSuite) SetupTest() {
	solver, err := NewSolver(regularLibrary(s.T()))
	s.Require().NoError(err)
	s.solver = solver
}

// =============================================================================
// Solve
// =============================================================================

func (s *SolverSuite) TestSolve() {
	s.Run("reads every digit left to right", func() {
		for _, code := range []string{"4071", "123456", "9988", "5263"} {
			got, err := s.solver.Solve(renderChallenge(shapesFor(code)...))
			s.Require().NoError(err)
			s.Equal(code, got)
		}
	})

	s.Run("unknown glyph shortens the code", func() {
		solver, err := NewSolver(regularLibrary(s.T(), '3'))
		s.Require().NoError(err)

		got, err := solver.Solve(renderChallenge(shapesFor("4031")...))
		s.Require().NoError(err)
		s.Equal("401", got)
	})

	s.Run("italic variants count for the same digit", func() {
		glyphs := append([]Glyph{}, s.solver.library.glyphs...)
		glyphs = append(glyphs, Glyph{Digit: '7', Style: StyleItalic, Image: glyphImage(italicSeven)})
		lib, err := NewLibrary(glyphs)
		s.Require().NoError(err)
		solver, err := NewSolver(lib)
		s.Require().NoError(err)

		img := renderChallenge(digitShapes['1'], italicSeven, digitShapes['7'])
		got, err := solver.Solve(img)
		s.Require().NoError(err)
		s.Equal("177", got)
	})

	s.Run("blank image reports no match", func() {
		_, err := s.solver.Solve(renderChallenge())
		s.ErrorIs(err, ErrNoMatch)
	})

	s.Run("near white ink is not treated as background", func() {
		img := renderChallenge(shapesFor("80")...)
		// one background pixel inside the 8 turns grey and snaps to ink
		img.SetNRGBA(gap+2, DefaultCropTop+1, color.NRGBA{R: 254, G: 254, B: 254, A: 255})
		got, err := s.solver.Solve(img)
		s.Require().NoError(err)
		s.Equal("0", got)
	})
}

// =============================================================================
// SolveBase64
// =============================================================================

func (s *SolverSuite) TestSolveBase64() {
	raw := encodePNG(s.T(), renderChallenge(shapesFor("2580")...))

	s.Run("plain payload", func() {
		got, err := s.solver.SolveBase64(base64.StdEncoding.EncodeToString(raw))
		s.Require().NoError(err)
		s.Equal("2580", got)
	})

	s.Run("data uri payload", func() {
		got, err := s.solver.SolveBase64("data:image/png;base64," + base64.StdEncoding.EncodeToString(raw))
		s.Require().NoError(err)
		s.Equal("2580", got)
	})

	s.Run("invalid base64", func() {
		_, err := s.solver.SolveBase64("%%%")
		s.Error(err)
	})

	s.Run("not a png", func() {
		_, err := s.solver.SolveBase64(base64.StdEncoding.EncodeToString([]byte("GIF89a")))
		s.Error(err)
	})
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	for _, d := range []byte("0123456789") {
		name := filepath.Join(dir, string(d)+"b.png")
		require.NoError(t, os.WriteFile(name, encodePNG(t, glyphImage(digitShapes[d])), 0o600))
	}

	lib, missing, err := LoadDir(dir)
	require.NoError(t, err)
	assert.Equal(t, 10, lib.Len())
	assert.Len(t, missing, 10)
	assert.Contains(t, missing, "7i.png")

	solver, err := NewSolver(lib)
	require.NoError(t, err)
	got, err := solver.Solve(renderChallenge(shapesFor("3141")...))
	require.NoError(t, err)
	assert.Equal(t, "3141", got)
}

func TestLoadDirEmpty(t *testing.T) {
	_, missing, err := LoadDir(t.TempDir())
	assert.ErrorIs(t, err, ErrNoTemplates)
	assert.Len(t, missing, 20)
}

func TestNewSolverRequiresLibrary(t *testing.T) {
	_, err := NewSolver(nil)
	assert.Error(t, err)
}
