package captcha

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
)

// Style names the two typefaces the challenge renders digits in.
type Style string

const (
	StyleRegular Style = "b"
	StyleItalic  Style = "i"
)

// ErrNoTemplates is returned when a template directory holds no usable glyphs.
var ErrNoTemplates = errors.New("no glyph templates loaded")

// Glyph is one reference bitmap for a digit in one style.
type Glyph struct {
	Digit byte
	Style Style
	Image *image.Gray
}

// Library is the fixed set of reference glyphs. It is immutable after
// construction and safe for concurrent use.
type Library struct {
	glyphs []Glyph
}

// NewLibrary builds a library from already decoded glyphs.
func NewLibrary(glyphs []Glyph) (*Library, error) {
	if len(glyphs) == 0 {
		return nil, ErrNoTemplates
	}
	for _, g := range glyphs {
		if g.Digit < '0' || g.Digit > '9' {
			return nil, fmt.Errorf("glyph digit %q out of range", g.Digit)
		}
		if g.Image == nil || g.Image.Bounds().Empty() {
			return nil, fmt.Errorf("glyph %c%s has no image", g.Digit, g.Style)
		}
	}
	return &Library{glyphs: glyphs}, nil
}

// LoadDir reads "<digit><style>.png" files (for example "7i.png") from dir.
// Missing files are reported back so the caller can log them; the library is
// usable as long as at least one glyph loaded.
func LoadDir(dir string) (*Library, []string, error) {
	var (
		glyphs  []Glyph
		missing []string
	)
	for d := byte('0'); d <= '9'; d++ {
		for _, style := range []Style{StyleRegular, StyleItalic} {
			name := fmt.Sprintf("%c%s.png", d, style)
			img, err := readGray(filepath.Join(dir, name))
			if errors.Is(err, os.ErrNotExist) {
				missing = append(missing, name)
				continue
			}
			if err != nil {
				return nil, missing, fmt.Errorf("load glyph %s: %w", name, err)
			}
			glyphs = append(glyphs, Glyph{Digit: d, Style: style, Image: img})
		}
	}
	lib, err := NewLibrary(glyphs)
	if err != nil {
		return nil, missing, fmt.Errorf("load glyphs from %s: %w", dir, err)
	}
	return lib, missing, nil
}

// Len reports the number of loaded glyphs.
func (l *Library) Len() int {
	return len(l.glyphs)
}

func readGray(path string) (*image.Gray, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, err := png.Decode(f)
	if err != nil {
		return nil, err
	}
	return toGray(img), nil
}

func toGray(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok {
		return g
	}
	b := img.Bounds()
	out := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			out.Set(x, y, color.GrayModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)))
		}
	}
	return out
}
