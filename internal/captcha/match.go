package captcha

import (
	"image"
	"image/color"
	"math"
)

// binarize crops the first cropTop rows, snaps every channel to 0 or 255 and
// paints any pixel that was not fully opaque white before reducing to gray.
func binarize(img image.Image, cropTop int) *image.Gray {
	b := img.Bounds()
	height := b.Dy() - cropTop
	if height <= 0 {
		return image.NewGray(image.Rectangle{})
	}
	out := image.NewGray(image.Rect(0, 0, b.Dx(), height))
	for y := 0; y < height; y++ {
		for x := 0; x < b.Dx(); x++ {
			c := color.NRGBAModel.Convert(img.At(b.Min.X+x, b.Min.Y+cropTop+y)).(color.NRGBA)
			c = color.NRGBA{R: snap(c.R), G: snap(c.G), B: snap(c.B), A: snap(c.A)}
			if c.A < 255 {
				c = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
			}
			out.SetGray(x, y, color.GrayModel.Convert(c).(color.Gray))
		}
	}
	return out
}

func snap(v uint8) uint8 {
	if v > 254 {
		return 255
	}
	return 0
}

// matchPositions slides tmpl over img and returns every x offset where the
// normalized cross-correlation reaches threshold.
func matchPositions(img, tmpl *image.Gray, threshold float64) []int {
	iw, ih := img.Bounds().Dx(), img.Bounds().Dy()
	tw, th := tmpl.Bounds().Dx(), tmpl.Bounds().Dy()
	if tw > iw || th > ih {
		return nil
	}

	var tNorm float64
	for y := 0; y < th; y++ {
		for x := 0; x < tw; x++ {
			v := float64(tmpl.GrayAt(x, y).Y)
			tNorm += v * v
		}
	}
	if tNorm == 0 {
		return nil
	}

	var xs []int
	for oy := 0; oy <= ih-th; oy++ {
		for ox := 0; ox <= iw-tw; ox++ {
			var cross, iNorm float64
			for y := 0; y < th; y++ {
				for x := 0; x < tw; x++ {
					t := float64(tmpl.GrayAt(x, y).Y)
					v := float64(img.GrayAt(ox+x, oy+y).Y)
					cross += t * v
					iNorm += v * v
				}
			}
			if iNorm == 0 {
				continue
			}
			if cross/math.Sqrt(tNorm*iNorm) >= threshold {
				xs = append(xs, ox)
			}
		}
	}
	return xs
}
