package ocr

import (
	"image"

	xdraw "golang.org/x/image/draw"
)

// prepare cleans a rendered page for recognition: grayscale, contrast
// stretch, adaptive binarization, a morphological close then open to
// heal broken strokes and drop speckle, then a 2x upscale so small
// dimension text survives.
func prepare(src image.Image) image.Image {
	gray := toGray(src)
	stretchContrast(gray)
	binarize(gray)
	closeOpen(gray)
	return upscale(gray, 2)
}

func toGray(src image.Image) *image.Gray {
	b := src.Bounds()
	gray := image.NewGray(b)
	xdraw.Draw(gray, b, src, b.Min, xdraw.Src)
	return gray
}

// stretchContrast remaps pixel values so the darkest becomes 0 and the
// lightest 255. Faded scans gain separation between ink and paper.
func stretchContrast(img *image.Gray) {
	lo, hi := uint8(255), uint8(0)
	for _, p := range img.Pix {
		if p < lo {
			lo = p
		}
		if p > hi {
			hi = p
		}
	}
	if hi <= lo {
		return
	}
	span := int(hi) - int(lo)
	for i, p := range img.Pix {
		img.Pix[i] = uint8((int(p) - int(lo)) * 255 / span)
	}
}

// Adaptive threshold window and offset. 31 pixels spans a few text
// strokes at render DPI; the offset keeps mid-gray hatch fill on the
// background side of the cutoff.
const (
	adaptiveWindow = 31
	adaptiveOffset = 12
)

// binarize thresholds each pixel against the mean of its surrounding
// window, minus a fixed offset. A local threshold keeps text legible
// on unevenly lit scans where one global cutoff blanks out whole
// regions. Window means come from a summed-area table so the pass
// stays linear in the pixel count.
func binarize(img *image.Gray) {
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	if w == 0 || h == 0 {
		return
	}

	integral := make([]uint64, (w+1)*(h+1))
	for y := 0; y < h; y++ {
		var rowSum uint64
		for x := 0; x < w; x++ {
			rowSum += uint64(img.Pix[y*img.Stride+x])
			integral[(y+1)*(w+1)+x+1] = integral[y*(w+1)+x+1] + rowSum
		}
	}

	r := adaptiveWindow / 2
	for y := 0; y < h; y++ {
		y0, y1 := max(0, y-r), min(h, y+r+1)
		for x := 0; x < w; x++ {
			x0, x1 := max(0, x-r), min(w, x+r+1)
			sum := integral[y1*(w+1)+x1] - integral[y0*(w+1)+x1] -
				integral[y1*(w+1)+x0] + integral[y0*(w+1)+x0]
			mean := int(sum) / ((y1 - y0) * (x1 - x0))
			if int(img.Pix[y*img.Stride+x]) > mean-adaptiveOffset {
				img.Pix[y*img.Stride+x] = 255
			} else {
				img.Pix[y*img.Stride+x] = 0
			}
		}
	}
}

// closeOpen runs a 3x3 morphological close then open on the binary
// image. Ink is black, so dilation of ink is a min filter and erosion
// a max filter. Close heals hairline gaps in strokes, open removes
// isolated speckle left by hatch remnants.
func closeOpen(img *image.Gray) {
	minFilter3(img)
	maxFilter3(img)
	maxFilter3(img)
	minFilter3(img)
}

func minFilter3(img *image.Gray) {
	neighborhood3(img, func(best, p uint8) bool { return p < best })
}

func maxFilter3(img *image.Gray) {
	neighborhood3(img, func(best, p uint8) bool { return p > best })
}

func neighborhood3(img *image.Gray, better func(best, p uint8) bool) {
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	src := make([]uint8, len(img.Pix))
	copy(src, img.Pix)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			best := src[y*img.Stride+x]
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					nx, ny := x+dx, y+dy
					if nx < 0 || ny < 0 || nx >= w || ny >= h {
						continue
					}
					if p := src[ny*img.Stride+nx]; better(best, p) {
						best = p
					}
				}
			}
			img.Pix[y*img.Stride+x] = best
		}
	}
}

func upscale(img *image.Gray, factor int) *image.Gray {
	b := img.Bounds()
	dst := image.NewGray(image.Rect(0, 0, b.Dx()*factor, b.Dy()*factor))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, b, xdraw.Src, nil)
	return dst
}
