package tensor

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"

	"github.com/disintegration/imaging"
)

// FallbackMaskSize is the side of the constant mask returned when the source
// image has no alpha channel. It does not follow the image dimensions.
const FallbackMaskSize = 64

// Decode reads encoded image bytes and applies any EXIF orientation tag.
func Decode(data []byte) (image.Image, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return img, nil
}

// HasTransparency reports whether img has at least one non-opaque pixel. A
// fully opaque image with an alpha channel reports false. Images that cannot
// report opacity are scanned.
func HasTransparency(img image.Image) bool {
	if o, ok := img.(interface{ Opaque() bool }); ok {
		return !o.Opaque()
	}
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if _, _, _, a := img.At(x, y).RGBA(); a != 0xffff {
				return true
			}
		}
	}
	return false
}

// FromImage converts img to three channels and scales each 8-bit value into
// [0,1]. The result has shape [1, H, W, 3].
// Alpha is dropped; the non-premultiplied colour values are kept.
func FromImage(img image.Image) Tensor {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	t := Zeros(h, w, 3)
	i := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			t.Data[i] = float32(c.R) / 255.0
			t.Data[i+1] = float32(c.G) / 255.0
			t.Data[i+2] = float32(c.B) / 255.0
			i += 3
		}
	}
	return t.Unsqueeze()
}

// InvertedAlpha extracts the alpha channel, scales it into [0,1] and returns
// 1 - alpha with shape [H, W].
func InvertedAlpha(img image.Image) Tensor {
	b := img.Bounds()
	t := Zeros(b.Dy(), b.Dx())
	i := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			a := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA).A
			t.Data[i] = 1 - float32(a)/255.0
			i++
		}
	}
	return t
}

// FallbackMask is the all-zero mask used for images without alpha.
func FallbackMask() Tensor {
	return Zeros(FallbackMaskSize, FallbackMaskSize)
}

// Image turns an image tensor ([1,H,W,3] or [H,W,3]) or a mask tensor ([H,W])
// back into an 8-bit image, mostly for previews.
func (t Tensor) Image() (image.Image, error) {
	shape := t.Shape
	if len(shape) == 4 {
		if shape[0] != 1 {
			return nil, fmt.Errorf("tensor: batch of %d images, want 1", shape[0])
		}
		shape = shape[1:]
	}
	switch {
	case len(shape) == 3 && shape[2] == 3:
		h, w := shape[0], shape[1]
		out := image.NewNRGBA(image.Rect(0, 0, w, h))
		for p := 0; p < w*h; p++ {
			out.Pix[p*4] = to8(t.Data[p*3])
			out.Pix[p*4+1] = to8(t.Data[p*3+1])
			out.Pix[p*4+2] = to8(t.Data[p*3+2])
			out.Pix[p*4+3] = 0xff
		}
		return out, nil
	case len(shape) == 2:
		h, w := shape[0], shape[1]
		out := image.NewGray(image.Rect(0, 0, w, h))
		for p := 0; p < w*h; p++ {
			out.Pix[p] = to8(t.Data[p])
		}
		return out, nil
	default:
		return nil, fmt.Errorf("tensor: cannot render shape %v as an image", t.Shape)
	}
}

// EncodePNG renders t with Image and encodes the result as PNG.
func EncodePNG(t Tensor) ([]byte, error) {
	img, err := t.Image()
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("tensor: encoding png: %w", err)
	}
	return buf.Bytes(), nil
}

func to8(v float32) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(v*255 + 0.5)
}
