package qr

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"

	skip2 "github.com/skip2/go-qrcode"
)

type skip2Renderer struct{}

// Render asks skip2/go-qrcode for the bare module bitmap and paints it with
// the geometry's box size and border, since the library only scales to a
// total image size with a fixed four module quiet zone.
//
// skip2 refuses empty data, so an empty string is painted from the yeqown
// module matrix, which is a version 1 symbol.
func (skip2Renderer) Render(data string, g Geometry, opts Options) ([]byte, error) {
	if data == "" {
		matrix, err := moduleMatrix(data)
		if err != nil {
			return nil, err
		}
		return paintPNG(matrix, g, opts)
	}
	q, err := skip2.New(data, skip2.Highest)
	if err != nil {
		return nil, fmt.Errorf("qr: create code: %w", err)
	}
	q.DisableBorder = true
	return paintPNG(q.Bitmap(), g, opts)
}

// paintPNG draws a module matrix as boxes of g.BoxSize pixels inside a
// g.Border module quiet zone.
func paintPNG(matrix [][]bool, g Geometry, opts Options) ([]byte, error) {
	dim := len(matrix)
	if dim == 0 {
		return nil, fmt.Errorf("qr: empty module matrix")
	}
	side := g.Side(dim)
	img := image.NewNRGBA(image.Rect(0, 0, side, side))
	bg := color.NRGBA{opts.Background.R, opts.Background.G, opts.Background.B, 255}
	if opts.Transparent {
		bg = color.NRGBA{}
	}
	draw.Draw(img, img.Bounds(), &image.Uniform{C: bg}, image.Point{}, draw.Src)

	fg := &image.Uniform{C: color.NRGBA{opts.Foreground.R, opts.Foreground.G, opts.Foreground.B, 255}}
	offset := g.BorderPixels()
	for y, row := range matrix {
		for x, dark := range row {
			if !dark {
				continue
			}
			px := offset + x*g.BoxSize
			py := offset + y*g.BoxSize
			draw.Draw(img, image.Rect(px, py, px+g.BoxSize, py+g.BoxSize), fg, image.Point{}, draw.Src)
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("qr: encode png: %w", err)
	}
	return buf.Bytes(), nil
}
