package qr

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"strings"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
)

type svgRenderer struct{}

// Render builds a vector SVG from the module matrix and rasterises it.
func (svgRenderer) Render(data string, g Geometry, opts Options) ([]byte, error) {
	matrix, err := moduleMatrix(data)
	if err != nil {
		return nil, err
	}
	doc, side := VectorSVG(matrix, g, opts)

	icon, err := oksvg.ReadIconStream(strings.NewReader(doc))
	if err != nil {
		return nil, fmt.Errorf("qr: parse svg: %w", err)
	}
	icon.SetTarget(0, 0, float64(side), float64(side))

	img := image.NewRGBA(image.Rect(0, 0, side, side))
	scanner := rasterx.NewScannerGV(side, side, img, img.Bounds())
	raster := rasterx.NewDasher(side, side, scanner)
	icon.Draw(raster, 1.0)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("qr: encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// VectorSVG renders a module matrix as an SVG document with one rect per dark
// module. It also returns the document side in pixels.
func VectorSVG(matrix [][]bool, g Geometry, opts Options) (string, int) {
	side := g.Side(len(matrix))
	offset := g.BorderPixels()

	var sb strings.Builder
	sb.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	fmt.Fprintf(&sb, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %d %d" width="%d" height="%d">`,
		side, side, side, side)
	if !opts.Transparent {
		fmt.Fprintf(&sb, `<rect x="0" y="0" width="%d" height="%d" fill="%s"/>`, side, side, hexColor(opts.Background.R, opts.Background.G, opts.Background.B))
	}
	fill := hexColor(opts.Foreground.R, opts.Foreground.G, opts.Foreground.B)
	for y, row := range matrix {
		for x, dark := range row {
			if !dark {
				continue
			}
			fmt.Fprintf(&sb, `<rect x="%d" y="%d" width="%d" height="%d" fill="%s"/>`,
				offset+x*g.BoxSize, offset+y*g.BoxSize, g.BoxSize, g.BoxSize, fill)
		}
	}
	sb.WriteString(`</svg>`)
	return sb.String(), side
}

func hexColor(r, g, b uint8) string {
	return fmt.Sprintf("#%02x%02x%02x", r, g, b)
}
