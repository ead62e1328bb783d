package qr

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"sort"
	"strings"

	"github.com/yeqown/go-qrcode/v2"
	"github.com/yeqown/go-qrcode/writer/standard"
)

// ErrUnknownEncoder is returned by NewRenderer for an unregistered name.
var ErrUnknownEncoder = errors.New("qr: unknown encoder")

// DefaultEncoder names the renderer used when none is configured.
const DefaultEncoder = "yeqown"

// Options controls colours of the rendered code.
type Options struct {
	// Transparent drops the background so the image carries an alpha channel.
	Transparent bool
	Foreground  color.RGBA
	Background  color.RGBA
}

// DefaultOptions renders black modules on an opaque white background.
func DefaultOptions() Options {
	return Options{
		Foreground: color.RGBA{0, 0, 0, 255},
		Background: color.RGBA{255, 255, 255, 255},
	}
}

// Renderer encodes data at the highest error correction level and returns
// the code as PNG bytes.
type Renderer interface {
	Render(data string, g Geometry, opts Options) ([]byte, error)
}

var renderers = map[string]func() Renderer{
	"yeqown": func() Renderer { return yeqownRenderer{} },
	"skip2":  func() Renderer { return skip2Renderer{} },
	"svg":    func() Renderer { return svgRenderer{} },
}

// NewRenderer returns the renderer registered under name. An empty name
// selects DefaultEncoder.
func NewRenderer(name string) (Renderer, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		key = DefaultEncoder
	}
	ctor, ok := renderers[key]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownEncoder, name)
	}
	return ctor(), nil
}

// Encoders lists the registered renderer names.
func Encoders() []string {
	names := make([]string, 0, len(renderers))
	for name := range renderers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

type yeqownRenderer struct{}

func (yeqownRenderer) Render(data string, g Geometry, opts Options) ([]byte, error) {
	if g.BoxSize <= 0 || g.BoxSize > math.MaxUint8 {
		return nil, fmt.Errorf("qr: box size %d out of range for yeqown writer", g.BoxSize)
	}
	qrc, err := qrcode.NewWith(data, qrcode.WithErrorCorrectionLevel(qrcode.ErrorCorrectionHighest))
	if err != nil {
		return nil, fmt.Errorf("qr: create code: %w", err)
	}

	imgOpts := []standard.ImageOption{
		standard.WithQRWidth(uint8(g.BoxSize)),
		standard.WithBorderWidth(g.BorderPixels()),
		standard.WithFgColor(opts.Foreground),
		standard.WithBuiltinImageEncoder(standard.PNG_FORMAT),
	}
	if opts.Transparent {
		imgOpts = append(imgOpts, standard.WithBgTransparent())
	} else {
		imgOpts = append(imgOpts, standard.WithBgColor(opts.Background))
	}

	buf := &bufferCloser{}
	writer := standard.NewWithWriter(buf, imgOpts...)
	if err := qrc.Save(writer); err != nil {
		return nil, fmt.Errorf("qr: render image: %w", err)
	}
	return buf.Bytes(), nil
}

// moduleMatrix returns the code's dark modules, without quiet zone, by
// rendering a one pixel per module image and thresholding it.
func moduleMatrix(data string) ([][]bool, error) {
	qrc, err := qrcode.NewWith(data, qrcode.WithErrorCorrectionLevel(qrcode.ErrorCorrectionHighest))
	if err != nil {
		return nil, fmt.Errorf("qr: create code: %w", err)
	}
	buf := &bufferCloser{}
	writer := standard.NewWithWriter(buf,
		standard.WithQRWidth(1),
		standard.WithBorderWidth(0),
		standard.WithBgColor(color.RGBA{255, 255, 255, 255}),
		standard.WithFgColor(color.RGBA{0, 0, 0, 255}),
		standard.WithBuiltinImageEncoder(standard.PNG_FORMAT),
	)
	if err := qrc.Save(writer); err != nil {
		return nil, fmt.Errorf("qr: render matrix: %w", err)
	}
	img, err := decodePNG(buf.Bytes())
	if err != nil {
		return nil, err
	}
	b := img.Bounds()
	matrix := make([][]bool, b.Dy())
	for y := 0; y < b.Dy(); y++ {
		matrix[y] = make([]bool, b.Dx())
		for x := 0; x < b.Dx(); x++ {
			r, _, _, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			matrix[y][x] = r < 32768
		}
	}
	return matrix, nil
}

func decodePNG(data []byte) (image.Image, error) {
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("qr: decode png: %w", err)
	}
	return img, nil
}

// bufferCloser lets the standard writer stream into memory.
type bufferCloser struct {
	bytes.Buffer
}

func (*bufferCloser) Close() error { return nil }
