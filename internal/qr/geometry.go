// Package qr computes QR code geometry and renders codes through third-party
// encoders into PNG bytes.
package qr

import (
	"fmt"
	"math"
)

const (
	// TargetSize is the desired side of the rendered image in pixels.
	TargetSize = 768
	// Border is the quiet zone width in modules.
	Border = 5
	// Version is the starting symbol version. Encoders grow it when the
	// data does not fit, so it is not a cap.
	Version = 1
)

// Geometry holds the numbers used to size a rendered code.
type Geometry struct {
	Version int
	Modules int
	Border  int
	BoxSize int
}

// Modules returns the number of modules per side for a symbol version.
func Modules(version int) int {
	return version*4 + 17
}

// BoxSize returns the module width in pixels so that modules plus border
// come close to size.
func BoxSize(size, modules, border int) int {
	return int(math.Ceil(float64(size) / float64(modules+2*border)))
}

// NewGeometry derives a geometry for the given target size, version and border.
func NewGeometry(size, version, border int) (Geometry, error) {
	if size <= 0 {
		return Geometry{}, fmt.Errorf("qr: target size must be positive, got %d", size)
	}
	if version < 1 || version > 40 {
		return Geometry{}, fmt.Errorf("qr: version must be within 1..40, got %d", version)
	}
	if border < 0 {
		return Geometry{}, fmt.Errorf("qr: border must be >= 0, got %d", border)
	}
	modules := Modules(version)
	return Geometry{
		Version: version,
		Modules: modules,
		Border:  border,
		BoxSize: BoxSize(size, modules, border),
	}, nil
}

// DefaultGeometry is the geometry of the QR Code node: version 1, 21
// modules, a 5 module border and 25 pixel boxes.
func DefaultGeometry() Geometry {
	g, err := NewGeometry(TargetSize, Version, Border)
	if err != nil {
		panic(err)
	}
	return g
}

// Side returns the rendered side in pixels for a symbol of dimension modules.
func (g Geometry) Side(dimension int) int {
	return (dimension + 2*g.Border) * g.BoxSize
}

// BorderPixels is the quiet zone width in pixels.
func (g Geometry) BorderPixels() int {
	return g.Border * g.BoxSize
}
