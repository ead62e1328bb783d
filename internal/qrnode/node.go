// Package qrnode implements the QR Code node: it resolves placeholders in a
// link, renders the link as a QR code and converts the raster into the image
// and mask tensors consumed by the host pipeline.
package qrnode

import (
	"context"
	"fmt"

	"github.com/cristianadrielbraun/qrnode/internal/logging"
	"github.com/cristianadrielbraun/qrnode/internal/node"
	"github.com/cristianadrielbraun/qrnode/internal/qr"
	"github.com/cristianadrielbraun/qrnode/internal/tensor"
)

const (
	// Name is the registration key of the node.
	Name = "QRCode"
	// DisplayName is the title shown in the editor.
	DisplayName = "QR Code"
	// Category groups the node in the editor menu.
	Category = "DoubTech/Loaders"
	// Function is the entry point the host invokes.
	Function = "create_qr_code"
	// DefaultLink is the default value of the link field.
	DefaultLink = "https://doubtech.ai"
)

// Substituter resolves placeholders in the link before encoding. Unknown
// input must come back unchanged.
type Substituter interface {
	Apply(string) string
}

// Node is the QR Code node. The zero value is not usable; call New.
type Node struct {
	vars     Substituter
	renderer qr.Renderer
	geometry qr.Geometry
	options  qr.Options
}

// Option configures a Node.
type Option func(*Node)

// WithRenderer replaces the default yeqown renderer.
func WithRenderer(r qr.Renderer) Option {
	return func(n *Node) {
		if r != nil {
			n.renderer = r
		}
	}
}

// WithOptions sets the colours used when rendering.
func WithOptions(opts qr.Options) Option {
	return func(n *Node) { n.options = opts }
}

// New returns a node that resolves placeholders through vars.
func New(vars Substituter, opts ...Option) (*Node, error) {
	if vars == nil {
		return nil, fmt.Errorf("qrnode: substituter is required")
	}
	renderer, err := qr.NewRenderer(qr.DefaultEncoder)
	if err != nil {
		return nil, err
	}
	n := &Node{
		vars:     vars,
		renderer: renderer,
		geometry: qr.DefaultGeometry(),
		options:  qr.DefaultOptions(),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n, nil
}

// Definition declares one required STRING input and a single IMAGE output.
// CreateQRCode returns a mask as well; the host drops it because no output
// slot is declared for it.
func (n *Node) Definition() node.Definition {
	return node.Definition{
		Name:        Name,
		DisplayName: DisplayName,
		Category:    Category,
		Function:    Function,
		Input: node.InputSchema{
			Required: []node.Field{{
				Name:      "link",
				Type:      node.TypeString,
				Multiline: false,
				Default:   DefaultLink,
			}},
		},
		ReturnTypes: []string{node.TypeImage},
	}
}

// Execute adapts CreateQRCode to the host calling convention.
func (n *Node) Execute(ctx context.Context, in node.Inputs) ([]any, error) {
	link, ok := in["link"].(string)
	if !ok {
		return nil, fmt.Errorf("qrnode: link must be a string, got %T", in["link"])
	}
	img, mask, err := n.CreateQRCode(ctx, link)
	if err != nil {
		return nil, err
	}
	return []any{img, mask}, nil
}

// Geometry returns the sizing used for rendering.
func (n *Node) Geometry() qr.Geometry { return n.geometry }

// CreateQRCode encodes link as a QR code and returns an image tensor of shape
// [1, H, W, 3] with values in [0,1] and a mask tensor.
//
// The mask is 1 - alpha when the rendered image has an alpha channel.
// Otherwise it is a 64x64 zero tensor whatever the image size.
func (n *Node) CreateQRCode(ctx context.Context, link string) (tensor.Tensor, tensor.Tensor, error) {
	if err := ctx.Err(); err != nil {
		return tensor.Tensor{}, tensor.Tensor{}, err
	}
	data := n.vars.Apply(link)

	encoded, err := n.renderer.Render(data, n.geometry, n.options)
	if err != nil {
		return tensor.Tensor{}, tensor.Tensor{}, fmt.Errorf("qrnode: %w", err)
	}
	raster, err := tensor.Decode(encoded)
	if err != nil {
		return tensor.Tensor{}, tensor.Tensor{}, fmt.Errorf("qrnode: %w", err)
	}

	img := tensor.FromImage(raster)
	var mask tensor.Tensor
	if tensor.HasTransparency(raster) {
		mask = tensor.InvertedAlpha(raster)
	} else {
		mask = tensor.FallbackMask()
	}

	b := raster.Bounds()
	logging.Debug(logging.Fields{
		"node":     Name,
		"width":    b.Dx(),
		"height":   b.Dy(),
		"box_size": n.geometry.BoxSize,
		"mask":     fmt.Sprint(mask.Shape),
	}, "qr code rendered")
	return img, mask, nil
}

// Registry is the static registration table for this plugin.
func Registry(vars Substituter, opts ...Option) (*node.Registry, error) {
	n, err := New(vars, opts...)
	if err != nil {
		return nil, err
	}
	return node.NewRegistry(node.Entry{Name: Name, DisplayName: DisplayName, Node: n})
}
