package qrnode

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/makiuchi-d/gozxing"
	zxqr "github.com/makiuchi-d/gozxing/qrcode"

	"github.com/cristianadrielbraun/qrnode/internal/node"
	"github.com/cristianadrielbraun/qrnode/internal/qr"
	"github.com/cristianadrielbraun/qrnode/internal/tensor"
	"github.com/cristianadrielbraun/qrnode/internal/variables"
)

func newNode(t *testing.T, opts ...Option) *Node {
	t.Helper()
	vars := variables.New(variables.WithValues(map[string]string{"site": "doubtech.ai", "empty": ""}))
	n, err := New(vars, opts...)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	return n
}

func decodeTensor(t *testing.T, img tensor.Tensor) string {
	t.Helper()
	raster, err := img.Image()
	if err != nil {
		t.Fatalf("tensor to image: %v", err)
	}
	bmp, err := gozxing.NewBinaryBitmapFromImage(raster)
	if err != nil {
		t.Fatalf("creating bitmap: %v", err)
	}
	result, err := zxqr.NewQRCodeReader().Decode(bmp, nil)
	if err != nil {
		t.Fatalf("no QR code found in image: %v", err)
	}
	return result.GetText()
}

func TestGeometryForDefaultLink(t *testing.T) {
	g := newNode(t).Geometry()
	if g.Modules != 21 || g.BoxSize != 25 || g.Border != 5 {
		t.Fatalf("unexpected geometry %+v", g)
	}
}

func TestCreateQRCodeImageTensor(t *testing.T) {
	img, _, err := newNode(t).CreateQRCode(context.Background(), DefaultLink)
	if err != nil {
		t.Fatalf("CreateQRCode returned error: %v", err)
	}
	if img.Rank() != 4 || img.Shape[0] != 1 || img.Shape[3] != 3 {
		t.Fatalf("expected shape (1,H,W,3), got %v", img.Shape)
	}
	if img.Shape[1] != img.Shape[2] {
		t.Fatalf("expected square image, got %v", img.Shape)
	}
	lo, hi := img.MinMax()
	if lo != 0 || hi != 1 {
		t.Fatalf("expected black and white values spanning [0,1], got [%v, %v]", lo, hi)
	}
	if got := decodeTensor(t, img); got != DefaultLink {
		t.Fatalf("decoded %q, want %q", got, DefaultLink)
	}
}

func TestOpaqueImageGetsFixedZeroMask(t *testing.T) {
	img, mask, err := newNode(t).CreateQRCode(context.Background(), DefaultLink)
	if err != nil {
		t.Fatalf("CreateQRCode returned error: %v", err)
	}
	// The fallback mask does not follow the image size.
	if !mask.ShapeEqual(64, 64) {
		t.Fatalf("expected 64x64 mask, got %v", mask.Shape)
	}
	if img.Shape[1] == 64 || img.Shape[2] == 64 {
		t.Fatalf("image unexpectedly matches the mask size: %v", img.Shape)
	}
	if lo, hi := mask.MinMax(); lo != 0 || hi != 0 {
		t.Fatalf("expected all-zero mask, got [%v, %v]", lo, hi)
	}
}

func TestTransparentImageGetsInvertedAlphaMask(t *testing.T) {
	opts := qr.DefaultOptions()
	opts.Transparent = true
	img, mask, err := newNode(t, WithOptions(opts)).CreateQRCode(context.Background(), DefaultLink)
	if err != nil {
		t.Fatalf("CreateQRCode returned error: %v", err)
	}
	if !mask.ShapeEqual(img.Shape[1], img.Shape[2]) {
		t.Fatalf("mask shape %v does not match image %v", mask.Shape, img.Shape)
	}
	// Transparent background gives 1, opaque modules give 0.
	if mask.Data[0] != 1 {
		t.Fatalf("expected corner mask value 1, got %v", mask.Data[0])
	}
	if lo, _ := mask.MinMax(); lo != 0 {
		t.Fatalf("expected opaque modules to give 0, min was %v", lo)
	}
}

func TestCreateQRCodeIsDeterministic(t *testing.T) {
	n := newNode(t)
	img1, mask1, err := n.CreateQRCode(context.Background(), DefaultLink)
	if err != nil {
		t.Fatal(err)
	}
	img2, mask2, err := n.CreateQRCode(context.Background(), DefaultLink)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(img1.Bytes(), img2.Bytes()) || !bytes.Equal(mask1.Bytes(), mask2.Bytes()) {
		t.Fatalf("outputs differ between identical calls")
	}
}

func TestSubstitutionChangesPayload(t *testing.T) {
	n := newNode(t)
	substituted, _, err := n.CreateQRCode(context.Background(), "https://${site}/qr")
	if err != nil {
		t.Fatal(err)
	}
	if got := decodeTensor(t, substituted); got != "https://doubtech.ai/qr" {
		t.Fatalf("decoded %q, want substituted link", got)
	}

	literal, err := New(variables.New())
	if err != nil {
		t.Fatal(err)
	}
	raw, _, err := literal.CreateQRCode(context.Background(), "https://${site}/qr")
	if err != nil {
		t.Fatal(err)
	}
	if got := decodeTensor(t, raw); got != "https://${site}/qr" {
		t.Fatalf("unknown marker should pass through, decoded %q", got)
	}
	if bytes.Equal(raw.Bytes(), substituted.Bytes()) {
		t.Fatalf("substituted and literal payloads rendered identically")
	}
}

func TestDefinitionDeclaresSingleOutput(t *testing.T) {
	def := newNode(t).Definition()
	if err := def.Validate(); err != nil {
		t.Fatalf("definition invalid: %v", err)
	}
	if len(def.ReturnTypes) != 1 || def.ReturnTypes[0] != node.TypeImage {
		t.Fatalf("unexpected return types %v", def.ReturnTypes)
	}
	link := def.Input.Required[0]
	if link.Name != "link" || link.Type != node.TypeString || link.Multiline || link.Default != DefaultLink {
		t.Fatalf("unexpected link field %+v", link)
	}
	if def.Category != "DoubTech/Loaders" || def.Function != "create_qr_code" {
		t.Fatalf("unexpected definition %+v", def)
	}
}

func TestHostDropsUndeclaredMask(t *testing.T) {
	reg, err := Registry(variables.New())
	if err != nil {
		t.Fatalf("Registry returned error: %v", err)
	}
	if got := reg.DisplayNameMappings()[Name]; got != "QR Code" {
		t.Fatalf("unexpected display name %q", got)
	}

	n, _ := reg.Resolve(Name)
	values, err := n.Execute(context.Background(), node.Inputs{"link": DefaultLink})
	if err != nil {
		t.Fatal(err)
	}
	if len(values) != 2 {
		t.Fatalf("node should return image and mask, got %d values", len(values))
	}

	res, err := node.NewExecutor(reg).Run(context.Background(), Name, nil)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if len(res.Outputs) != 1 || res.Outputs[0].Type != node.TypeImage {
		t.Fatalf("expected one IMAGE output, got %+v", res.Outputs)
	}
	if _, ok := res.Outputs[0].Value.(tensor.Tensor); !ok {
		t.Fatalf("expected tensor output, got %T", res.Outputs[0].Value)
	}
	if len(res.Discarded) != 1 {
		t.Fatalf("expected the mask to be discarded, got %d", len(res.Discarded))
	}
	if mask := res.Discarded[0].(tensor.Tensor); !mask.ShapeEqual(64, 64) {
		t.Fatalf("unexpected discarded value %v", mask)
	}
}

type failingRenderer struct{ err error }

func (f failingRenderer) Render(string, qr.Geometry, qr.Options) ([]byte, error) { return nil, f.err }

type garbageRenderer struct{}

func (garbageRenderer) Render(string, qr.Geometry, qr.Options) ([]byte, error) {
	return []byte("not a png"), nil
}

func TestErrorsPropagate(t *testing.T) {
	boom := errors.New("encoder exploded")
	_, _, err := newNode(t, WithRenderer(failingRenderer{err: boom})).CreateQRCode(context.Background(), "x")
	if !errors.Is(err, boom) {
		t.Fatalf("expected renderer error, got %v", err)
	}
	if _, _, err := newNode(t, WithRenderer(garbageRenderer{})).CreateQRCode(context.Background(), "x"); err == nil {
		t.Fatalf("expected decode error")
	}
	if _, err := newNode(t).Execute(context.Background(), node.Inputs{"link": 7}); err == nil {
		t.Fatalf("expected error for non-string link")
	}
	if _, err := New(nil); err == nil {
		t.Fatalf("expected error for nil substituter")
	}
}

func TestAlternateRenderersAgree(t *testing.T) {
	for _, name := range qr.Encoders() {
		t.Run(name, func(t *testing.T) {
			r, err := qr.NewRenderer(name)
			if err != nil {
				t.Fatal(err)
			}
			img, mask, err := newNode(t, WithRenderer(r)).CreateQRCode(context.Background(), DefaultLink)
			if err != nil {
				t.Fatalf("CreateQRCode returned error: %v", err)
			}
			if got := decodeTensor(t, img); got != DefaultLink {
				t.Fatalf("decoded %q", got)
			}
			if !mask.ShapeEqual(64, 64) {
				t.Fatalf("expected fallback mask, got %v", mask.Shape)
			}

			empty, _, err := newNode(t, WithRenderer(r)).CreateQRCode(context.Background(), "")
			if err != nil {
				t.Fatalf("CreateQRCode returned error for empty link: %v", err)
			}
			if !empty.ShapeEqual(1, 775, 775, 3) {
				t.Fatalf("expected version 1 image for empty link, got %v", empty.Shape)
			}
		})
	}
}

func TestEmptyLinkRendersVersionOneCode(t *testing.T) {
	side := qr.DefaultGeometry().Side(qr.Modules(qr.Version))
	for _, name := range qr.Encoders() {
		r, err := qr.NewRenderer(name)
		if err != nil {
			t.Fatal(err)
		}
		n := newNode(t, WithRenderer(r))
		for _, link := range []string{"", "${empty}"} {
			img, mask, err := n.CreateQRCode(context.Background(), link)
			if err != nil {
				t.Fatalf("%s %q: CreateQRCode returned error: %v", name, link, err)
			}
			if !img.ShapeEqual(1, side, side, 3) {
				t.Fatalf("%s %q: expected (1,%d,%d,3), got %v", name, link, side, side, img.Shape)
			}
			if !mask.ShapeEqual(64, 64) {
				t.Fatalf("%s %q: expected fallback mask, got %v", name, link, mask.Shape)
			}
		}
	}
}
