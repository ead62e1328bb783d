package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/cristianadrielbraun/qrnode/internal/node"
	"github.com/cristianadrielbraun/qrnode/internal/qrnode"
	"github.com/cristianadrielbraun/qrnode/internal/tensor"
)

// QRCodeHandler runs the QR Code node for ?link= and streams the image
// output as PNG.
func (h *Handler) QRCodeHandler(c *gin.Context) {
	res, ok := h.runQRCode(c)
	if !ok {
		return
	}
	img, ok := res.Outputs[0].Value.(tensor.Tensor)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("unexpected output type %T", res.Outputs[0].Value)})
		return
	}
	h.writeTensorPNG(c, img, res)
}

// QRMaskHandler streams the mask returned by the QR Code node. The node does
// not declare a mask output, so the mask is taken from the discarded values.
func (h *Handler) QRMaskHandler(c *gin.Context) {
	res, ok := h.runQRCode(c)
	if !ok {
		return
	}
	if len(res.Discarded) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "node returned no mask"})
		return
	}
	mask, ok := res.Discarded[0].(tensor.Tensor)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("unexpected mask type %T", res.Discarded[0])})
		return
	}
	h.writeTensorPNG(c, mask, res)
}

func (h *Handler) runQRCode(c *gin.Context) (*node.Result, bool) {
	link, ok := c.GetQuery("link")
	if !ok || strings.TrimSpace(link) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "link parameter is required"})
		return nil, false
	}
	res, err := h.exec.Run(c.Request.Context(), qrnode.Name, node.Inputs{"link": link})
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, node.ErrUnknownNode) {
			status = http.StatusNotFound
		}
		_ = c.Error(err)
		c.JSON(status, gin.H{"error": fmt.Sprintf("Failed to generate QR code: %v", err)})
		return nil, false
	}
	return res, true
}

func (h *Handler) writeTensorPNG(c *gin.Context, t tensor.Tensor, res *node.Result) {
	data, err := tensor.EncodePNG(t)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Failed to encode PNG: %v", err)})
		return
	}
	c.Header("Cache-Control", "public, max-age=3600")
	c.Header("X-QR-Debug", fmt.Sprintf("execution=%s;shape=%v;discarded=%d", res.ExecutionID, t.Shape, len(res.Discarded)))
	c.Data(http.StatusOK, "image/png", data)
}
