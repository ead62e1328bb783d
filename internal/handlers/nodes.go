package handlers

import (
	"encoding/base64"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cristianadrielbraun/qrnode/internal/node"
	"github.com/cristianadrielbraun/qrnode/internal/tensor"
)

type promptRequest struct {
	Node   string      `json:"node" binding:"required"`
	Inputs node.Inputs `json:"inputs"`
}

type valueResponse struct {
	Type       string `json:"type,omitempty"`
	Name       string `json:"name,omitempty"`
	Shape      []int  `json:"shape,omitempty"`
	PreviewPNG string `json:"preview_png,omitempty"`
	Value      any    `json:"value,omitempty"`
}

type promptResponse struct {
	ExecutionID string          `json:"execution_id"`
	Node        string          `json:"node"`
	Outputs     []valueResponse `json:"outputs"`
	Discarded   []valueResponse `json:"discarded"`
	DurationMS  int64           `json:"duration_ms"`
}

// ObjectInfo lists every registered node descriptor.
func (h *Handler) ObjectInfo(c *gin.Context) {
	c.JSON(http.StatusOK, h.exec.Registry().ObjectInfo())
}

// NodeInfo returns the descriptor of a single node.
func (h *Handler) NodeInfo(c *gin.Context) {
	name := c.Param("name")
	info, ok := h.exec.Registry().ObjectInfo()[name]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown node " + name})
		return
	}
	c.JSON(http.StatusOK, gin.H{name: info})
}

// Prompt runs one node with the posted inputs and reports its outputs.
// Tensor values are summarised by shape with a PNG preview.
func (h *Handler) Prompt(c *gin.Context) {
	var req promptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	res, err := h.exec.Run(c.Request.Context(), req.Node, req.Inputs)
	if err != nil {
		_ = c.Error(err)
		switch {
		case errors.Is(err, node.ErrUnknownNode):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		case errors.Is(err, node.ErrInvalidInput):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	resp := promptResponse{
		ExecutionID: res.ExecutionID,
		Node:        res.Node,
		Outputs:     make([]valueResponse, 0, len(res.Outputs)),
		Discarded:   make([]valueResponse, 0, len(res.Discarded)),
		DurationMS:  res.Duration.Milliseconds(),
	}
	for _, out := range res.Outputs {
		v, err := describeValue(out.Value)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		v.Type, v.Name = out.Type, out.Name
		resp.Outputs = append(resp.Outputs, v)
	}
	for _, extra := range res.Discarded {
		v, err := describeValue(extra)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		resp.Discarded = append(resp.Discarded, v)
	}
	c.JSON(http.StatusOK, resp)
}

func describeValue(v any) (valueResponse, error) {
	t, ok := v.(tensor.Tensor)
	if !ok {
		return valueResponse{Value: v}, nil
	}
	data, err := tensor.EncodePNG(t)
	if err != nil {
		return valueResponse{}, err
	}
	return valueResponse{
		Shape:      append([]int(nil), t.Shape...),
		PreviewPNG: base64.StdEncoding.EncodeToString(data),
	}, nil
}
