package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"triage/internal/core"
	"triage/internal/llm"
	"triage/internal/logging"
)

// maxRequestBytes bounds request bodies; the hardened variant applies the
// stricter character limit itself.
const maxRequestBytes = 1 << 20

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

func HealthCheck(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}

// TriageRequest is the body of POST /v1/triage.
type TriageRequest struct {
	ID       string   `json:"id"`
	Email    string   `json:"email" binding:"required"`
	Variants []string `json:"variants"`
}

// TriageHandler runs single emails through the pipeline.
type TriageHandler struct {
	agg *core.Aggregator
	log logging.Logger
}

func NewTriageHandler(agg *core.Aggregator, log logging.Logger) *TriageHandler {
	return &TriageHandler{agg: agg, log: log}
}

// Triage responds with the report for one email: {id: {variant: outcome}}.
func (h *TriageHandler) Triage(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxRequestBytes)

	var req TriageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			RespondError(c, http.StatusRequestEntityTooLarge, "body_too_large", err)
			return
		}
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}

	variants := make([]llm.Variant, 0, len(req.Variants))
	for _, s := range req.Variants {
		v, err := llm.ParseVariant(strings.TrimSpace(s))
		if err != nil {
			RespondError(c, http.StatusBadRequest, "invalid_variant", err)
			return
		}
		variants = append(variants, v)
	}

	id := req.ID
	if id == "" {
		id = "email"
	}

	ctx := core.ContextWithRunID(c.Request.Context(), c.GetString("request_id"))
	report := h.agg.Collect(ctx, []core.Email{{ID: id, Body: req.Email}}, variants...)

	c.JSON(http.StatusOK, report)
}
