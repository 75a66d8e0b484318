// Package server provides the HTTP surface: the predict endpoint, static
// front-end files, health, metrics and API docs.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"geoprompt/internal/core"
	"geoprompt/internal/relay"
)

// Predictor is the relay operation the predict endpoint calls.
type Predictor interface {
	Predict(ctx context.Context, prompt string) (*relay.Result, error)
}

// PromptRequest is the body of POST /api/predict.
type PromptRequest struct {
	Prompt *string `json:"prompt" example:"museums in Madrid"`
}

// ErrorResponse is the body of every non-2xx response from the API.
type ErrorResponse struct {
	Error string `json:"error"`
	Raw   any    `json:"raw,omitempty"`
}

// Handler holds the HTTP handlers
type Handler struct {
	predictor Predictor
}

// NewHandler creates a new handler with the given predictor
func NewHandler(predictor Predictor) *Handler {
	return &Handler{predictor: predictor}
}

// Predict handles POST /api/predict
//
// @Summary      Translate a place query into an Overpass QL query
// @Description  Sends the prompt with the fixed system instruction to the model and relays the parsed JSON object. Malformed model output is still answered with 200 and an "error"/"raw" body.
// @Tags         predict
// @Accept       json
// @Produce      json
// @Param        request  body      PromptRequest  true  "Natural-language query"
// @Success      200      {object}  map[string]interface{}
// @Failure      422      {object}  ErrorResponse
// @Failure      429      {object}  ErrorResponse
// @Failure      500      {object}  ErrorResponse
// @Failure      502      {object}  ErrorResponse
// @Router       /api/predict [post]
func (h *Handler) Predict(c echo.Context) error {
	var req PromptRequest
	if err := c.Bind(&req); err != nil {
		return handleError(c, core.NewInvalidRequestError("invalid request body: "+bindMessage(err), err))
	}
	if req.Prompt == nil {
		return handleError(c, core.NewInvalidRequestError("prompt is required", nil))
	}

	result, err := h.predictor.Predict(c.Request().Context(), *req.Prompt)
	if err != nil {
		return handleError(c, err)
	}

	if result.Kind == relay.KindObject {
		return c.JSONBlob(http.StatusOK, result.Object)
	}
	return c.JSON(http.StatusOK, result.Payload())
}

// Health handles GET /health
//
// @Summary      Liveness probe
// @Tags         system
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /health [get]
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func bindMessage(err error) string {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return fmt.Sprint(he.Message)
	}
	return err.Error()
}

// handleError converts gateway errors to appropriate HTTP responses
func handleError(c echo.Context, err error) error {
	var gatewayErr *core.GatewayError
	if errors.As(err, &gatewayErr) {
		if gatewayErr.HTTPStatusCode() >= http.StatusInternalServerError {
			slog.Error("predict failed",
				"request_id", core.GetRequestID(c.Request().Context()),
				"type", gatewayErr.Type,
				"error", gatewayErr,
			)
		}
		return c.JSON(gatewayErr.HTTPStatusCode(), gatewayErr.ToJSON())
	}

	slog.Error("unexpected error",
		"request_id", core.GetRequestID(c.Request().Context()),
		"error", err,
	)
	return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "an unexpected error occurred"})
}
