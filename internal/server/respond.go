package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/bullionhub/shipbridge/pkg/shipping"
)

const bodyLimit = 1 << 20

type errorResponse struct {
	Error     string          `json:"error"`
	Fields    []string        `json:"fields,omitempty"`
	Code      string          `json:"code,omitempty"`
	Carrier   string          `json:"carrier,omitempty"`
	Retryable bool            `json:"retryable,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		s.logger.Ctx(r.Context()).Warn("Failed to encode response",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Error(err),
		)
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	s.writeJSON(w, r, status, errorResponse{Error: msg})
}

// writeShippingError maps handler errors onto HTTP statuses.
func (s *Server) writeShippingError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		buildErr    *shipping.BuildError
		resErr      *shipping.ResolutionError
		providerErr *shipping.ProviderError
	)
	switch {
	case errors.As(err, &buildErr):
		s.writeJSON(w, r, http.StatusBadRequest, errorResponse{Error: err.Error(), Fields: buildErr.Fields})
	case errors.As(err, &resErr) && errors.Is(err, shipping.ErrUnknownCarrierID):
		s.writeError(w, r, http.StatusNotFound, err.Error())
	case errors.As(err, &resErr):
		s.writeError(w, r, http.StatusNotImplemented, err.Error())
	case errors.As(err, &providerErr):
		resp := errorResponse{
			Error:     err.Error(),
			Code:      providerErr.Code,
			Carrier:   string(providerErr.Carrier),
			Retryable: providerErr.Retryable,
		}
		if json.Valid(providerErr.Payload) {
			resp.Payload = providerErr.Payload
		}
		s.writeJSON(w, r, http.StatusBadGateway, resp)
	default:
		s.logger.Ctx(r.Context()).Error("Request failed", zap.Error(err))
		s.writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}

func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, bodyLimit)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		s.writeError(w, r, http.StatusBadRequest, "invalid json: "+err.Error())
		return false
	}
	if err := dec.Decode(new(struct{})); err != io.EOF {
		s.writeError(w, r, http.StatusBadRequest, "invalid json: trailing data")
		return false
	}
	return true
}
