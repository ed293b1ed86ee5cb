package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dtroode/threatgate/internal/apierror"
	"github.com/dtroode/threatgate/internal/api/http/response"
	"github.com/dtroode/threatgate/internal/logger"
	"github.com/dtroode/threatgate/internal/metrics"
	"github.com/dtroode/threatgate/internal/model"
)

type Lookup struct {
	gateway      model.LookupGateway
	metrics      *metrics.Metrics
	maxBodyBytes int64
	logger       *logger.Logger
}

func NewLookup(gateway model.LookupGateway, metrics *metrics.Metrics, maxBodyBytes int64, logger *logger.Logger) *Lookup {
	return &Lookup{
		gateway:      gateway,
		metrics:      metrics,
		maxBodyBytes: maxBodyBytes,
		logger:       logger,
	}
}

type lookupRequest struct {
	Type     string `json:"type"`
	Resource string `json:"resource"`
}

type lookupResponse struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Lookup handles POST /api/vt/lookup.
func (h *Lookup) Lookup(w http.ResponseWriter, r *http.Request) {
	var req lookupRequest
	err := decodeBody(w, r, h.maxBodyBytes, &req, func(get func(string) string) {
		req.Type = get("type")
		req.Resource = get("resource")
	})
	if err != nil {
		handleError(w, r, err, h.logger)
		return
	}

	if req.Type == "" || req.Resource == "" {
		handleError(w, r, apierror.NewErrMissingFields("type and resource required"), h.logger)
		return
	}

	data, err := h.gateway.Lookup(r.Context(), model.LookupKind(req.Type), req.Resource)
	if err != nil {
		h.metrics.ObserveLookup(kindLabel(req.Type), lookupOutcome(err))
		handleError(w, r, err, h.logger)
		return
	}

	h.metrics.ObserveLookup(kindLabel(req.Type), metrics.LookupRelayed)
	response.JSON(w, http.StatusOK, lookupResponse{Type: req.Type, Data: data})
}

func lookupOutcome(err error) string {
	switch {
	case errors.Is(err, model.ErrUnsupportedKind):
		return metrics.LookupUnsupported
	case errors.Is(err, model.ErrGatewayMisconfigured):
		return metrics.LookupMisconfigured
	default:
		return metrics.LookupUpstreamError
	}
}

// kindLabel bounds metric label values to the known kinds.
func kindLabel(kind string) string {
	switch model.LookupKind(kind) {
	case model.LookupKindDomain, model.LookupKindIP, model.LookupKindFile, model.LookupKindURL:
		return kind
	default:
		return "other"
	}
}
