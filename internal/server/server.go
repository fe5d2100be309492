// Package server exposes the conversion and waterfall engines plus
// scenario persistence over a JSON HTTP API.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/eyadsibai/worth-it-sub001/internal/captable"
	"github.com/eyadsibai/worth-it-sub001/internal/config"
	"github.com/eyadsibai/worth-it-sub001/internal/conversion"
	"github.com/eyadsibai/worth-it-sub001/internal/errs"
	"github.com/eyadsibai/worth-it-sub001/internal/instrument"
	"github.com/eyadsibai/worth-it-sub001/internal/store"
	"github.com/eyadsibai/worth-it-sub001/internal/waterfall"
	"github.com/eyadsibai/worth-it-sub001/pkg/constants"
)

type handler struct {
	logger      *zap.Logger
	store       *store.Store
	converter   *conversion.Engine
	distributor *waterfall.Engine
	maxBodySize int64
	version     string
}

// NewHandler constructs the HTTP handler that serves the engine API.
// The scenario store may be nil, in which case the persistence endpoints
// respond with 503.
func NewHandler(logger *zap.Logger, st *store.Store, maxBodySize int64, version string) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxBodySize <= 0 {
		maxBodySize = constants.DefaultMaxBodySizeBytes
	}
	trimmedVersion := strings.TrimSpace(version)
	if trimmedVersion == "" {
		trimmedVersion = "dev"
	}

	h := &handler{
		logger:      logger,
		store:       st,
		converter:   conversion.NewEngine(logger),
		distributor: waterfall.NewEngine(logger),
		maxBodySize: maxBodySize,
		version:     trimmedVersion,
	}

	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		r.Post("/conversion", h.handleConversion)
		r.Post("/waterfall", h.handleWaterfall)
		r.Get("/version", h.handleVersion)

		r.Route("/scenarios", func(r chi.Router) {
			r.Post("/", h.handleScenarioSave)
			r.Get("/", h.handleScenarioList)
			r.Post("/import", h.handleScenarioImport)
			r.Get("/{id}", h.handleScenarioGet)
			r.Delete("/{id}", h.handleScenarioDelete)
			r.Get("/{id}/export", h.handleScenarioExport)
		})
	})
	return r
}

// conversionRequest is the wire contract for POST /api/conversion.
// All percentages are 0-100 floats; monetary amounts are plain decimal
// numbers.
type conversionRequest struct {
	CapTable    captable.CapTable       `json:"cap_table"`
	Instruments []instrument.Instrument `json:"instruments"`
	PricedRound instrument.PricedRound  `json:"priced_round"`
}

type conversionResponse struct {
	UpdatedCapTable      captable.CapTable             `json:"updated_cap_table"`
	ConvertedInstruments []conversion.ConversionResult `json:"converted_instruments"`
	Summary              conversion.Summary            `json:"summary"`
	Duration             string                        `json:"duration"`
}

func (h *handler) handleConversion(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req conversionRequest
	if !h.decodeJSON(w, r, &req, "server.handleConversion") {
		return
	}

	result, err := h.converter.Convert(req.CapTable, req.Instruments, req.PricedRound)
	if err != nil {
		h.respondEngineError(w, err, "server.handleConversion")
		return
	}

	elapsed := time.Since(start)
	h.logger.Info("conversion computed",
		zap.String("op", "server.handleConversion"),
		zap.Int("instruments", result.Summary.InstrumentsConverted),
		zap.Int64("sharesIssued", result.Summary.TotalSharesIssued),
		zap.Duration("duration", elapsed),
	)

	h.writeJSON(w, http.StatusOK, conversionResponse{
		UpdatedCapTable:      result.UpdatedCapTable,
		ConvertedInstruments: result.Conversions,
		Summary:              result.Summary,
		Duration:             elapsed.String(),
	})
}

// waterfallRequest is the wire contract for POST /api/waterfall.
type waterfallRequest struct {
	CapTable        captable.CapTable           `json:"cap_table"`
	PreferenceTiers []instrument.PreferenceTier `json:"preference_tiers"`
	ExitValuations  []float64                   `json:"exit_valuations"`
}

type waterfallResponse struct {
	DistributionsByValuation []waterfall.Distribution `json:"distributions_by_valuation"`
	BreakevenPoints          map[string]float64       `json:"breakeven_points"`
	Duration                 string                   `json:"duration"`
}

func (h *handler) handleWaterfall(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req waterfallRequest
	if !h.decodeJSON(w, r, &req, "server.handleWaterfall") {
		return
	}
	if len(req.ExitValuations) == 0 {
		h.respondError(w, http.StatusBadRequest, string(errs.KindValidation),
			"exit_valuations must not be empty", "server.handleWaterfall")
		return
	}

	result, err := h.distributor.Sweep(r.Context(), req.CapTable, req.PreferenceTiers, req.ExitValuations)
	if err != nil {
		h.respondEngineError(w, err, "server.handleWaterfall")
		return
	}

	elapsed := time.Since(start)
	h.logger.Info("waterfall computed",
		zap.String("op", "server.handleWaterfall"),
		zap.Int("valuations", len(result.Distributions)),
		zap.Duration("duration", elapsed),
	)

	h.writeJSON(w, http.StatusOK, waterfallResponse{
		DistributionsByValuation: result.Distributions,
		BreakevenPoints:          result.Breakevens,
		Duration:                 elapsed.String(),
	})
}

func (h *handler) handleVersion(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"version": h.version})
}

func (h *handler) handleScenarioSave(w http.ResponseWriter, r *http.Request) {
	if !h.requireStore(w, "server.handleScenarioSave") {
		return
	}

	var scenario config.Scenario
	if !h.decodeJSON(w, r, &scenario, "server.handleScenarioSave") {
		return
	}
	if warnings := scenario.Validate(); len(warnings) > 0 {
		for _, warning := range warnings {
			h.logger.Warn("Scenario warning: "+warning,
				zap.String("op", "server.handleScenarioSave"),
			)
		}
	}

	id, err := h.store.Save(&scenario)
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, "", err.Error(), "server.handleScenarioSave")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"id": id})
}

func (h *handler) handleScenarioList(w http.ResponseWriter, r *http.Request) {
	if !h.requireStore(w, "server.handleScenarioList") {
		return
	}

	entries, err := h.store.List()
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, "", err.Error(), "server.handleScenarioList")
		return
	}
	if entries == nil {
		entries = []store.Entry{}
	}
	h.writeJSON(w, http.StatusOK, entries)
}

func (h *handler) handleScenarioGet(w http.ResponseWriter, r *http.Request) {
	if !h.requireStore(w, "server.handleScenarioGet") {
		return
	}

	scenario, err := h.store.Load(chi.URLParam(r, "id"))
	if err != nil {
		h.respondStoreError(w, err, "server.handleScenarioGet")
		return
	}
	h.writeJSON(w, http.StatusOK, scenario)
}

func (h *handler) handleScenarioDelete(w http.ResponseWriter, r *http.Request) {
	if !h.requireStore(w, "server.handleScenarioDelete") {
		return
	}

	if err := h.store.Delete(chi.URLParam(r, "id")); err != nil {
		h.respondStoreError(w, err, "server.handleScenarioDelete")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) handleScenarioExport(w http.ResponseWriter, r *http.Request) {
	if !h.requireStore(w, "server.handleScenarioExport") {
		return
	}

	data, err := h.store.Export(chi.URLParam(r, "id"))
	if err != nil {
		h.respondStoreError(w, err, "server.handleScenarioExport")
		return
	}
	w.Header().Set("Content-Type", "application/yaml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (h *handler) handleScenarioImport(w http.ResponseWriter, r *http.Request) {
	if !h.requireStore(w, "server.handleScenarioImport") {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodySize)
	data, err := io.ReadAll(r.Body)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, string(errs.KindValidation),
			fmt.Sprintf("failed to read scenario: %v", err), "server.handleScenarioImport")
		return
	}

	id, err := h.store.Import(data)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, string(errs.KindValidation), err.Error(), "server.handleScenarioImport")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"id": id})
}

func (h *handler) requireStore(w http.ResponseWriter, op string) bool {
	if h.store == nil {
		h.respondError(w, http.StatusServiceUnavailable, "", "scenario store is not configured", op)
		return false
	}
	return true
}

func (h *handler) decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}, op string) bool {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodySize)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			h.respondError(w, http.StatusRequestEntityTooLarge, string(errs.KindValidation),
				fmt.Sprintf("request exceeds limit of %d bytes", h.maxBodySize), op)
			return false
		}
		h.respondError(w, http.StatusBadRequest, string(errs.KindValidation),
			fmt.Sprintf("failed to decode request: %v", err), op)
		return false
	}
	return true
}

// respondEngineError maps the engine error taxonomy onto HTTP statuses:
// validation 400, state conflict 409, computation 422.
func (h *handler) respondEngineError(w http.ResponseWriter, err error, op string) {
	status := http.StatusBadRequest
	kind, ok := errs.KindOf(err)
	if ok {
		switch kind {
		case errs.KindStateConflict:
			status = http.StatusConflict
		case errs.KindComputation:
			status = http.StatusUnprocessableEntity
		}
	}
	h.respondError(w, status, string(kind), err.Error(), op)
}

func (h *handler) respondStoreError(w http.ResponseWriter, err error, op string) {
	if errors.Is(err, store.ErrScenarioNotFound) || errors.Is(err, store.ErrEmptyScenarioID) {
		h.respondError(w, http.StatusNotFound, "", err.Error(), op)
		return
	}
	h.respondError(w, http.StatusInternalServerError, "", err.Error(), op)
}

func (h *handler) respondError(w http.ResponseWriter, status int, kind, msg, op string) {
	h.logger.Error("request failed",
		zap.String("op", op),
		zap.Int("status", status),
		zap.String("error", msg),
	)

	payload := map[string]string{"error": msg}
	if kind != "" {
		payload["kind"] = kind
	}
	h.writeJSON(w, status, payload)
}

func (h *handler) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to write JSON response", zap.Error(err))
	}
}
