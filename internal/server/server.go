// Package server exposes the allocation engine over HTTP: a YAML run
// configuration posted to the optimize endpoint is executed with the
// deterministic local collaborators and answered with the finalized result.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/mfgplan/allocator/internal/collaborator"
	"github.com/mfgplan/allocator/internal/config"
	"github.com/mfgplan/allocator/internal/engine"
	"github.com/mfgplan/allocator/internal/optimizer"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// DefaultMaxBodySize is the default maximum size for posted YAML configs.
const DefaultMaxBodySize int64 = 256 * 1024

type handler struct {
	logger      *zap.Logger
	maxBodySize int64
	version     string
}

// NewHandler constructs the HTTP handler that serves the allocation API.
func NewHandler(logger *zap.Logger, maxBodySize int64, version string) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxBodySize <= 0 {
		maxBodySize = DefaultMaxBodySize
	}
	if version == "" {
		version = "dev"
	}

	h := &handler{logger: logger, maxBodySize: maxBodySize, version: version}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/optimize", h.handleOptimize)
	mux.HandleFunc("/api/version", h.handleVersion)
	return mux
}

type optimizeResponse struct {
	Result   *engine.Result `json:"result"`
	Warnings []string       `json:"warnings,omitempty"`
	Duration string         `json:"duration"`
}

func (h *handler) handleOptimize(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	start := time.Now()
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodySize)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			h.respondError(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("request exceeds limit of %d bytes", h.maxBodySize))
			return
		}
		h.respondError(w, http.StatusBadRequest, fmt.Sprintf("failed to read request: %v", err))
		return
	}

	var conf config.Configuration
	if err := yaml.Unmarshal(body, &conf); err != nil {
		h.respondError(w, http.StatusBadRequest, fmt.Sprintf("error reading config data, %v", err))
		return
	}

	warnings, err := conf.ValidateConfiguration()
	if err != nil {
		h.respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid configuration: %v", err))
		return
	}

	machines, err := conf.MachineSet()
	if err != nil {
		h.respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid machines: %v", err))
		return
	}

	oracle := optimizer.New(h.logger, conf.OptimizerMode(), conf.Optimizer.Granularity)
	reviewers := make([]collaborator.Reviewer, 0, len(conf.Collaborators.Reviewers))
	for _, role := range conf.Collaborators.Reviewers {
		reviewers = append(reviewers, collaborator.NewScriptReviewer(role, oracle))
	}

	result, err := engine.Run(r.Context(), engine.Problem{Machines: machines, Demand: conf.Demand}, engine.Options{
		Logger:   h.logger,
		Policy:   conf.Policy(),
		Proposer: collaborator.StrategyProposer{},
		Panel:    collaborator.NewPanel(h.logger, reviewers, conf.ProposalTimeout()),
		Oracle:   oracle,
	})
	if err != nil {
		h.respondError(w, http.StatusBadRequest, fmt.Sprintf("run failed: %v", err))
		return
	}

	h.writeJSON(w, http.StatusOK, optimizeResponse{
		Result:   result,
		Warnings: warnings,
		Duration: time.Since(start).String(),
	})
}

func (h *handler) handleVersion(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{
		"version": h.version,
	})
}

func (h *handler) respondError(w http.ResponseWriter, status int, message string) {
	h.logger.Warn("request failed",
		zap.String("op", "server.handleOptimize"),
		zap.Int("status", status),
		zap.String("message", message),
	)
	h.writeJSON(w, status, map[string]string{"error": message})
}

func (h *handler) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Warn("failed to encode response",
			zap.String("op", "server.writeJSON"),
			zap.Error(err),
		)
	}
}
