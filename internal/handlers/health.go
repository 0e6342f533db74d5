package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sola-scriptura-search-api/internal/model"
	"github.com/sola-scriptura-search-api/internal/textindex"
	"github.com/sola-scriptura-search-api/pkg/schema/db"
)

// HealthHandler handles health check endpoints, one per external
// collaborator the orchestrator depends on, distinguishing "configured
// but unreachable" from "not configured" from "ok".
type HealthHandler struct {
	textIndexes   map[model.Corpus]*textindex.Index
	graphWired    bool
	vectorBackend string
}

// NewHealthHandler creates a new health handler. graphWired reports
// whether a knowledge-graph resolver was successfully wired at startup;
// vectorBackend is the wired ANN backend's name, empty when semantic
// search is disabled.
func NewHealthHandler(textIndexes map[model.Corpus]*textindex.Index, graphWired bool, vectorBackend string) *HealthHandler {
	return &HealthHandler{textIndexes: textIndexes, graphWired: graphWired, vectorBackend: vectorBackend}
}

// HealthResponse is the response for basic health check.
type HealthResponse struct {
	Status string `json:"status"`
}

// CollaboratorHealthResponse reports one collaborator's reachability.
type CollaboratorHealthResponse struct {
	Status string `json:"status"`
	Detail string `json:"detail,omitempty"`
}

// Health handles GET /health.
func (h *HealthHandler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "healthy"})
}

// PostgresHealth handles GET /health/postgres.
func (h *HealthHandler) PostgresHealth(c echo.Context) error {
	if !db.PostgresEnabled() {
		return c.JSON(http.StatusServiceUnavailable, CollaboratorHealthResponse{
			Status: "not_configured",
			Detail: "POSTGRES_URI is not set",
		})
	}
	pgDB := db.GetPostgres()
	if pgDB == nil {
		return c.JSON(http.StatusServiceUnavailable, CollaboratorHealthResponse{Status: "error", Detail: "connection not available"})
	}
	if err := pgDB.PingContext(c.Request().Context()); err != nil {
		return c.JSON(http.StatusServiceUnavailable, CollaboratorHealthResponse{Status: "error", Detail: err.Error()})
	}
	return c.JSON(http.StatusOK, CollaboratorHealthResponse{Status: "connected"})
}

// TextIndexHealth handles GET /health/text-index, reporting each corpus's
// document count so an empty-but-reachable index is distinguishable from a
// misconfigured one.
func (h *HealthHandler) TextIndexHealth(c echo.Context) error {
	counts := make(map[string]uint64, len(h.textIndexes))
	for corpus, idx := range h.textIndexes {
		counts[string(corpus)] = idx.DocCount()
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":     "ok",
		"doc_counts": counts,
	})
}

// GraphHealth handles GET /health/graph.
func (h *HealthHandler) GraphHealth(c echo.Context) error {
	if !h.graphWired {
		return c.JSON(http.StatusServiceUnavailable, CollaboratorHealthResponse{
			Status: "not_configured",
			Detail: "knowledge-graph store is not connected",
		})
	}
	return c.JSON(http.StatusOK, CollaboratorHealthResponse{Status: "connected"})
}

// VectorHealth handles GET /health/vector, reporting which ANN backend is
// wired. Backend reachability surfaces per-request as a degraded semantic
// feature, so this check only distinguishes wired from disabled.
func (h *HealthHandler) VectorHealth(c echo.Context) error {
	if h.vectorBackend == "" {
		return c.JSON(http.StatusServiceUnavailable, CollaboratorHealthResponse{
			Status: "not_configured",
			Detail: "no vector backend wired, semantic search disabled",
		})
	}
	return c.JSON(http.StatusOK, CollaboratorHealthResponse{Status: "connected", Detail: h.vectorBackend})
}

// RegisterRoutes registers health check routes.
func (h *HealthHandler) RegisterRoutes(g *echo.Group) {
	g.GET("/health", h.Health)
	g.GET("/health/postgres", h.PostgresHealth)
	g.GET("/health/text-index", h.TextIndexHealth)
	g.GET("/health/vector", h.VectorHealth)
	g.GET("/health/graph", h.GraphHealth)
}
