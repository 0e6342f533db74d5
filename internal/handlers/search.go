package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/sola-scriptura-search-api/internal/config"
	"github.com/sola-scriptura-search-api/internal/model"
	"github.com/sola-scriptura-search-api/internal/orchestrator"
)

// SearchHandler binds the search endpoint's query parameters onto an
// orchestrator.Request and runs the pipeline.
type SearchHandler struct {
	orch *orchestrator.Orchestrator
	cfg  *config.Config
}

// NewSearchHandler creates a new search handler.
func NewSearchHandler(orch *orchestrator.Orchestrator, cfg *config.Config) *SearchHandler {
	return &SearchHandler{orch: orch, cfg: cfg}
}

// Search handles GET /search.
// Boolean corpus gates, unlike the numeric limits, carry asymmetric
// defaults (quran/hadith on, books off), so they are parsed here rather
// than left to the orchestrator's zero-value defaulting.
func (h *SearchHandler) Search(c echo.Context) error {
	q := strings.TrimSpace(c.QueryParam("q"))
	if len([]rune(q)) < 2 {
		return echo.NewHTTPError(http.StatusBadRequest, "q must be at least 2 characters")
	}
	if mode := c.QueryParam("mode"); mode != "" && mode != "hybrid" {
		return echo.NewHTTPError(http.StatusBadRequest, "mode must be hybrid")
	}

	req := orchestrator.Request{
		Query:             q,
		Refine:            queryBool(c, "refine", false),
		IncludeQuran:      queryBool(c, "includeQuran", true),
		IncludeHadith:     queryBool(c, "includeHadith", true),
		IncludeBooks:      queryBool(c, "includeBooks", false),
		RerankerModel:     c.QueryParam("reranker"),
		HadithCollections: queryList(c, "hadithCollections"),
		EmbeddingModel:    queryDefault(c, "embeddingModel", "gemini"),
		ExpansionModel:    queryDefault(c, "queryExpansionModel", "gpt-oss-120b"),
		QuranTranslation:  queryDefault(c, "quranTranslation", h.cfg.DefaultQuranTranslation),
		HadithTranslation: queryDefault(c, "hadithTranslation", h.cfg.DefaultHadithTranslation),
	}

	var err error
	if req.Limit, err = queryIntErr(c, "limit", h.cfg.DefaultLimit); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "limit must be an integer")
	}
	if req.SimilarityCutoff, err = queryFloat(c, "similarityCutoff", h.cfg.DefaultSimilarityCutoff); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "similarityCutoff must be a number")
	}
	if req.RefineSimilarityCutoff, err = queryFloat(c, "refineSimilarityCutoff", h.cfg.DefaultRefineSimilarityCutoff); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "refineSimilarityCutoff must be a number")
	}
	if req.PreRerankLimit, err = queryIntErr(c, "preRerankLimit", h.cfg.DefaultPreRerankLimit); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "preRerankLimit must be an integer")
	}
	if req.PostRerankLimit, err = queryIntErr(c, "postRerankLimit", h.cfg.DefaultPostRerankLimit); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "postRerankLimit must be an integer")
	}

	if req.RerankerModel == "" {
		if req.Refine {
			req.RerankerModel = "gpt-oss-120b"
		} else {
			req.RerankerModel = "none"
		}
	}

	resp, err := h.orch.Search(c.Request().Context(), req)
	if err != nil {
		if errors.Is(err, orchestrator.ErrQueryTooShort) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		// Every other stage degrades instead of erroring; a non-Input error
		// here means an unexpected panic was recovered upstream.
		return echo.NewHTTPError(http.StatusInternalServerError, "search failed")
	}

	// A degraded response is still a 200. The one exception: every search
	// backend AND the graph failed, so there is nothing left to render.
	if totalFailure(resp) {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "all search backends unavailable")
	}

	return c.JSON(http.StatusOK, resp)
}

// totalFailure reports whether both search backends and the graph store
// failed while producing zero hits of any kind.
func totalFailure(resp *model.SearchResponse) bool {
	if len(resp.QuranHits)+len(resp.HadithHits)+len(resp.BookHits) > 0 {
		return false
	}
	failed := make(map[string]bool, len(resp.DebugStats.DegradedFeatures))
	for _, f := range resp.DebugStats.DegradedFeatures {
		failed[f] = true
	}
	return failed["keyword"] && failed["semantic"] && failed["graph"]
}

// RegisterRoutes registers search routes.
func (h *SearchHandler) RegisterRoutes(g *echo.Group) {
	g.GET("/search", h.Search)
}

func queryBool(c echo.Context, name string, def bool) bool {
	v := c.QueryParam(name)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func queryDefault(c echo.Context, name, def string) string {
	if v := c.QueryParam(name); v != "" {
		return v
	}
	return def
}

func queryIntErr(c echo.Context, name string, def int) (int, error) {
	v := c.QueryParam(name)
	if v == "" {
		return def, nil
	}
	return strconv.Atoi(v)
}

func queryFloat(c echo.Context, name string, def float64) (float64, error) {
	v := c.QueryParam(name)
	if v == "" {
		return def, nil
	}
	return strconv.ParseFloat(v, 64)
}

func queryList(c echo.Context, name string) []string {
	v := c.QueryParam(name)
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
