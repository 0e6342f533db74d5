// Package orchestrator is the top-level state machine that turns one raw
// query into a SearchResponse: normalize, probe the direct-match
// dictionary, then run either the standard weighted-fusion pipeline or
// the refine pipeline (query expansion, per-subquery fan-out,
// cross-subquery RRF, cross-corpus rerank), attach knowledge-graph
// context, and assemble the response with per-stage DebugStats.
package orchestrator

import (
	"context"
	"errors"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/sola-scriptura-search-api/internal/directmatch"
	"github.com/sola-scriptura-search-api/internal/expand"
	"github.com/sola-scriptura-search-api/internal/fusion"
	"github.com/sola-scriptura-search-api/internal/graph"
	"github.com/sola-scriptura-search-api/internal/model"
	"github.com/sola-scriptura-search-api/internal/normalize"
	"github.com/sola-scriptura-search-api/internal/rerank"
	"github.com/sola-scriptura-search-api/internal/semantic"
	"github.com/sola-scriptura-search-api/internal/textindex"
	"github.com/sola-scriptura-search-api/internal/translate"
)

// ErrQueryTooShort is the one Input-kind failure the orchestrator itself
// can raise; every other collaborator failure degrades the response
// instead of erroring it.
var ErrQueryTooShort = errors.New("orchestrator: query must be at least 2 non-space characters")

// allCorpora is the fixed iteration order used whenever corpora must be
// visited deterministically (fan-out indexing, cross-corpus candidate
// pooling).
var allCorpora = []model.Corpus{model.CorpusQuran, model.CorpusHadith, model.CorpusBook}

// Config bundles the orchestrator's collaborators plus the request
// defaults from the search endpoint's parameter table. Any collaborator
// left nil degrades the stage it backs rather than panicking.
type Config struct {
	TextIndexes  map[model.Corpus]*textindex.Index
	Semantic     *semantic.Searcher
	Expander     *expand.Expander
	Reranker     *rerank.Reranker
	Graph        *graph.Resolver
	Translations *translate.Service

	StandardDeadline  time.Duration
	RefineDeadline    time.Duration
	RefineConcurrency int

	DefaultLimit                  int
	DefaultSimilarityCutoff       float64
	DefaultRefineSimilarityCutoff float64
	DefaultPreRerankLimit         int
	DefaultPostRerankLimit        int
	ExpandedQueryWeight           float64
}

// Orchestrator is the process-wide search entry point.
type Orchestrator struct {
	cfg  Config
	dict *directmatch.Dictionary
}

// New creates an Orchestrator over cfg. cfg's zero-valued deadlines and
// limits are filled with the documented defaults.
func New(cfg Config) *Orchestrator {
	if cfg.StandardDeadline <= 0 {
		cfg.StandardDeadline = 15 * time.Second
	}
	if cfg.RefineDeadline <= 0 {
		cfg.RefineDeadline = 30 * time.Second
	}
	if cfg.RefineConcurrency <= 0 {
		cfg.RefineConcurrency = 15
	}
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = 20
	}
	if cfg.DefaultSimilarityCutoff <= 0 {
		cfg.DefaultSimilarityCutoff = 0.60
	}
	if cfg.DefaultRefineSimilarityCutoff <= 0 {
		cfg.DefaultRefineSimilarityCutoff = 0.25
	}
	if cfg.DefaultPreRerankLimit <= 0 {
		cfg.DefaultPreRerankLimit = 70
	}
	if cfg.DefaultPostRerankLimit <= 0 {
		cfg.DefaultPostRerankLimit = 10
	}
	if cfg.ExpandedQueryWeight <= 0 {
		cfg.ExpandedQueryWeight = 1.0
	}
	return &Orchestrator{cfg: cfg, dict: directmatch.Get()}
}

// Request is the bound, not-yet-defaulted form of the search endpoint's
// parameters.
type Request struct {
	Query  string
	Refine bool

	IncludeQuran  bool
	IncludeHadith bool
	IncludeBooks  bool

	Limit                  int
	RerankerModel          string // "none" disables cross-corpus rerank; "" does not
	SimilarityCutoff       float64
	RefineSimilarityCutoff float64
	PreRerankLimit         int
	PostRerankLimit        int
	HadithCollections      []string

	// EmbeddingModel and ExpansionModel are bound from the request but not
	// read by the pipeline; provider selection happens at startup, so a value
	// that differs from the configured provider is served by the configured one.
	EmbeddingModel string
	ExpansionModel string

	QuranTranslation  string
	HadithTranslation string
}

// applyDefaults fills zero-valued numeric fields with the configured
// defaults. Corpus-gate booleans are not defaulted here: the endpoint
// gives them asymmetric defaults (quran/hadith on, books off), so the
// handler binds them explicitly before this ever sees the request.
func (o *Orchestrator) applyDefaults(req Request) Request {
	if req.Limit <= 0 {
		req.Limit = o.cfg.DefaultLimit
	}
	if req.SimilarityCutoff <= 0 {
		req.SimilarityCutoff = o.cfg.DefaultSimilarityCutoff
	}
	if req.RefineSimilarityCutoff <= 0 {
		req.RefineSimilarityCutoff = o.cfg.DefaultRefineSimilarityCutoff
	}
	if req.PreRerankLimit <= 0 {
		req.PreRerankLimit = o.cfg.DefaultPreRerankLimit
	}
	if req.PostRerankLimit <= 0 {
		req.PostRerankLimit = o.cfg.DefaultPostRerankLimit
	}
	return req
}

func (o *Orchestrator) enabledCorpora(req Request) []model.Corpus {
	out := make([]model.Corpus, 0, 3)
	for _, c := range allCorpora {
		switch c {
		case model.CorpusQuran:
			if req.IncludeQuran {
				out = append(out, c)
			}
		case model.CorpusHadith:
			if req.IncludeHadith {
				out = append(out, c)
			}
		case model.CorpusBook:
			if req.IncludeBooks {
				out = append(out, c)
			}
		}
	}
	return out
}

func elapsedMS(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000.0
}

// Search runs the full pipeline for one request: NORMALIZE, DIRECT_MATCH
// PROBE, the standard or refine branch, GRAPH_ATTACH, then assembly. It
// returns an error only for the one Input-kind failure (a too-short query);
// every optional collaborator's failure is folded into DebugStats instead.
func (o *Orchestrator) Search(ctx context.Context, req Request) (*model.SearchResponse, error) {
	req = o.applyDefaults(req)
	if len([]rune(strings.TrimSpace(req.Query))) < 2 {
		return nil, ErrQueryTooShort
	}

	deadline := o.cfg.StandardDeadline
	if req.Refine {
		deadline = o.cfg.RefineDeadline
	}
	ctx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	stats := &model.DebugStats{RefineMode: req.Refine}
	totalStart := time.Now()

	normStart := time.Now()
	q := normalize.BuildQuery(req.Query)
	stats.NormalizeMS = elapsedMS(normStart)

	corpora := o.enabledCorpora(req)
	if len(corpora) == 0 {
		stats.AddDegraded("no_corpora_enabled")
	}

	dmStart := time.Now()
	directHits := o.dict.Lookup(q.Normalized)
	stats.DirectMatchMS = elapsedMS(dmStart)
	stats.DirectMatch = len(directHits) > 0

	var perCorpus map[model.Corpus]model.RankedList
	var expandedQueries []model.ExpandedQuery
	switch {
	case len(corpora) == 0:
		perCorpus = map[model.Corpus]model.RankedList{}
	case req.Refine:
		perCorpus, expandedQueries = o.runRefine(ctx, q, req, corpora, stats)
	default:
		perCorpus = o.runStandard(ctx, q, req, corpora, stats)
	}
	markTimeout(ctx, stats, "search_fanout")

	statistical := make(map[model.Corpus][]model.Hit, len(corpora))
	for _, c := range corpora {
		statistical[c] = perCorpus[c].Hits
	}

	if req.Refine && req.RerankerModel != "none" {
		statistical = o.crossCorpusRerank(ctx, q, statistical, req, stats)
		markTimeout(ctx, stats, "rerank")
	}

	// Direct-match hits are prepended after all statistical reordering so
	// they always lead the final list, with the statistical duplicate of
	// the same canonical ID suppressed.
	merged := make(map[model.Corpus][]model.Hit, len(corpora))
	for _, c := range corpora {
		limit := req.Limit
		if req.Refine {
			limit = req.PostRerankLimit
		}
		hits := mergeDirectMatch(directHits, statistical[c], c)
		if len(hits) > limit {
			hits = hits[:limit]
		}
		for i := range hits {
			hits[i].Rank = i + 1
		}
		merged[c] = hits
	}

	authors := o.attachTranslations(ctx, merged, req, stats)

	graphStart := time.Now()
	graphCtx := o.attachGraph(ctx, q, stats)
	stats.GraphAttachMS = elapsedMS(graphStart)
	markTimeout(ctx, stats, "graph_attach")

	stats.TotalMS = elapsedMS(totalStart)
	checkTimingAttribution(stats)

	resp := &model.SearchResponse{
		QuranHits:       merged[model.CorpusQuran],
		HadithHits:      merged[model.CorpusHadith],
		BookHits:        merged[model.CorpusBook],
		Authors:         authors,
		GraphContext:    graphCtx,
		DebugStats:      *stats,
		ExpandedQueries: expandedQueries,
	}
	ensureNonNil(resp)
	return resp, nil
}

// ensureNonNil replaces nil hit slices with empty ones so disabled or
// failed corpora serialize as [] rather than null.
func ensureNonNil(resp *model.SearchResponse) {
	if resp.QuranHits == nil {
		resp.QuranHits = []model.Hit{}
	}
	if resp.HadithHits == nil {
		resp.HadithHits = []model.Hit{}
	}
	if resp.BookHits == nil {
		resp.BookHits = []model.Hit{}
	}
}

// markTimeout records stage as timed out if the request deadline has
// already expired by the time the stage handed back control.
func markTimeout(ctx context.Context, stats *model.DebugStats, stage string) {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		stats.AddTimedOut(stage)
	}
}

// checkTimingAttribution flags a suspected timing-attribution bug when the
// per-stage wall-clock sum drifts more than 5% from total wall time.
func checkTimingAttribution(stats *model.DebugStats) {
	if stats.TotalMS <= 0 {
		return
	}
	drift := math.Abs(stats.StageSumMS()-stats.TotalMS) / stats.TotalMS
	if drift > 0.05 {
		log.Warn().
			Float64("stage_sum_ms", stats.StageSumMS()).
			Float64("total_ms", stats.TotalMS).
			Msg("stage timings drift from total wall time, suspected attribution bug")
	}
}

// mergeDirectMatch prepends this corpus's direct-match hits (score_kind
// "direct") ahead of the statistical tail, dropping any statistical hit
// whose DocID a direct-match hit already covers so the same document never
// appears twice.
func mergeDirectMatch(directHits []model.Hit, statistical []model.Hit, corpus model.Corpus) []model.Hit {
	var ours []model.Hit
	seen := make(map[string]struct{})
	for _, h := range directHits {
		if h.Corpus != corpus {
			continue
		}
		ours = append(ours, h)
		seen[h.DocID] = struct{}{}
	}
	if len(ours) == 0 {
		return statistical
	}
	out := make([]model.Hit, 0, len(ours)+len(statistical))
	out = append(out, ours...)
	for _, h := range statistical {
		if _, dup := seen[h.DocID]; dup {
			continue
		}
		out = append(out, h)
	}
	return out
}

// runStandard implements the standard-mode branch: one keyword search and
// one semantic search per corpus, both sides running concurrently, fused
// with fusion.Standard per corpus once the slowest search completes.
func (o *Orchestrator) runStandard(ctx context.Context, q model.Query, req Request, corpora []model.Corpus, stats *model.DebugStats) map[model.Corpus]model.RankedList {
	fanoutStart := time.Now()

	var keywordLists, semanticLists map[model.Corpus]model.RankedList
	var keywordFailed, semanticFailed bool
	var g errgroup.Group
	g.Go(func() error {
		kwStart := time.Now()
		keywordLists, keywordFailed = o.searchKeyword(ctx, q, req.Limit, req.HadithCollections, corpora)
		stats.KeywordSearchMS = elapsedMS(kwStart)
		return nil
	})
	g.Go(func() error {
		semStart := time.Now()
		semanticLists, semanticFailed = o.searchSemantic(ctx, q, req.Limit, req.SimilarityCutoff, corpora)
		stats.SemanticSearchMS = elapsedMS(semStart)
		return nil
	})
	_ = g.Wait()
	stats.SearchFanoutMS = elapsedMS(fanoutStart)
	if keywordFailed {
		stats.AddDegraded("keyword")
	}
	if semanticFailed {
		stats.AddDegraded("semantic")
	}

	fuseStart := time.Now()
	fused := make(map[model.Corpus]model.RankedList, len(corpora))
	for _, c := range corpora {
		fused[c] = fusion.Standard(q, c, keywordLists[c], semanticLists[c])
	}
	stats.FusionMS = elapsedMS(fuseStart)
	return fused
}

func (o *Orchestrator) searchKeyword(ctx context.Context, q model.Query, limit int, hadithCollections []string, corpora []model.Corpus) (map[model.Corpus]model.RankedList, bool) {
	out := make([]model.RankedList, len(corpora))
	oks := make([]bool, len(corpora))
	var g errgroup.Group
	for i, c := range corpora {
		i, c := i, c
		g.Go(func() error {
			idx := o.cfg.TextIndexes[c]
			if idx == nil {
				out[i] = model.RankedList{Corpus: c, ScoreKind: model.ScoreRawBM25}
				return nil
			}
			opts := textindex.SearchOptions{Limit: limit}
			if c == model.CorpusHadith {
				opts.CollectionSlugs = hadithCollections
			}
			out[i], oks[i] = idx.Search(ctx, q.Normalized, opts)
			return nil
		})
	}
	_ = g.Wait()
	result := make(map[model.Corpus]model.RankedList, len(corpora))
	failed := false
	for i, c := range corpora {
		result[c] = out[i]
		failed = failed || !oks[i]
	}
	return result, failed
}

func (o *Orchestrator) searchSemantic(ctx context.Context, q model.Query, limit int, baseline float64, corpora []model.Corpus) (map[model.Corpus]model.RankedList, bool) {
	result := make(map[model.Corpus]model.RankedList, len(corpora))
	if o.cfg.Semantic == nil {
		for _, c := range corpora {
			result[c] = model.RankedList{Corpus: c, ScoreKind: model.ScoreCosine}
		}
		return result, true
	}
	out := make([]model.RankedList, len(corpora))
	oks := make([]bool, len(corpora))
	var g errgroup.Group
	for i, c := range corpora {
		i, c := i, c
		g.Go(func() error {
			out[i], oks[i] = o.cfg.Semantic.Search(ctx, q, c, limit, baseline)
			return nil
		})
	}
	_ = g.Wait()
	failed := false
	for i, c := range corpora {
		result[c] = out[i]
		failed = failed || !oks[i]
	}
	return result, failed
}

// runRefine implements the refine-mode branch: EXPAND, fan out each
// subquery against each corpus (concurrency-capped), FUSE_PER_SUBQUERY,
// then CROSS_SUBQUERY_RRF per corpus.
func (o *Orchestrator) runRefine(ctx context.Context, q model.Query, req Request, corpora []model.Corpus, stats *model.DebugStats) (map[model.Corpus]model.RankedList, []model.ExpandedQuery) {
	expStart := time.Now()
	var expanded []model.ExpandedQuery
	if o.cfg.Expander != nil {
		if exp, ok := o.cfg.Expander.Expand(ctx, q); ok {
			expanded = exp
		} else {
			stats.AddDegraded("expansion")
		}
	} else {
		stats.AddDegraded("expansion")
	}
	// Weight assignment belongs to the orchestrator, not the expander:
	// every expanded subquery carries the configured refine-vote weight,
	// the original always 1.0.
	for i := range expanded {
		expanded[i].Weight = o.cfg.ExpandedQueryWeight
	}
	stats.ExpansionMS = elapsedMS(expStart)
	markTimeout(ctx, stats, "expansion")

	subQueries := make([]model.Query, 0, len(expanded)+1)
	weights := make([]float64, 0, len(expanded)+1)
	subQueries = append(subQueries, q)
	weights = append(weights, 1.0)
	for _, e := range expanded {
		subQueries = append(subQueries, normalize.BuildQuery(e.SubQuery))
		weights = append(weights, e.Weight)
	}

	type cell struct {
		subIdx   int
		corpus   model.Corpus
		keyword  model.RankedList
		semantic model.RankedList
	}

	sem := make(chan struct{}, o.cfg.RefineConcurrency)
	var wg sync.WaitGroup
	var mu sync.Mutex
	cells := make([]cell, 0, len(subQueries)*len(corpora))
	keywordFailed := false
	semanticFailed := false

	fanoutStart := time.Now()
	for si, sq := range subQueries {
		for _, c := range corpora {
			si, sq, c := si, sq, c
			wg.Add(1)
			go func() {
				defer wg.Done()
				sem <- struct{}{}
				defer func() { <-sem }()

				var kw, sv model.RankedList
				kwOK, svOK := true, true
				if idx := o.cfg.TextIndexes[c]; idx != nil {
					opts := textindex.SearchOptions{Limit: req.PreRerankLimit}
					if c == model.CorpusHadith {
						opts.CollectionSlugs = req.HadithCollections
					}
					kw, kwOK = idx.Search(ctx, sq.Normalized, opts)
				} else {
					kw = model.RankedList{Corpus: c, ScoreKind: model.ScoreRawBM25}
					kwOK = false
				}

				if o.cfg.Semantic != nil {
					sv, svOK = o.cfg.Semantic.Search(ctx, sq, c, req.PreRerankLimit, req.RefineSimilarityCutoff)
				} else {
					sv = model.RankedList{Corpus: c, ScoreKind: model.ScoreCosine}
					svOK = false
				}

				mu.Lock()
				cells = append(cells, cell{subIdx: si, corpus: c, keyword: kw, semantic: sv})
				keywordFailed = keywordFailed || !kwOK
				semanticFailed = semanticFailed || !svOK
				mu.Unlock()
			}()
		}
	}
	wg.Wait()
	stats.SearchFanoutMS = elapsedMS(fanoutStart)
	if keywordFailed {
		stats.AddDegraded("keyword")
	}
	if semanticFailed {
		stats.AddDegraded("semantic")
	}

	fuseStart := time.Now()
	bySubCorpus := make(map[int]map[model.Corpus]model.RankedList, len(subQueries))
	for _, cl := range cells {
		if bySubCorpus[cl.subIdx] == nil {
			bySubCorpus[cl.subIdx] = make(map[model.Corpus]model.RankedList, len(corpora))
		}
		bySubCorpus[cl.subIdx][cl.corpus] = fusion.Standard(subQueries[cl.subIdx], cl.corpus, cl.keyword, cl.semantic)
	}

	result := make(map[model.Corpus]model.RankedList, len(corpora))
	for _, c := range corpora {
		lists := make([]fusion.WeightedList, len(subQueries))
		for si := range subQueries {
			lists[si] = fusion.WeightedList{Weight: weights[si], List: bySubCorpus[si][c]}
		}
		result[c] = fusion.Dedupe(fusion.RRF(c, lists))
	}
	stats.FusionMS = elapsedMS(fuseStart)

	return result, expanded
}

// crossCorpusRerank pools each corpus's top preRerankLimit/len(corpora)
// candidates (in a deterministic corpus order so the prompt is stable
// across retries), sends them through the reranker once, then splits the
// permuted result back out per corpus, leaving any hit that fell outside
// the rerank window in its original relative order at the tail.
func (o *Orchestrator) crossCorpusRerank(ctx context.Context, q model.Query, merged map[model.Corpus][]model.Hit, req Request, stats *model.DebugStats) map[model.Corpus][]model.Hit {
	if o.cfg.Reranker == nil {
		stats.AddDegraded("reranker")
		return merged
	}

	corpora := make([]model.Corpus, 0, len(merged))
	for c := range merged {
		corpora = append(corpora, c)
	}
	sort.Slice(corpora, func(i, j int) bool { return corpora[i] < corpora[j] })

	perCorpusLimit := req.PreRerankLimit
	if n := len(corpora); n > 0 {
		perCorpusLimit = req.PreRerankLimit / n
		if perCorpusLimit < 1 {
			perCorpusLimit = 1
		}
	}

	candidates := make([]rerank.Candidate, 0, req.PreRerankLimit)
	windowed := make(map[model.Corpus]int, len(corpora))
	for _, c := range corpora {
		hits := merged[c]
		n := len(hits)
		if n > perCorpusLimit {
			n = perCorpusLimit
		}
		windowed[c] = n
		for _, h := range hits[:n] {
			candidates = append(candidates, rerank.Candidate{Hit: h, DisplayText: displayText(h)})
		}
	}

	rerankStart := time.Now()
	reranked := o.cfg.Reranker.Rerank(ctx, q, candidates)
	stats.RerankMS = elapsedMS(rerankStart)

	perCorpusReranked := make(map[model.Corpus][]model.Hit, len(corpora))
	for _, cand := range reranked {
		perCorpusReranked[cand.Hit.Corpus] = append(perCorpusReranked[cand.Hit.Corpus], cand.Hit)
	}

	out := make(map[model.Corpus][]model.Hit, len(merged))
	for c, hits := range merged {
		rerankedHits := perCorpusReranked[c]
		if tail := hits[windowed[c]:]; len(tail) > 0 {
			rerankedHits = append(rerankedHits, tail...)
		}
		out[c] = rerankedHits
	}
	return out
}

// displayText renders a Hit's payload as plain text for the reranker
// prompt, falling back to its DocID when the payload is unpopulated (a
// direct-match hit never carries one).
func displayText(h model.Hit) string {
	switch {
	case h.Payload.Ayah != nil:
		return h.Payload.Ayah.TextUthmani
	case h.Payload.Hadith != nil:
		return h.Payload.Hadith.TextAr
	case h.Payload.BookPage != nil:
		return h.Payload.BookPage.ContentPlain
	default:
		return h.DocID
	}
}

// attachTranslations fills the final quran/hadith hits' Translation fields
// from the stored editions the request selected, returning the translator
// credits. Translation lookup is presentational and never fails the
// request.
func (o *Orchestrator) attachTranslations(ctx context.Context, merged map[model.Corpus][]model.Hit, req Request, stats *model.DebugStats) []model.AuthorCredit {
	if o.cfg.Translations == nil {
		return nil
	}
	start := time.Now()
	authors, ok := o.cfg.Translations.Attach(ctx,
		merged[model.CorpusQuran], merged[model.CorpusHadith],
		req.QuranTranslation, req.HadithTranslation)
	stats.TranslationMS = elapsedMS(start)
	if !ok {
		stats.AddDegraded("translations")
	}
	return authors
}

// attachGraph runs GRAPH_ATTACH: searchEntities, then resolveSources over
// the flattened SourceRef list it returns. Either stage's unavailability
// degrades DebugStats but never fails the request.
func (o *Orchestrator) attachGraph(ctx context.Context, q model.Query, stats *model.DebugStats) model.GraphContext {
	if o.cfg.Graph == nil {
		stats.AddDegraded("graph")
		return model.GraphContext{}
	}

	gctx, ok := o.cfg.Graph.SearchEntities(ctx, q.Normalized)
	if !ok {
		stats.AddDegraded("graph")
		return model.GraphContext{}
	}
	if len(gctx.AllSourceRefs) == 0 {
		return gctx
	}

	resolved, ok := o.cfg.Graph.ResolveSources(ctx, gctx.AllSourceRefs)
	if !ok {
		stats.AddDegraded("graph_source_resolution")
		return gctx
	}
	gctx.ResolvedSources = resolved
	return gctx
}
