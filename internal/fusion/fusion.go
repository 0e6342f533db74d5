// Package fusion normalizes and combines per-corpus keyword and semantic
// RankedLists into a single ranked list, under one of two modes: a
// weighted linear combination for single-query searches and reciprocal
// rank fusion across expanded subqueries for refine searches.
package fusion

import (
	"sort"

	"github.com/sola-scriptura-search-api/internal/model"
)

// normK is the BM25-score normalization constant: keyword_norm =
// raw_bm25/(raw_bm25+normK).
const normK = 60.0

// confirmationBoost is applied, capped at 1.0, to any document present in
// both the keyword and semantic lists under standard-mode fusion.
const confirmationBoost = 1.10

// weights holds one (semantic, keyword) policy pair.
type weights struct {
	semantic float64
	keyword  float64
}

// weightsFor selects the standard-mode policy by query shape, over the
// normalized query.
func weightsFor(q model.Query) weights {
	switch {
	case q.HasQuote():
		return weights{semantic: 0.15, keyword: 0.85}
	case q.WordCount >= 1 && q.WordCount <= 3:
		return weights{semantic: 0.70, keyword: 0.30}
	case q.WordCount >= 20:
		return weights{semantic: 0.45, keyword: 0.55}
	default:
		return weights{semantic: 0.40, keyword: 0.60}
	}
}

// Standard fuses one corpus's keyword and semantic RankedLists via the
// weighted-linear scheme: normalize each side, weight by query
// shape, boost confirmed (both-list) documents, sort descending with a
// canonical-ID tie-break.
func Standard(q model.Query, corpus model.Corpus, keyword, semantic model.RankedList) model.RankedList {
	w := weightsFor(q)

	type accum struct {
		hit          model.Hit
		keywordNorm  float64
		semanticNorm float64
		inKeyword    bool
		inSemantic   bool
	}
	byID := make(map[string]*accum)

	for _, h := range keyword.Hits {
		score := 0.0
		if h.KeywordScore != nil {
			score = *h.KeywordScore
		}
		norm := score / (score + normK)
		byID[h.DocID] = &accum{hit: h, keywordNorm: norm, inKeyword: true}
	}
	for _, h := range semantic.Hits {
		norm := 0.0
		if h.SemanticScore != nil {
			norm = *h.SemanticScore
		}
		if existing, ok := byID[h.DocID]; ok {
			existing.semanticNorm = norm
			existing.inSemantic = true
			existing.hit.SemanticScore = h.SemanticScore
			existing.hit.SemanticRank = h.SemanticRank
			if existing.hit.Payload == (model.HitPayload{}) {
				existing.hit.Payload = h.Payload
			}
		} else {
			byID[h.DocID] = &accum{hit: h, semanticNorm: norm, inSemantic: true}
		}
	}

	hits := make([]model.Hit, 0, len(byID))
	for _, a := range byID {
		var fused float64
		switch {
		case a.inKeyword && a.inSemantic:
			fused = w.semantic*a.semanticNorm + w.keyword*a.keywordNorm
			fused *= confirmationBoost
			if fused > 1.0 {
				fused = 1.0
			}
		case a.inKeyword:
			fused = a.keywordNorm
		case a.inSemantic:
			fused = a.semanticNorm
		}
		hit := a.hit
		hit.Corpus = corpus
		hit.FusedScore = fused
		hit.ScoreKind = model.ScoreFusedWeighted
		hits = append(hits, hit)
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].FusedScore != hits[j].FusedScore {
			return hits[i].FusedScore > hits[j].FusedScore
		}
		return tieBreak(hits[i], hits[j])
	})

	return model.RankedList{Corpus: corpus, ScoreKind: model.ScoreFusedWeighted, Hits: hits}
}

// tieBreak implements the de-duplication/ordering tie-break: the Hit with a
// lower (better) semantic_rank wins; if neither has one, fall back to
// canonical-ID lexicographic order for determinism.
func tieBreak(a, b model.Hit) bool {
	switch {
	case a.SemanticRank != nil && b.SemanticRank != nil:
		return *a.SemanticRank < *b.SemanticRank
	case a.SemanticRank != nil:
		return true
	case b.SemanticRank != nil:
		return false
	default:
		return a.DocID < b.DocID
	}
}

// Dedupe collapses duplicate DocIDs within a single-corpus RankedList,
// keeping the stronger fused_score (tie-break per tieBreak). Standard and
// RRF already key by DocID so this is mostly a safety net for callers that
// merge lists from multiple sources before a final pass.
func Dedupe(list model.RankedList) model.RankedList {
	best := make(map[string]model.Hit, len(list.Hits))
	for _, h := range list.Hits {
		existing, ok := best[h.DocID]
		if !ok || h.FusedScore > existing.FusedScore || (h.FusedScore == existing.FusedScore && tieBreak(h, existing)) {
			best[h.DocID] = h
		}
	}
	hits := make([]model.Hit, 0, len(best))
	for _, h := range best {
		hits = append(hits, h)
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].FusedScore != hits[j].FusedScore {
			return hits[i].FusedScore > hits[j].FusedScore
		}
		return tieBreak(hits[i], hits[j])
	})
	return model.RankedList{Corpus: list.Corpus, ScoreKind: list.ScoreKind, Hits: hits}
}
