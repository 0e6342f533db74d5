package fusion

import (
	"sort"

	"github.com/sola-scriptura-search-api/internal/model"
)

// KRRF is the reciprocal-rank-fusion smoothing constant shared by every
// subquery's contribution.
const KRRF = 60.0

// WeightedList pairs one subquery's already rank-ordered, per-corpus fused
// RankedList (the output of Standard, run once per subquery) with the
// weight the Orchestrator assigned to that subquery — 1.0 for the original
// query, the configured expanded-query weight otherwise. Rank is taken from
// each Hit's position in List.Hits (1-indexed).
type WeightedList struct {
	Weight float64
	List   model.RankedList
}

// RRF combines N+1 per-subquery fused lists for one corpus (the original
// query's list plus each expanded subquery's list) into a single RankedList
// scored in rrf space. Documents absent from
// a given subquery's list contribute zero for that term. Ties are broken by
// the original query's rank (lists[0] by convention), then by canonical-ID
// lexicographic order.
func RRF(corpus model.Corpus, lists []WeightedList) model.RankedList {
	type accum struct {
		hit          model.Hit
		score        float64
		originalRank int // 0 = not present in the original query's list
	}
	byID := make(map[string]*accum)

	for li, wl := range lists {
		for rank, h := range wl.List.Hits {
			rank := rank + 1
			contribution := wl.Weight / (KRRF + float64(rank))
			if existing, ok := byID[h.DocID]; ok {
				existing.score += contribution
			} else {
				byID[h.DocID] = &accum{hit: h, score: contribution}
			}
			if li == 0 {
				byID[h.DocID].originalRank = rank
			}
		}
	}

	hits := make([]model.Hit, 0, len(byID))
	for _, a := range byID {
		hit := a.hit
		hit.Corpus = corpus
		hit.FusedScore = a.score
		hit.ScoreKind = model.ScoreRRF
		hits = append(hits, hit)
	}

	originalRankOf := make(map[string]int, len(byID))
	for id, a := range byID {
		originalRankOf[id] = a.originalRank
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].FusedScore != hits[j].FusedScore {
			return hits[i].FusedScore > hits[j].FusedScore
		}
		ri, rj := originalRankOf[hits[i].DocID], originalRankOf[hits[j].DocID]
		switch {
		case ri == 0 && rj == 0:
			return hits[i].DocID < hits[j].DocID
		case ri == 0:
			return false
		case rj == 0:
			return true
		case ri != rj:
			return ri < rj
		default:
			return hits[i].DocID < hits[j].DocID
		}
	})

	return model.RankedList{Corpus: corpus, ScoreKind: model.ScoreRRF, Hits: hits}
}
