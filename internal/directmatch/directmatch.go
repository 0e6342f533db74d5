// Package directmatch is an O(1) lookup of famous verses, surah names and
// famous hadith references, bypassing statistical ranking entirely.
package directmatch

import (
	_ "embed"
	"encoding/json"
	"sync"

	"github.com/sola-scriptura-search-api/internal/model"
)

//go:embed data.json
var rawData []byte

type entry struct {
	Query  string `json:"query"`
	Corpus string `json:"corpus"`
	DocID  string `json:"doc_id"`
}

type table struct {
	Entries []entry `json:"entries"`
}

// Dictionary is the process-wide, read-only lookup table. Zero value is
// usable only via Get(); always obtain one through the package-level
// singleton.
type Dictionary struct {
	byQuery map[string][]model.Hit
}

var (
	singleton *Dictionary
	once      sync.Once
)

// Get returns the process-wide Dictionary, building it from the embedded
// data file on first use.
func Get() *Dictionary {
	once.Do(func() {
		singleton = build(rawData)
	})
	return singleton
}

func build(raw []byte) *Dictionary {
	var t table
	if err := json.Unmarshal(raw, &t); err != nil {
		// The embedded table is compiled into the binary; a parse failure
		// here is a build-time defect, not a runtime one.
		return &Dictionary{byQuery: map[string][]model.Hit{}}
	}
	d := &Dictionary{byQuery: make(map[string][]model.Hit, len(t.Entries))}
	for _, e := range t.Entries {
		hit := model.Hit{
			DocID:      e.DocID,
			Corpus:     model.Corpus(e.Corpus),
			FusedScore: 1.0,
			ScoreKind:  model.ScoreDirect,
		}
		d.byQuery[e.Query] = append(d.byQuery[e.Query], hit)
	}
	return d
}

// Lookup returns the direct-match hits for an already-normalized query.
// A miss returns nil, never an error.
func (d *Dictionary) Lookup(normalizedQuery string) []model.Hit {
	hits := d.byQuery[normalizedQuery]
	if len(hits) == 0 {
		return nil
	}
	out := make([]model.Hit, len(hits))
	copy(out, hits)
	return out
}
