package textindex

import (
	"fmt"

	"github.com/sola-scriptura-search-api/internal/model"
)

// Set bundles one Index per corpus, the unit the orchestrator and the
// health checks depend on rather than three loose variables.
type Set struct {
	Quran  *Index
	Hadith *Index
	Book   *Index
}

// OpenSet opens one Bleve index per corpus under baseDir/<corpus>. An empty
// baseDir opens three in-memory indexes.
func OpenSet(baseDir string) (*Set, error) {
	path := func(corpus model.Corpus) string {
		if baseDir == "" {
			return ""
		}
		return baseDir + "/" + string(corpus)
	}

	quran, err := Open(model.CorpusQuran, path(model.CorpusQuran))
	if err != nil {
		return nil, err
	}
	hadith, err := Open(model.CorpusHadith, path(model.CorpusHadith))
	if err != nil {
		_ = quran.Close()
		return nil, err
	}
	book, err := Open(model.CorpusBook, path(model.CorpusBook))
	if err != nil {
		_ = quran.Close()
		_ = hadith.Close()
		return nil, err
	}

	return &Set{Quran: quran, Hadith: hadith, Book: book}, nil
}

// For returns the Index backing corpus.
func (s *Set) For(corpus model.Corpus) (*Index, error) {
	switch corpus {
	case model.CorpusQuran:
		return s.Quran, nil
	case model.CorpusHadith:
		return s.Hadith, nil
	case model.CorpusBook:
		return s.Book, nil
	default:
		return nil, fmt.Errorf("textindex: unknown corpus %q", corpus)
	}
}

// Close closes all three indexes, returning the first error encountered.
func (s *Set) Close() error {
	var firstErr error
	for _, idx := range []*Index{s.Quran, s.Hadith, s.Book} {
		if err := idx.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Healthy reports whether all three indexes are reachable (Bleve indexes
// fail closed, not by error, so "reachable" here means "not closed").
func (s *Set) Healthy() bool {
	for _, idx := range []*Index{s.Quran, s.Hadith, s.Book} {
		idx.mu.RLock()
		closed := idx.closed
		idx.mu.RUnlock()
		if closed {
			return false
		}
	}
	return true
}
