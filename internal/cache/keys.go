package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// FingerprintKey builds a deterministic SHA-256 cache key from an ordered
// list of parts, e.g. (normalized query, model id, prompt version). Parts
// are NUL-separated so adjacent fields can never collide.
func FingerprintKey(parts ...string) string {
	h := sha256.New()
	for i, p := range parts {
		if i > 0 {
			h.Write([]byte{0})
		}
		h.Write([]byte(p))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// TranslationKey builds the (corpus, canonical_id, target_language) key for
// the translation lookup cache.
func TranslationKey(corpus, canonicalID, targetLanguage string) string {
	return strings.Join([]string{corpus, canonicalID, targetLanguage}, "\x00")
}

// EnrichmentKey builds the (technique_id, content_type, content_id) key for
// the offline LLM-enrichment cache.
func EnrichmentKey(techniqueID, contentType, contentID string) string {
	return strings.Join([]string{techniqueID, contentType, contentID}, "\x00")
}
