package redis

import (
	"context"
	"errors"
	"time"

	"github.com/shagyeeen/cgpa-shyne/internal/domain/transcript"
)

// ══════════════════════════════════════════════════════════════════════════════
// TEXT CACHE
// ══════════════════════════════════════════════════════════════════════════════

// TextCache stores extracted document text by content digest.
// It satisfies document.TextCache. Empty text is never cached.
type TextCache struct {
	cache *Cache
	ttl   time.Duration
}

// NewTextCache creates a TextCache with the given entry TTL.
func NewTextCache(cache *Cache, ttl time.Duration) *TextCache {
	return &TextCache{cache: cache, ttl: ttl}
}

// Lookup returns cached text for digest.
func (t *TextCache) Lookup(ctx context.Context, digest string) (string, bool, error) {
	data, err := t.cache.fetch(ctx, KindText, digest)
	if errors.Is(err, ErrCacheMiss) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	if len(data) == 0 {
		// Left behind by an older writer; treat as a miss.
		_ = t.cache.Forget(ctx, KindText, digest)
		return "", false, nil
	}
	return string(data), true, nil
}

// Store caches text for digest.
func (t *TextCache) Store(ctx context.Context, digest, text string) error {
	if text == "" {
		return nil
	}
	return t.cache.put(ctx, KindText, digest, []byte(text), t.ttl)
}

// ══════════════════════════════════════════════════════════════════════════════
// SUMMARY CACHE
// ══════════════════════════════════════════════════════════════════════════════

// SummaryCache holds archived summaries. Archived rows never change, so
// entries only expire through the TTL.
type SummaryCache struct {
	cache *Cache
	ttl   time.Duration
}

// NewSummaryCache creates a SummaryCache with the given entry TTL.
func NewSummaryCache(cache *Cache, ttl time.Duration) *SummaryCache {
	return &SummaryCache{cache: cache, ttl: ttl}
}

// Get returns a cached summary. Returns ErrCacheMiss if absent.
func (s *SummaryCache) Get(ctx context.Context, id string) (*transcript.ArchivedSummary, error) {
	var out transcript.ArchivedSummary
	if err := s.cache.FetchJSON(ctx, KindSummary, id, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Set caches a summary.
func (s *SummaryCache) Set(ctx context.Context, summary *transcript.ArchivedSummary) error {
	return s.cache.PutJSON(ctx, KindSummary, summary.ID, summary, s.ttl)
}
