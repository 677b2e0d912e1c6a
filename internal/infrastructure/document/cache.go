package document

import (
	"context"

	"github.com/shagyeeen/cgpa-shyne/pkg/logger"
)

// TextExtractor is the contract shared by Extractor and CachedExtractor.
type TextExtractor interface {
	ExtractText(ctx context.Context, name string, data []byte) (string, error)
}

// TextCache stores extracted text by content digest.
type TextCache interface {
	Lookup(ctx context.Context, digest string) (text string, found bool, err error)
	Store(ctx context.Context, digest, text string) error
}

// CachedExtractor consults a TextCache before delegating to the wrapped
// extractor. Cache failures are logged and never fail the extraction.
type CachedExtractor struct {
	next   TextExtractor
	cache  TextCache
	logger *logger.Logger
}

// NewCachedExtractor wraps next with cache.
func NewCachedExtractor(next TextExtractor, cache TextCache, log *logger.Logger) *CachedExtractor {
	if log == nil {
		log = logger.Nop()
	}
	return &CachedExtractor{
		next:   next,
		cache:  cache,
		logger: log.With(logger.Component("document_cache")),
	}
}

// ExtractText implements TextExtractor.
func (c *CachedExtractor) ExtractText(ctx context.Context, name string, data []byte) (string, error) {
	digest := Digest(data)

	text, found, err := c.cache.Lookup(ctx, digest)
	switch {
	case err != nil:
		c.logger.Warn("text cache lookup failed", logger.DocumentName(name), logger.Err(err))
	case found:
		c.logger.Debug("text cache hit", logger.DocumentName(name))
		return text, nil
	}

	text, err = c.next.ExtractText(ctx, name, data)
	if err != nil {
		return "", err
	}

	if err := c.cache.Store(ctx, digest, text); err != nil {
		c.logger.Warn("text cache store failed", logger.DocumentName(name), logger.Err(err))
	}

	return text, nil
}
