package portfolio

import (
	"errors"
	"io/fs"
	"log/slog"

	"github.com/couchcryptid/climate-stress-service/internal/domain"
)

// Source records where a loaded book came from.
type Source string

const (
	SourceCache     Source = "cache"
	SourceGenerated Source = "generated"
)

// Store returns the cached book when one exists and otherwise generates and
// caches a new one.
type Store struct {
	cache     *Cache
	generator *Generator
	size      int
	logger    *slog.Logger
}

// NewStore wires a cache to a generator. size is the number of loans drawn
// when the cache is absent or unreadable.
func NewStore(cache *Cache, generator *Generator, size int, logger *slog.Logger) *Store {
	if size <= 0 {
		size = DefaultSize
	}
	return &Store{
		cache:     cache,
		generator: generator,
		size:      size,
		logger:    logger,
	}
}

// LoadOrGenerate returns the cached book unchanged when it loads cleanly.
// A missing or malformed cache is replaced by a freshly generated book.
// Failing to write the new cache is only logged; the generated book is still
// served for the life of the process.
func (s *Store) LoadOrGenerate() ([]domain.PortfolioRow, Source) {
	rows, err := s.cache.Load()
	if err == nil {
		s.logger.Info("portfolio loaded from cache", "path", s.cache.Path(), "loans", len(rows))
		return rows, SourceCache
	}

	switch {
	case errors.Is(err, fs.ErrNotExist):
		s.logger.Info("portfolio cache not found, generating", "path", s.cache.Path())
	case errors.Is(err, ErrMalformedCache):
		s.logger.Warn("portfolio cache malformed, regenerating", "path", s.cache.Path(), "error", err)
	default:
		s.logger.Warn("portfolio cache unreadable, regenerating", "path", s.cache.Path(), "error", err)
	}

	return s.Regenerate()
}

// Regenerate draws a new book and overwrites the cache.
func (s *Store) Regenerate() ([]domain.PortfolioRow, Source) {
	rows := s.generator.Generate(s.size)
	if err := s.cache.Save(rows); err != nil {
		s.logger.Error("failed to write portfolio cache", "path", s.cache.Path(), "error", err)
	} else {
		s.logger.Info("portfolio generated and cached", "path", s.cache.Path(), "loans", len(rows))
	}
	return rows, SourceGenerated
}
