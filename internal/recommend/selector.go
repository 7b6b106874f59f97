// Readmark - WeChat Library Reading Companion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/readmark

package recommend

import (
	"context"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/readmark/internal/config"
	"github.com/tomtom215/readmark/internal/logging"
	"github.com/tomtom215/readmark/internal/metrics"
	"github.com/tomtom215/readmark/internal/models"
)

// Catalog is the persistence the selector draws from. It is implemented by
// *database.DB.
type Catalog interface {
	RecommendedCallNumbers(ctx context.Context, readerID string) ([]string, error)
	BooksByCallNoPrefix(ctx context.Context, prefix string, exclude []string, limit int) ([]models.Book, error)
	RandomBooks(ctx context.Context, exclude []string, limit int) ([]models.Book, error)
	SaveRecommendations(ctx context.Context, readerID string, books []models.Book, keep int) error
}

// Result is one recommendation round.
type Result struct {
	Books []models.Book
	// Personalised is false when the history carried no classification and
	// every book was a random pick.
	Personalised bool
}

// Selector produces recommendation batches. It is safe for concurrent use.
type Selector struct {
	catalog Catalog
	parser  *Parser
	cfg     config.RecommendConfig
	logger  zerolog.Logger

	rng   *rand.Rand
	rngMu sync.Mutex
}

// Option configures a Selector.
type Option func(*Selector)

// WithSeed fixes the random source.
func WithSeed(seed int64) Option {
	return func(s *Selector) {
		s.rng = rand.New(rand.NewSource(seed)) //nolint:gosec // math/rand is fine for recommendation picks
	}
}

// WithParser replaces the default classification table.
func WithParser(p *Parser) Option {
	return func(s *Selector) {
		s.parser = p
	}
}

// NewSelector creates a selector over catalog.
func NewSelector(catalog Catalog, cfg config.RecommendConfig, opts ...Option) *Selector {
	if cfg.Count <= 0 {
		cfg.Count = 4
	}
	if cfg.CandidatePool <= 0 {
		cfg.CandidatePool = 10
	}
	if cfg.HistoryRetention <= 0 {
		cfg.HistoryRetention = 20
	}
	s := &Selector{
		catalog: catalog,
		parser:  defaultParser,
		cfg:     cfg,
		logger:  logging.WithComponent("recommend"),
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())), //nolint:gosec // math/rand is fine for recommendation picks
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Count is the batch size the selector aims for.
func (s *Selector) Count() int {
	return s.cfg.Count
}

// Recommend selects up to Count books for readerID that appear neither in
// history nor in the reader's retained recommendation history, and records
// them as a new batch.
func (s *Selector) Recommend(ctx context.Context, readerID string, history []models.LoanItem) Result {
	n := s.cfg.Count
	exclude := make(map[string]struct{})

	prior, err := s.catalog.RecommendedCallNumbers(ctx, readerID)
	if err != nil {
		s.logger.Error().Err(err).Str("reader_id", readerID).Msg("failed to load recommendation history")
	}
	for _, c := range prior {
		exclude[c] = struct{}{}
	}

	summary := s.parser.Summarize(history)
	for c := range summary.Seen {
		exclude[c] = struct{}{}
	}

	if len(summary.ClassFreq) == 0 {
		s.logger.Info().Str("reader_id", readerID).Msg("no classified loan history, recommending random books")
		books := s.random(ctx, exclude, n)
		s.save(ctx, readerID, books)
		metrics.RecordRecommendation(false, len(books))
		return Result{Books: books}
	}

	books := make([]models.Book, 0, n)
	for _, sc := range summary.Ranked() {
		// One slot always stays free for a random discovery pick.
		if len(books) >= n-1 {
			break
		}
		candidates, err := s.catalog.BooksByCallNoPrefix(ctx, sc.Subclass, keys(exclude), s.cfg.CandidatePool)
		if err != nil {
			s.logger.Error().Err(err).Str("subclass", sc.Subclass).Msg("failed to query subclass candidates")
			continue
		}
		if len(candidates) == 0 {
			continue
		}
		pick := candidates[s.intn(len(candidates))]
		books = append(books, pick)
		exclude[pick.CallNo] = struct{}{}
	}

	if len(books) < n {
		books = append(books, s.random(ctx, exclude, n-len(books))...)
	}

	s.save(ctx, readerID, books)
	metrics.RecordRecommendation(true, len(books))
	return Result{Books: books, Personalised: true}
}

func (s *Selector) random(ctx context.Context, exclude map[string]struct{}, limit int) []models.Book {
	books, err := s.catalog.RandomBooks(ctx, keys(exclude), limit)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to query random books")
		return nil
	}
	return books
}

func (s *Selector) save(ctx context.Context, readerID string, books []models.Book) {
	if len(books) == 0 {
		return
	}
	if err := s.catalog.SaveRecommendations(ctx, readerID, books, s.cfg.HistoryRetention); err != nil {
		s.logger.Error().Err(err).Str("reader_id", readerID).Msg("failed to save recommendations")
		return
	}
	s.logger.Debug().Str("reader_id", readerID).Int("count", len(books)).Msg("saved recommendation batch")
}

func (s *Selector) intn(n int) int {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	return s.rng.Intn(n)
}

// keys returns the set members sorted so queries are reproducible.
func keys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
