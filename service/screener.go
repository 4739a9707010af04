package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dnldd/impulse/database"
	"github.com/dnldd/impulse/metrics"
	"github.com/dnldd/impulse/score"
	"github.com/dnldd/impulse/shared"
	"github.com/go-co-op/gocron"
	"github.com/rs/zerolog"
	"go.uber.org/atomic"
)

const (
	// DefaultSchedule screens the watchlist after the new york close on weekdays.
	DefaultSchedule = "30 16 * * 1-5"
	// bufferSize is the default buffer size for channels.
	bufferSize = 64
	// maxWorkers is the maximum number of concurrent reviews.
	maxWorkers = 4
	// persistTimeout bounds persisting a reviewed card.
	persistTimeout = time.Second * 10
)

// ReviewFunc evaluates the score card of a market.
type ReviewFunc func(ctx context.Context, market string) (*score.Card, error)

// ScreenerConfig represents the configuration of the watchlist screener.
type ScreenerConfig struct {
	// Markets represents the watchlist.
	Markets []string
	// Schedule is the cron expression screening runs on.
	Schedule string
	// Workers is the number of concurrent reviews.
	Workers int
	// HistorySize is the number of cards kept per market.
	HistorySize int32
	// Review evaluates the score card of a market.
	Review ReviewFunc
	// Reports persists reviewed cards, optional.
	Reports database.ReportStorer
	// Metrics records screener metrics.
	Metrics *metrics.Metrics
	// Location is the timezone the schedule runs in.
	Location *time.Location
	// Logger represents the application logger.
	Logger *zerolog.Logger
}

// Validate asserts the config sane inputs.
func (cfg *ScreenerConfig) Validate() error {
	var errs error

	if len(cfg.Markets) == 0 {
		errs = errors.Join(errs, fmt.Errorf("no markets provided for screener"))
	}
	if cfg.Review == nil {
		errs = errors.Join(errs, fmt.Errorf("review function cannot be nil"))
	}
	if cfg.Metrics == nil {
		errs = errors.Join(errs, fmt.Errorf("metrics cannot be nil"))
	}
	if cfg.Logger == nil {
		errs = errors.Join(errs, fmt.Errorf("logger cannot be nil"))
	}

	return errs
}

// Screener periodically reviews the watchlist through a bounded worker pool.
type Screener struct {
	cfg          *ScreenerConfig
	jobScheduler *gocron.Scheduler
	reviews      chan string
	workers      chan struct{}
	history      map[string]*CardHistory
	reviewed     atomic.Int32
	failed       atomic.Int32
	wg           sync.WaitGroup
}

// NewScreener initializes a watchlist screener.
func NewScreener(cfg *ScreenerConfig) (*Screener, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, err
	}

	if cfg.Schedule == "" {
		cfg.Schedule = DefaultSchedule
	}
	if cfg.Workers <= 0 || cfg.Workers > maxWorkers {
		cfg.Workers = maxWorkers
	}
	if cfg.HistorySize <= 0 {
		cfg.HistorySize = HistorySize
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}

	history := make(map[string]*CardHistory, len(cfg.Markets))
	for _, market := range cfg.Markets {
		h, err := NewCardHistory(cfg.HistorySize)
		if err != nil {
			return nil, fmt.Errorf("creating %s card history: %w", market, err)
		}
		history[market] = h
	}

	s := &Screener{
		cfg:          cfg,
		jobScheduler: gocron.NewScheduler(cfg.Location),
		reviews:      make(chan string, bufferSize),
		workers:      make(chan struct{}, cfg.Workers),
		history:      history,
	}

	_, err = s.jobScheduler.Cron(cfg.Schedule).Do(s.ScreenAll)
	if err != nil {
		return nil, fmt.Errorf("scheduling screener with '%s': %w", cfg.Schedule, err)
	}

	return s, nil
}

// SendReview queues a review of the provided market. It reports whether the review was queued.
func (s *Screener) SendReview(market string) bool {
	select {
	case s.reviews <- market:
		s.cfg.Metrics.ScreenerPending.Inc()
		return true
	default:
		s.cfg.Metrics.ScreenerDrops.Inc()
		s.cfg.Logger.Error().Msgf("review channel at capacity: %d/%d", len(s.reviews), bufferSize)
		return false
	}
}

// ScreenAll queues a review of every watchlist market.
func (s *Screener) ScreenAll() {
	s.cfg.Metrics.ScreenerRuns.Inc()
	for _, market := range s.cfg.Markets {
		s.SendReview(market)
	}
}

// handleReview reviews the provided market, recording and persisting its card.
func (s *Screener) handleReview(ctx context.Context, market string) {
	defer s.cfg.Metrics.ScreenerPending.Dec()

	card, err := s.cfg.Review(ctx, market)
	if err != nil {
		s.failed.Inc()
		s.cfg.Logger.Error().Msgf("reviewing %s: %v", market, err)
		return
	}

	s.reviewed.Inc()
	if failed := card.Failed(); failed > 0 {
		s.cfg.Logger.Info().Msgf("%s reviewed with %d/%d failed signals", market, failed, len(card.Outcomes))
	}

	h, ok := s.history[market]
	if ok && !h.Update(card) {
		s.cfg.Logger.Info().Msgf("%s card for %s is older than its history", market,
			card.Date.Format(shared.DayLayout))
	}

	if s.cfg.Reports == nil {
		return
	}

	persistCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()

	err = s.cfg.Reports.PersistCard(persistCtx, card)
	s.cfg.Metrics.ReportsPersisted.WithLabelValues(metrics.Result(err)).Inc()
	if err != nil {
		s.cfg.Logger.Error().Msgf("persisting %s card: %v", market, err)
	}
}

// History returns up to the last n cards of a watchlist market, newest first.
func (s *Screener) History(market string, n int32) ([]*score.Card, bool) {
	h, ok := s.history[market]
	if !ok {
		return nil, false
	}

	return h.LastN(n), true
}

// Latest returns the most recent card of a watchlist market.
func (s *Screener) Latest(market string) (*score.Card, bool) {
	h, ok := s.history[market]
	if !ok {
		return nil, false
	}

	card := h.Last()
	return card, card != nil
}

// Stats returns the number of successful and failed reviews.
func (s *Screener) Stats() (int32, int32) {
	return s.reviewed.Load(), s.failed.Load()
}

// drain discards queued reviews that will not be handled.
func (s *Screener) drain() {
	var dropped int
	for {
		select {
		case <-s.reviews:
			s.cfg.Metrics.ScreenerPending.Dec()
			dropped++
		default:
			if dropped > 0 {
				s.cfg.Logger.Info().Msgf("discarded %d queued reviews on shutdown", dropped)
			}
			return
		}
	}
}

// Run manages the lifecycle processes of the screener.
func (s *Screener) Run(ctx context.Context) {
	s.jobScheduler.StartAsync()

	for {
		select {
		case <-ctx.Done():
			s.jobScheduler.Stop()
			s.drain()
			s.wg.Wait()
			return

		case market := <-s.reviews:
			s.workers <- struct{}{}
			s.wg.Add(1)
			go func(market string) {
				defer func() {
					<-s.workers
					s.wg.Done()
				}()
				s.handleReview(ctx, market)
			}(market)
		}
	}
}
