package tracker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/justestif/go-spotify-skip-tracker/internal/skips"
)

// Defaults for the tracking service.
const (
	DefaultSkipWindow   = 10 * time.Second
	DefaultPollInterval = 3 * time.Second
)

// ErrNothingPlaying is returned by CheckOnce when no track is playing.
var ErrNothingPlaying = errors.New("no song is playing")

// PlaybackSource returns the current playback, or nil when nothing is loaded.
type PlaybackSource interface {
	CurrentPlayback(ctx context.Context) (*Playback, error)
}

// Recorder persists detected skips.
type Recorder interface {
	RecordSkip(ctx context.Context, userID string, ev skips.Event) error
}

// Metrics counts tracker activity.
type Metrics struct {
	skipsRecorded prometheus.Counter
	pollErrors    prometheus.Counter
}

// NewMetrics creates tracker metrics registered with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		skipsRecorded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "skip_tracker_skips_recorded_total",
			Help: "Number of skips detected and stored.",
		}),
		pollErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "skip_tracker_poll_errors_total",
			Help: "Number of failed playback polls.",
		}),
	}
	reg.MustRegister(m.skipsRecorded, m.pollErrors)
	return m
}

// Service detects skips for a user and records them.
type Service struct {
	recorder     Recorder
	logger       zerolog.Logger
	metrics      *Metrics
	skipWindow   time.Duration
	pollInterval time.Duration
	endTolerance time.Duration
	now          func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithSkipWindow sets how long CheckOnce waits between its two observations.
func WithSkipWindow(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.skipWindow = d
		}
	}
}

// WithPollInterval sets the minimum time between Watch polls.
func WithPollInterval(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.pollInterval = d
		}
	}
}

// WithEndTolerance sets how close to the end a track may change without counting as a skip.
func WithEndTolerance(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.endTolerance = d
		}
	}
}

// WithLogger sets the service logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Service) {
		s.logger = l
	}
}

// WithMetrics enables metrics collection.
func WithMetrics(m *Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// New creates a tracking service.
func New(recorder Recorder, opts ...Option) *Service {
	s := &Service{
		recorder:     recorder,
		logger:       log.Logger,
		skipWindow:   DefaultSkipWindow,
		pollInterval: DefaultPollInterval,
		endTolerance: DefaultEndTolerance,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CheckResult is the outcome of CheckOnce.
type CheckResult struct {
	Playback Playback     // the track playing when the check started
	Skip     *skips.Event // non-nil if that track was skipped
}

// CheckOnce observes the current track, waits the skip window and observes
// again. If the track changed early the skip is recorded.
// Returns ErrNothingPlaying if nothing is playing at the start.
func (s *Service) CheckOnce(ctx context.Context, userID string, src PlaybackSource) (*CheckResult, error) {
	first, err := src.CurrentPlayback(ctx)
	if err != nil {
		return nil, fmt.Errorf("getting playback: %w", err)
	}
	if first == nil || !first.Playing {
		return nil, ErrNothingPlaying
	}

	d := NewDetector(s.endTolerance)
	d.Observe(s.now(), first)

	timer := time.NewTimer(s.skipWindow)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
	}

	second, err := src.CurrentPlayback(ctx)
	if err != nil {
		return nil, fmt.Errorf("getting playback: %w", err)
	}

	result := &CheckResult{Playback: *first}
	if ev := d.Observe(s.now(), second); ev != nil {
		if err := s.record(ctx, userID, *ev); err != nil {
			return nil, err
		}
		result.Skip = ev
	}
	return result, nil
}

// Watch polls playback until ctx is cancelled, recording every skip.
// Poll failures are logged and retried on the next tick.
func (s *Service) Watch(ctx context.Context, userID string, src PlaybackSource) error {
	limiter := rate.NewLimiter(rate.Every(s.pollInterval), 1)
	d := NewDetector(s.endTolerance)

	s.logger.Info().Str("user", userID).Dur("interval", s.pollInterval).Msg("watching playback")

	for {
		if err := limiter.Wait(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("waiting for next poll: %w", err)
		}

		pb, err := src.CurrentPlayback(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			s.logger.Warn().Err(err).Msg("polling playback failed")
			if s.metrics != nil {
				s.metrics.pollErrors.Inc()
			}
			continue
		}

		ev := d.Observe(s.now(), pb)
		if ev == nil {
			continue
		}
		if err := s.record(ctx, userID, *ev); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			s.logger.Error().Err(err).Str("track", ev.TrackID).Msg("recording skip failed")
		}
	}
}

// record persists a skip and updates metrics.
func (s *Service) record(ctx context.Context, userID string, ev skips.Event) error {
	if err := s.recorder.RecordSkip(ctx, userID, ev); err != nil {
		return fmt.Errorf("recording skip: %w", err)
	}
	if s.metrics != nil {
		s.metrics.skipsRecorded.Inc()
	}
	s.logger.Info().
		Str("user", userID).
		Str("track", ev.TrackID).
		Str("name", ev.TrackName).
		Int("progress_ms", ev.ProgressMs).
		Msg("logged skipped song")
	return nil
}
