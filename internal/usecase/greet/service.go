// Package greet provides the birthday greeting orchestration use case: the
// daily cycle that finds recipients whose birthday is today in their own
// timezone and drives each one through message generation and delivery at
// most once per calendar year.
package greet

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"birthday-courier/internal/domain/birthday"
	"birthday-courier/internal/domain/entity"
	"birthday-courier/internal/observability/logging"
	"birthday-courier/internal/observability/tracing"
	"birthday-courier/internal/repository"
	"birthday-courier/internal/resilience/retry"
)

// Composer turns a recipient into greeting wording. Implementations must be
// safe to call repeatedly for the same recipient: the retry executor may
// invoke Compose several times.
type Composer interface {
	Compose(ctx context.Context, recipient *entity.Recipient) (string, error)

	// Ping verifies the composer's upstream is reachable and authenticated.
	Ping(ctx context.Context) error
}

// DeliveryOutcome is the transport's verdict on a single send attempt.
type DeliveryOutcome struct {
	Success     bool
	MessageID   string
	ErrorCode   string
	Description string
	Timestamp   time.Time
}

// Channel transmits greeting text to a phone number. A delivery failure
// reported by the transport comes back as a non-success outcome; returned
// errors are reserved for transport faults such as auth or network.
type Channel interface {
	Name() string
	Send(ctx context.Context, phone, text string) (*DeliveryOutcome, error)
	Ping(ctx context.Context) error
}

// RecipientSource supplies the validated recipient list, refreshing it when
// stale. Implemented by the roster cache.
type RecipientSource interface {
	Load(ctx context.Context) ([]*entity.Recipient, error)
	Ping(ctx context.Context) error
}

// Config holds orchestrator tunables.
type Config struct {
	// GenerationRetry wraps Composer.Compose.
	GenerationRetry retry.Config

	// DeliveryRetry wraps Channel.Send.
	DeliveryRetry retry.Config

	// MaxConcurrent bounds how many matched recipients are processed at
	// once. Delivery retries wait minutes, so matches must not serialize.
	MaxConcurrent int

	// Now returns the current time; defaults to time.Now.
	Now func() time.Time
}

// DefaultConfig returns the production orchestrator configuration.
func DefaultConfig() Config {
	return Config{
		GenerationRetry: retry.GenerationConfig(),
		DeliveryRetry:   retry.DeliveryConfig(),
		MaxConcurrent:   5,
	}
}

// Service orchestrates one greeting cycle end to end.
type Service struct {
	Roster     RecipientSource
	Deliveries repository.DeliveryRepository
	Composer   Composer
	Channel    Channel

	config Config
}

// NewService creates the greeting orchestrator with the given collaborators.
func NewService(
	roster RecipientSource,
	deliveries repository.DeliveryRepository,
	composer Composer,
	channel Channel,
	config Config,
) *Service {
	if config.Now == nil {
		config.Now = time.Now
	}
	if config.MaxConcurrent < 1 {
		config.MaxConcurrent = 1
	}
	return &Service{
		Roster:     roster,
		Deliveries: deliveries,
		Composer:   composer,
		Channel:    channel,
		config:     config,
	}
}

// CycleStats summarizes one greeting cycle.
type CycleStats struct {
	Evaluated int
	Matched   int
	Sent      int64
	Failed    int64
	Skipped   int64
	Duration  time.Duration
}

// match pairs a recipient with the local calendar date that matched.
// It lives only for the duration of the cycle and is never persisted.
type match struct {
	recipient *entity.Recipient
	localDate time.Time
}

// ValidateConnections checks roster, composer, and delivery channel
// readiness, in that order. The first failure is returned; the caller must
// halt before arming the schedule.
func (s *Service) ValidateConnections(ctx context.Context) error {
	if err := s.Roster.Ping(ctx); err != nil {
		return fmt.Errorf("roster connectivity: %w", err)
	}
	if err := s.Composer.Ping(ctx); err != nil {
		return fmt.Errorf("composer connectivity: %w", err)
	}
	if err := s.Channel.Ping(ctx); err != nil {
		return fmt.Errorf("delivery channel readiness: %w", err)
	}
	return nil
}

// RunCycle executes one greeting cycle: load the roster (refreshing if
// stale), evaluate every recipient against now, and run the per-recipient
// workflow for each match. A roster refresh failure aborts the cycle; a
// failure inside one recipient's workflow never blocks the others.
func (s *Service) RunCycle(ctx context.Context) (*CycleStats, error) {
	ctx, span := tracing.GetTracer().Start(ctx, "greet.cycle")
	defer span.End()

	logger := slog.Default()
	start := s.config.Now()
	stats := &CycleStats{}

	recipients, err := s.Roster.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load recipients: %w", err)
	}
	stats.Evaluated = len(recipients)

	matches := s.evaluate(recipients, start)
	stats.Matched = len(matches)

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(s.config.MaxConcurrent)
	for _, m := range matches {
		eg.Go(func() error {
			s.processMatch(egCtx, m, stats)
			return nil // per-recipient failures are absorbed, never propagated
		})
	}
	_ = eg.Wait()

	stats.Duration = s.config.Now().Sub(start)
	logger.Info("greeting cycle completed",
		slog.Int("evaluated", stats.Evaluated),
		slog.Int("matched", stats.Matched),
		slog.Int64("sent", atomic.LoadInt64(&stats.Sent)),
		slog.Int64("failed", atomic.LoadInt64(&stats.Failed)),
		slog.Int64("skipped", atomic.LoadInt64(&stats.Skipped)),
		slog.Duration("duration", stats.Duration),
	)

	return stats, nil
}

// evaluate returns the recipients whose birthday is today in their own
// timezone, in roster order.
func (s *Service) evaluate(recipients []*entity.Recipient, now time.Time) []match {
	matches := make([]match, 0)
	for _, recipient := range recipients {
		if !birthday.Matches(recipient.BirthDate, recipient.Timezone, now) {
			continue
		}
		localDate := now.In(recipient.Timezone)
		slog.Info("birthday match detected",
			slog.String("recipient_id", recipient.ID),
			slog.String("recipient_name", recipient.Name),
			slog.String("local_date", localDate.Format("2006-01-02")),
			slog.String("timezone", recipient.Timezone.String()))
		matches = append(matches, match{recipient: recipient, localDate: localDate})
	}
	return matches
}

// processMatch runs one recipient's workflow and folds the outcome into the
// cycle stats. A panic is caught, logged, and persisted as a failed record
// so the recipient is never silently dropped from the year's audit trail.
func (s *Service) processMatch(ctx context.Context, m match, stats *CycleStats) {
	ctx, span := tracing.GetTracer().Start(ctx, "greet.recipient")
	defer span.End()

	year := m.localDate.Year()

	defer func() {
		if r := recover(); r != nil {
			slog.Error("panic in recipient workflow",
				slog.String("recipient_id", m.recipient.ID),
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())),
				logging.Critical())
			s.recordFailure(ctx, m.recipient, year, "")
			atomic.AddInt64(&stats.Failed, 1)
		}
	}()

	switch s.processRecipient(ctx, m.recipient, year) {
	case dispositionSent:
		atomic.AddInt64(&stats.Sent, 1)
	case dispositionSkipped:
		atomic.AddInt64(&stats.Skipped, 1)
	case dispositionFailed:
		atomic.AddInt64(&stats.Failed, 1)
	}
}

type disposition int

const (
	dispositionSent disposition = iota
	dispositionSkipped
	dispositionFailed
)

// processRecipient drives one matched recipient through duplicate check,
// generation, delivery, and recording. The delivery record is written only
// at a terminal state, so a crash mid-retry leaves no record and the next
// cycle safely starts over.
func (s *Service) processRecipient(ctx context.Context, recipient *entity.Recipient, year int) disposition {
	logger := slog.Default()

	sent, err := s.Deliveries.WasSent(ctx, recipient.ID, year)
	if err != nil {
		// Store unavailable: skipping the check could break the
		// at-most-once guarantee, so this recipient's workflow stops here.
		logger.Error("duplicate check failed, aborting recipient workflow",
			slog.String("recipient_id", recipient.ID),
			slog.Int("year", year),
			slog.Any("error", err))
		return dispositionFailed
	}
	if sent {
		logger.Info("greeting already sent this year, skipping",
			slog.String("recipient_id", recipient.ID),
			slog.Int("year", year))
		return dispositionSkipped
	}

	text, err := retry.Do(ctx, s.config.GenerationRetry, func() (string, error) {
		return s.Composer.Compose(ctx, recipient)
	})
	if err != nil {
		logger.Error("message generation exhausted retries",
			slog.String("recipient_id", recipient.ID),
			slog.Int("year", year),
			slog.Any("error", err),
			logging.Critical())
		s.recordFailure(ctx, recipient, year, "")
		return dispositionFailed
	}

	outcome, err := retry.Do(ctx, s.config.DeliveryRetry, func() (*DeliveryOutcome, error) {
		out, err := s.Channel.Send(ctx, recipient.Phone, text)
		if err != nil {
			return nil, err
		}
		if !out.Success {
			// A transport-reported rejection is not a channel error, but it
			// is still a failed attempt from the workflow's point of view.
			return nil, fmt.Errorf("delivery rejected: %s (%s)", out.Description, out.ErrorCode)
		}
		return out, nil
	})
	if err != nil {
		logger.Error("delivery exhausted retries",
			slog.String("recipient_id", recipient.ID),
			slog.Int("year", year),
			slog.Any("error", err),
			logging.Critical())
		s.recordFailure(ctx, recipient, year, text)
		return dispositionFailed
	}

	record := &entity.DeliveryRecord{
		RecipientID: recipient.ID,
		Year:        year,
		MessageID:   &outcome.MessageID,
		MessageText: text,
		SentAt:      s.config.Now(),
		Status:      entity.DeliveryStatusSent,
	}
	if err := s.Deliveries.Record(ctx, record); err != nil {
		if errors.Is(err, entity.ErrAlreadyRecorded) {
			// A concurrent writer got there first; the greeting was handled.
			logger.Info("delivery already recorded by concurrent writer",
				slog.String("recipient_id", recipient.ID),
				slog.Int("year", year))
			return dispositionSkipped
		}
		logger.Error("failed to persist delivery record",
			slog.String("recipient_id", recipient.ID),
			slog.Int("year", year),
			slog.Any("error", err),
			logging.Critical())
		return dispositionFailed
	}

	logger.Info("greeting delivered",
		slog.String("recipient_id", recipient.ID),
		slog.Int("year", year),
		slog.String("message_id", outcome.MessageID),
		slog.String("channel", s.Channel.Name()))
	return dispositionSent
}

// recordFailure persists a failed delivery record with no message id. A
// conflict means another writer already recorded the year, which is fine;
// any other store error is logged, since at that point the disposition is
// lost until an operator intervenes.
func (s *Service) recordFailure(ctx context.Context, recipient *entity.Recipient, year int, text string) {
	record := &entity.DeliveryRecord{
		RecipientID: recipient.ID,
		Year:        year,
		MessageID:   nil,
		MessageText: text,
		SentAt:      s.config.Now(),
		Status:      entity.DeliveryStatusFailed,
	}
	if err := s.Deliveries.Record(ctx, record); err != nil && !errors.Is(err, entity.ErrAlreadyRecorded) {
		slog.Error("failed to persist failure record",
			slog.String("recipient_id", recipient.ID),
			slog.Int("year", year),
			slog.Any("error", err))
	}
}
