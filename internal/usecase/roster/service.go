// Package roster provides the recipient cache use case. It refreshes the
// recipient list from the roster provider when stale, validates rows, and
// isolates transient provider failures from the greeting cycle.
package roster

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"birthday-courier/internal/domain/entity"
)

// RawRow is one unvalidated roster row as returned by the provider.
type RawRow struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	BirthDate string `json:"birth_date"`
	Language  string `json:"language"`
	Phone     string `json:"phone"`
	Country   string `json:"country"`
	Timezone  string `json:"timezone,omitempty"`
}

// Provider fetches raw roster rows from the external roster source.
type Provider interface {
	// Fetch returns all roster rows. A transport or authentication failure
	// is returned as an error; row-level problems are the cache's concern.
	Fetch(ctx context.Context) ([]RawRow, error)

	// Ping verifies connectivity and credentials without fetching rows.
	Ping(ctx context.Context) error
}

// birthDateLayouts are the accepted roster date formats.
var birthDateLayouts = []string{"2006-01-02", "2006/01/02"}

// Config holds cache configuration.
type Config struct {
	// Freshness is how long a fetched roster remains valid before the next
	// Load triggers a provider refresh.
	Freshness time.Duration

	// DefaultZone is the timezone assigned to recipients whose country
	// cannot be resolved. Must not be nil.
	DefaultZone *time.Location

	// Now returns the current time; defaults to time.Now. Injected so
	// staleness logic is testable without waiting on a wall clock.
	Now func() time.Time
}

// Cache holds the last successfully loaded, validated recipient list.
// The list and its refresh timestamp are guarded by one mutex so readers
// never observe a list paired with the wrong timestamp.
type Cache struct {
	provider    Provider
	freshness   time.Duration
	defaultZone *time.Location
	now         func() time.Time

	mu          sync.Mutex
	recipients  []*entity.Recipient
	refreshedAt time.Time
}

// NewCache creates a recipient cache backed by the given provider.
func NewCache(provider Provider, cfg Config) *Cache {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Cache{
		provider:    provider,
		freshness:   cfg.Freshness,
		defaultZone: cfg.DefaultZone,
		now:         now,
	}
}

// Load returns the cached recipient list when it is within the freshness
// window, refreshing from the provider otherwise. A provider failure
// propagates to the caller; the cache never silently falls back to stale
// data, so the orchestrator can decide whether to abort the cycle.
func (c *Cache) Load(ctx context.Context) ([]*entity.Recipient, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.refreshedAt.IsZero() && c.now().Sub(c.refreshedAt) < c.freshness {
		return c.recipients, nil
	}
	return c.refreshLocked(ctx)
}

// ForceRefresh refreshes from the provider regardless of freshness.
func (c *Cache) ForceRefresh(ctx context.Context) ([]*entity.Recipient, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.refreshLocked(ctx)
}

// Ping verifies provider connectivity for the startup validation gate.
func (c *Cache) Ping(ctx context.Context) error {
	return c.provider.Ping(ctx)
}

// refreshLocked fetches and validates rows, then swaps the list and the
// staleness timestamp together. The timestamp is updated only on success.
func (c *Cache) refreshLocked(ctx context.Context) ([]*entity.Recipient, error) {
	rows, err := c.provider.Fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("roster fetch: %w", err)
	}

	recipients := make([]*entity.Recipient, 0, len(rows))
	dropped := 0
	for _, row := range rows {
		recipient, err := c.buildRecipient(row)
		if err != nil {
			dropped++
			slog.Warn("dropping invalid roster row",
				slog.String("row_id", row.ID),
				slog.String("row_name", row.Name),
				slog.Any("error", err))
			continue
		}
		recipients = append(recipients, recipient)
	}

	c.recipients = recipients
	c.refreshedAt = c.now()

	slog.Info("roster refreshed",
		slog.Int("rows", len(rows)),
		slog.Int("valid", len(recipients)),
		slog.Int("dropped", dropped))

	return c.recipients, nil
}

// buildRecipient validates a raw row and resolves its timezone. Resolution
// order: explicit timezone column, then country lookup, then the default
// zone. An unparseable explicit timezone is a row error rather than a
// fallback, since it signals a typo worth surfacing.
func (c *Cache) buildRecipient(row RawRow) (*entity.Recipient, error) {
	birthDate, err := parseBirthDate(row.BirthDate)
	if err != nil {
		return nil, err
	}

	zone := c.defaultZone
	switch {
	case row.Timezone != "":
		loc, err := time.LoadLocation(row.Timezone)
		if err != nil {
			return nil, &entity.ValidationError{
				Field:   "Timezone",
				Message: fmt.Sprintf("%q is not an IANA timezone", row.Timezone),
			}
		}
		zone = loc
	case row.Country != "":
		if name, ok := countryZones[row.Country]; ok {
			// A host without tzdata can fail to load even a well-known zone;
			// treat that like an unknown country and keep the default.
			if loc, err := time.LoadLocation(name); err == nil {
				zone = loc
			}
		}
	}

	recipient := &entity.Recipient{
		ID:        row.ID,
		Name:      row.Name,
		BirthDate: birthDate,
		Language:  row.Language,
		Phone:     row.Phone,
		Country:   row.Country,
		Timezone:  zone,
	}
	if err := recipient.Validate(); err != nil {
		return nil, err
	}
	return recipient, nil
}

func parseBirthDate(value string) (time.Time, error) {
	for _, layout := range birthDateLayouts {
		if parsed, err := time.Parse(layout, value); err == nil {
			return parsed, nil
		}
	}
	return time.Time{}, &entity.ValidationError{
		Field:   "BirthDate",
		Message: fmt.Sprintf("%q does not match any accepted layout", value),
	}
}
