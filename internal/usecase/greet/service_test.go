package greet

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"birthday-courier/internal/domain/entity"
	"birthday-courier/internal/resilience/retry"
)

type fakeRoster struct {
	recipients []*entity.Recipient
	loadErr    error
	pingErr    error
}

func (f *fakeRoster) Load(ctx context.Context) ([]*entity.Recipient, error) {
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	return f.recipients, nil
}

func (f *fakeRoster) Ping(ctx context.Context) error { return f.pingErr }

type fakeRepo struct {
	mu      sync.Mutex
	records map[string]*entity.DeliveryRecord
	wasErr  error
	recErr  error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{records: make(map[string]*entity.DeliveryRecord)}
}

func (f *fakeRepo) key(recipientID string, year int) string {
	return fmt.Sprintf("%s/%d", recipientID, year)
}

func (f *fakeRepo) WasSent(ctx context.Context, recipientID string, year int) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.wasErr != nil {
		return false, f.wasErr
	}
	_, ok := f.records[f.key(recipientID, year)]
	return ok, nil
}

func (f *fakeRepo) Record(ctx context.Context, record *entity.DeliveryRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.recErr != nil {
		return f.recErr
	}
	k := f.key(record.RecipientID, record.Year)
	if _, ok := f.records[k]; ok {
		return entity.ErrAlreadyRecorded
	}
	f.records[k] = record
	return nil
}

func (f *fakeRepo) History(ctx context.Context, recipientID string) ([]*entity.DeliveryRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*entity.DeliveryRecord
	for _, r := range f.records {
		if r.RecipientID == recipientID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeRepo) get(recipientID string, year int) *entity.DeliveryRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.records[f.key(recipientID, year)]
}

type fakeComposer struct {
	mu      sync.Mutex
	calls   int
	text    string
	err     error
	pingErr error
	panics  bool
}

func (f *fakeComposer) Compose(ctx context.Context, r *entity.Recipient) (string, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.panics {
		panic("composer blew up")
	}
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

func (f *fakeComposer) Ping(ctx context.Context) error { return f.pingErr }

func (f *fakeComposer) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeChannel struct {
	mu      sync.Mutex
	calls   int
	outcome *DeliveryOutcome
	err     error
	pingErr error
}

func (f *fakeChannel) Name() string { return "fake" }

func (f *fakeChannel) Send(ctx context.Context, phone, text string) (*DeliveryOutcome, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.outcome, nil
}

func (f *fakeChannel) Ping(ctx context.Context) error { return f.pingErr }

func (f *fakeChannel) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func fastConfig(now time.Time) Config {
	quick := retry.Config{MaxAttempts: 2, Schedule: []time.Duration{time.Millisecond}}
	return Config{
		GenerationRetry: quick,
		DeliveryRetry:   quick,
		MaxConcurrent:   4,
		Now:             func() time.Time { return now },
	}
}

func testRecipient(id string) *entity.Recipient {
	return &entity.Recipient{
		ID:        id,
		Name:      "Mina Harker",
		BirthDate: time.Date(1990, time.May, 15, 0, 0, 0, 0, time.UTC),
		Language:  "en",
		Phone:     "+15551230001",
		Country:   "US",
		Timezone:  time.UTC,
	}
}

func TestRunCycle_DeliversOnBirthday(t *testing.T) {
	now := time.Date(2026, time.May, 15, 9, 0, 0, 0, time.UTC)
	repo := newFakeRepo()
	composer := &fakeComposer{text: "Happy birthday, Mina!"}
	channel := &fakeChannel{outcome: &DeliveryOutcome{Success: true, MessageID: "msg-1"}}
	roster := &fakeRoster{recipients: []*entity.Recipient{testRecipient("r-1")}}

	svc := NewService(roster, repo, composer, channel, fastConfig(now))
	stats, err := svc.RunCycle(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Evaluated)
	assert.Equal(t, 1, stats.Matched)
	assert.Equal(t, int64(1), stats.Sent)
	assert.Equal(t, int64(0), stats.Failed)

	record := repo.get("r-1", 2026)
	require.NotNil(t, record)
	assert.Equal(t, entity.DeliveryStatusSent, record.Status)
	require.NotNil(t, record.MessageID)
	assert.Equal(t, "msg-1", *record.MessageID)
	assert.Equal(t, "Happy birthday, Mina!", record.MessageText)
}

func TestRunCycle_NoMatchNoWork(t *testing.T) {
	now := time.Date(2026, time.June, 1, 9, 0, 0, 0, time.UTC)
	composer := &fakeComposer{text: "hi"}
	channel := &fakeChannel{outcome: &DeliveryOutcome{Success: true, MessageID: "msg-1"}}
	roster := &fakeRoster{recipients: []*entity.Recipient{testRecipient("r-1")}}

	svc := NewService(roster, newFakeRepo(), composer, channel, fastConfig(now))
	stats, err := svc.RunCycle(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Evaluated)
	assert.Equal(t, 0, stats.Matched)
	assert.Equal(t, 0, composer.callCount())
	assert.Equal(t, 0, channel.callCount())
}

func TestRunCycle_SkipsAlreadySent(t *testing.T) {
	now := time.Date(2026, time.May, 15, 9, 0, 0, 0, time.UTC)
	repo := newFakeRepo()
	id := "msg-0"
	require.NoError(t, repo.Record(context.Background(), &entity.DeliveryRecord{
		RecipientID: "r-1",
		Year:        2026,
		MessageID:   &id,
		MessageText: "earlier",
		SentAt:      now.Add(-2 * time.Hour),
		Status:      entity.DeliveryStatusSent,
	}))

	composer := &fakeComposer{text: "hi"}
	channel := &fakeChannel{outcome: &DeliveryOutcome{Success: true, MessageID: "msg-1"}}
	roster := &fakeRoster{recipients: []*entity.Recipient{testRecipient("r-1")}}

	svc := NewService(roster, repo, composer, channel, fastConfig(now))
	stats, err := svc.RunCycle(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(1), stats.Skipped)
	assert.Equal(t, int64(0), stats.Sent)
	assert.Equal(t, 0, composer.callCount())
	assert.Equal(t, 0, channel.callCount())
}

func TestRunCycle_RosterFailureAbortsCycle(t *testing.T) {
	roster := &fakeRoster{loadErr: errors.New("roster endpoint returned 503")}
	svc := NewService(roster, newFakeRepo(), &fakeComposer{}, &fakeChannel{}, fastConfig(time.Now()))

	stats, err := svc.RunCycle(context.Background())
	require.Error(t, err)
	assert.Nil(t, stats)
	assert.Contains(t, err.Error(), "load recipients")
}

func TestRunCycle_GenerationExhaustionRecordsFailure(t *testing.T) {
	now := time.Date(2026, time.May, 15, 9, 0, 0, 0, time.UTC)
	repo := newFakeRepo()
	composer := &fakeComposer{err: errors.New("model overloaded")}
	channel := &fakeChannel{outcome: &DeliveryOutcome{Success: true, MessageID: "msg-1"}}
	roster := &fakeRoster{recipients: []*entity.Recipient{testRecipient("r-1")}}

	svc := NewService(roster, repo, composer, channel, fastConfig(now))
	stats, err := svc.RunCycle(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(1), stats.Failed)
	assert.Equal(t, 2, composer.callCount())
	assert.Equal(t, 0, channel.callCount())

	record := repo.get("r-1", 2026)
	require.NotNil(t, record)
	assert.Equal(t, entity.DeliveryStatusFailed, record.Status)
	assert.Nil(t, record.MessageID)
}

func TestRunCycle_DeliveryRejectionRecordsFailure(t *testing.T) {
	now := time.Date(2026, time.May, 15, 9, 0, 0, 0, time.UTC)
	repo := newFakeRepo()
	composer := &fakeComposer{text: "Happy birthday!"}
	channel := &fakeChannel{outcome: &DeliveryOutcome{
		Success:     false,
		ErrorCode:   "21614",
		Description: "not a valid mobile number",
	}}
	roster := &fakeRoster{recipients: []*entity.Recipient{testRecipient("r-1")}}

	svc := NewService(roster, repo, composer, channel, fastConfig(now))
	stats, err := svc.RunCycle(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(1), stats.Failed)
	assert.Equal(t, 2, channel.callCount())

	record := repo.get("r-1", 2026)
	require.NotNil(t, record)
	assert.Equal(t, entity.DeliveryStatusFailed, record.Status)
	assert.Nil(t, record.MessageID)
	assert.Equal(t, "Happy birthday!", record.MessageText)
}

func TestRunCycle_PanicIsolatedAndRecorded(t *testing.T) {
	now := time.Date(2026, time.May, 15, 9, 0, 0, 0, time.UTC)
	repo := newFakeRepo()
	composer := &fakeComposer{panics: true}
	channel := &fakeChannel{outcome: &DeliveryOutcome{Success: true, MessageID: "msg-1"}}
	roster := &fakeRoster{recipients: []*entity.Recipient{testRecipient("r-1")}}

	svc := NewService(roster, repo, composer, channel, fastConfig(now))
	stats, err := svc.RunCycle(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(1), stats.Failed)
	record := repo.get("r-1", 2026)
	require.NotNil(t, record)
	assert.Equal(t, entity.DeliveryStatusFailed, record.Status)
	assert.Nil(t, record.MessageID)
}

func TestRunCycle_FailureDoesNotBlockOthers(t *testing.T) {
	now := time.Date(2026, time.May, 15, 9, 0, 0, 0, time.UTC)
	repo := newFakeRepo()
	composer := &fakeComposer{text: "Happy birthday!"}

	// Channel rejects the first recipient's number but accepts the second.
	channel := &selectiveChannel{
		reject: map[string]bool{"+15551230001": true},
	}

	second := testRecipient("r-2")
	second.Phone = "+15551230002"
	roster := &fakeRoster{recipients: []*entity.Recipient{testRecipient("r-1"), second}}

	svc := NewService(roster, repo, composer, channel, fastConfig(now))
	stats, err := svc.RunCycle(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(1), stats.Sent)
	assert.Equal(t, int64(1), stats.Failed)

	sent := repo.get("r-2", 2026)
	require.NotNil(t, sent)
	assert.Equal(t, entity.DeliveryStatusSent, sent.Status)

	failed := repo.get("r-1", 2026)
	require.NotNil(t, failed)
	assert.Equal(t, entity.DeliveryStatusFailed, failed.Status)
}

type selectiveChannel struct {
	reject map[string]bool
}

func (s *selectiveChannel) Name() string { return "selective" }

func (s *selectiveChannel) Send(ctx context.Context, phone, text string) (*DeliveryOutcome, error) {
	if s.reject[phone] {
		return &DeliveryOutcome{Success: false, ErrorCode: "21614", Description: "rejected"}, nil
	}
	return &DeliveryOutcome{Success: true, MessageID: "msg-" + phone}, nil
}

func (s *selectiveChannel) Ping(ctx context.Context) error { return nil }

func TestRunCycle_DuplicateCheckErrorFailsRecipient(t *testing.T) {
	now := time.Date(2026, time.May, 15, 9, 0, 0, 0, time.UTC)
	repo := newFakeRepo()
	repo.wasErr = errors.New("connection refused")
	composer := &fakeComposer{text: "hi"}
	channel := &fakeChannel{outcome: &DeliveryOutcome{Success: true, MessageID: "msg-1"}}
	roster := &fakeRoster{recipients: []*entity.Recipient{testRecipient("r-1")}}

	svc := NewService(roster, repo, composer, channel, fastConfig(now))
	stats, err := svc.RunCycle(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(1), stats.Failed)
	assert.Equal(t, 0, composer.callCount())
}

func TestRunCycle_ConcurrentRecordConflictCountsSkipped(t *testing.T) {
	now := time.Date(2026, time.May, 15, 9, 0, 0, 0, time.UTC)
	repo := &conflictOnRecordRepo{fakeRepo: newFakeRepo()}
	composer := &fakeComposer{text: "hi"}
	channel := &fakeChannel{outcome: &DeliveryOutcome{Success: true, MessageID: "msg-1"}}
	roster := &fakeRoster{recipients: []*entity.Recipient{testRecipient("r-1")}}

	svc := NewService(roster, repo, composer, channel, fastConfig(now))
	stats, err := svc.RunCycle(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(1), stats.Skipped)
	assert.Equal(t, int64(0), stats.Sent)
}

// conflictOnRecordRepo simulates a concurrent writer landing the record
// between the duplicate check and the insert.
type conflictOnRecordRepo struct {
	*fakeRepo
}

func (c *conflictOnRecordRepo) Record(ctx context.Context, record *entity.DeliveryRecord) error {
	return entity.ErrAlreadyRecorded
}

func TestRunCycle_UsesRecipientLocalYear(t *testing.T) {
	auckland, err := time.LoadLocation("Pacific/Auckland")
	require.NoError(t, err)

	// Dec 31 in UTC is already Jan 1 of the next year in Auckland.
	now := time.Date(2026, time.December, 31, 20, 0, 0, 0, time.UTC)

	recipient := testRecipient("r-nz")
	recipient.Timezone = auckland
	recipient.BirthDate = time.Date(1990, time.January, 1, 0, 0, 0, 0, time.UTC)

	repo := newFakeRepo()
	composer := &fakeComposer{text: "Happy birthday!"}
	channel := &fakeChannel{outcome: &DeliveryOutcome{Success: true, MessageID: "msg-1"}}
	roster := &fakeRoster{recipients: []*entity.Recipient{recipient}}

	svc := NewService(roster, repo, composer, channel, fastConfig(now))
	stats, err := svc.RunCycle(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(1), stats.Sent)

	assert.Nil(t, repo.get("r-nz", 2026))
	assert.NotNil(t, repo.get("r-nz", 2027))
}

func TestValidateConnections(t *testing.T) {
	tests := []struct {
		name       string
		rosterErr  error
		composeErr error
		channelErr error
		wantErr    string
	}{
		{name: "all healthy"},
		{
			name:      "roster down reported first",
			rosterErr: errors.New("401 unauthorized"),
			wantErr:   "roster connectivity",
		},
		{
			name:       "composer down",
			composeErr: errors.New("invalid api key"),
			wantErr:    "composer connectivity",
		},
		{
			name:       "channel down",
			channelErr: errors.New("account suspended"),
			wantErr:    "delivery channel readiness",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewService(
				&fakeRoster{pingErr: tt.rosterErr},
				newFakeRepo(),
				&fakeComposer{pingErr: tt.composeErr},
				&fakeChannel{pingErr: tt.channelErr},
				fastConfig(time.Now()),
			)
			err := svc.ValidateConnections(context.Background())
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
