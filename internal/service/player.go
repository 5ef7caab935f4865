package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/gwent-leaderboard/internal/domain"
	"github.com/gwent-leaderboard/internal/edition"
)

// PlayerStore is the persistence collaborator. Implementations stamp
// updated_at on every write and report unreachable storage as
// domain.ErrStoreUnavailable.
type PlayerStore interface {
	QueryPlayers(ctx context.Context, q domain.PlayerQuery) ([]domain.PlayerRecord, error)
	UpsertPlayer(ctx context.Context, p domain.PlayerRecord) (domain.PlayerRecord, error)
	InsertPlayer(ctx context.Context, p domain.PlayerRecord) (domain.PlayerRecord, error)
	UpdatePlayer(ctx context.Context, p domain.PlayerRecord) (domain.PlayerRecord, error)
	DeletePlayer(ctx context.Context, id string) (domain.PlayerRecord, error)
	Ping(ctx context.Context) error
}

// Notifier announces ranking changes to live subscribers
type Notifier interface {
	Publish(ctx context.Context, event domain.ChangeEvent) error
}

// Recorder receives operational measurements
type Recorder interface {
	ObserveRanking(edition domain.Edition, window domain.TimeWindow, d time.Duration, err error)
	IncPlayerWrite(op string, err error)
}

// Options configures a PlayerService
type Options struct {
	Mode     domain.UpsertMode
	Ordering domain.Ordering
	Location *time.Location
	Now      func() time.Time
	Notifier Notifier
	Recorder Recorder
}

// PlayerService ranks and writes leaderboard players
type PlayerService struct {
	store    PlayerStore
	registry *edition.Registry
	mode     domain.UpsertMode
	ordering domain.Ordering
	location *time.Location
	now      func() time.Time
	notifier Notifier
	recorder Recorder
	logger   *slog.Logger
}

// NewPlayerService creates a new player service
func NewPlayerService(store PlayerStore, registry *edition.Registry, opts Options, logger *slog.Logger) *PlayerService {
	s := &PlayerService{
		store:    store,
		registry: registry,
		mode:     opts.Mode,
		ordering: opts.Ordering,
		location: opts.Location,
		now:      opts.Now,
		notifier: opts.Notifier,
		recorder: opts.Recorder,
		logger:   logger,
	}

	// Apply defaults
	if s.mode == "" {
		s.mode = domain.UpsertOnConflict
	}
	if len(s.ordering) == 0 {
		s.ordering = domain.WinPercentageOrdering
	}
	if s.location == nil {
		s.location = time.UTC
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.notifier == nil {
		s.notifier = nopNotifier{}
	}
	if s.recorder == nil {
		s.recorder = nopRecorder{}
	}
	if s.registry == nil {
		s.registry = edition.Default()
	}

	return s
}

// Mode returns the configured upsert policy
func (s *PlayerService) Mode() domain.UpsertMode {
	return s.mode
}

// RankPlayers returns the players of an edition inside the time window, in
// a deterministic ranking order. An edition with no players yields an
// empty slice.
func (s *PlayerService) RankPlayers(ctx context.Context, req domain.RankRequest) ([]domain.PlayerRecord, error) {
	start := time.Now()

	if req.Window == "" {
		req.Window = domain.TimeWindowAllTime
	}
	ordering := req.Ordering
	if len(ordering) == 0 {
		ordering = s.ordering
	}

	q := domain.PlayerQuery{
		Game:     req.Edition,
		Ordering: ordering.Total(),
	}
	if cutoff, ok := req.Window.Cutoff(s.now(), s.location); ok {
		q.Since = cutoff
	}

	players, err := s.store.QueryPlayers(ctx, q)
	s.recorder.ObserveRanking(req.Edition, req.Window, time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("ranking %s players: %w", req.Edition, err)
	}
	if players == nil {
		players = []domain.PlayerRecord{}
	}
	return players, nil
}

// UpsertPlayer applies a write under the configured upsert policy. Omitted
// numeric fields are stored as zero: callers must resend the full record.
func (s *PlayerService) UpsertPlayer(ctx context.Context, in domain.PlayerInput) (domain.PlayerRecord, error) {
	if err := in.Validate(); err != nil {
		return domain.PlayerRecord{}, err
	}

	id := in.ID
	fresh := id == ""
	if fresh {
		id = uuid.NewString()
	}
	record := in.ToRecord(id)

	var (
		saved domain.PlayerRecord
		err   error
		op    string
	)
	switch {
	case s.mode == domain.InsertThenExplicitUpdate && fresh:
		op = "insert"
		saved, err = s.store.InsertPlayer(ctx, record)
	case s.mode == domain.InsertThenExplicitUpdate:
		op = "update"
		saved, err = s.store.UpdatePlayer(ctx, record)
	default:
		op = "upsert"
		saved, err = s.store.UpsertPlayer(ctx, record)
	}
	s.recorder.IncPlayerWrite(op, err)
	if err != nil {
		return domain.PlayerRecord{}, fmt.Errorf("saving player: %w", err)
	}

	s.publish(ctx, saved, domain.ChangeActionUpserted)
	return saved, nil
}

// UpdatePlayer replaces an existing player. The id is required and must exist.
func (s *PlayerService) UpdatePlayer(ctx context.Context, in domain.PlayerInput) (domain.PlayerRecord, error) {
	if in.ID == "" {
		return domain.PlayerRecord{}, &domain.ValidationError{Field: "id"}
	}
	if err := in.Validate(); err != nil {
		return domain.PlayerRecord{}, err
	}

	saved, err := s.store.UpdatePlayer(ctx, in.ToRecord(in.ID))
	s.recorder.IncPlayerWrite("update", err)
	if err != nil {
		return domain.PlayerRecord{}, fmt.Errorf("updating player: %w", err)
	}

	s.publish(ctx, saved, domain.ChangeActionUpdated)
	return saved, nil
}

// DeletePlayer removes a player and returns the deleted record
func (s *PlayerService) DeletePlayer(ctx context.Context, id string) (domain.PlayerRecord, error) {
	if id == "" {
		return domain.PlayerRecord{}, &domain.ValidationError{Field: "id"}
	}

	deleted, err := s.store.DeletePlayer(ctx, id)
	s.recorder.IncPlayerWrite("delete", err)
	if err != nil {
		return domain.PlayerRecord{}, fmt.Errorf("deleting player: %w", err)
	}

	s.publish(ctx, deleted, domain.ChangeActionDeleted)
	return deleted, nil
}

// BatchResult counts the outcome of a batch of writes
type BatchResult struct {
	Applied int
	Failed  int
}

// ApplyBatch upserts every input, logging failures without stopping
func (s *PlayerService) ApplyBatch(ctx context.Context, inputs []domain.PlayerInput) BatchResult {
	var result BatchResult
	for i, in := range inputs {
		if ctx.Err() != nil {
			result.Failed += len(inputs) - i
			break
		}
		if _, err := s.UpsertPlayer(ctx, in); err != nil {
			s.logger.Error("failed to apply player in batch",
				"id", in.ID,
				"game", in.Game,
				"username", in.Username,
				"error", err,
			)
			result.Failed++
			continue
		}
		result.Applied++
	}
	return result
}

// Ready reports whether the store can serve requests
func (s *PlayerService) Ready(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// Edition describes one edition's labels and totals
func (s *PlayerService) Edition(e domain.Edition) (domain.EditionSummary, error) {
	summary, ok := s.registry.Summary(e)
	if !ok {
		return domain.EditionSummary{}, fmt.Errorf("edition %q: %w", e, domain.ErrUnknownEdition)
	}
	return summary, nil
}

// Editions describes every configured edition
func (s *PlayerService) Editions() []domain.EditionSummary {
	editions := s.registry.Editions()
	out := make([]domain.EditionSummary, 0, len(editions))
	for _, e := range editions {
		if summary, ok := s.registry.Summary(e); ok {
			out = append(out, summary)
		}
	}
	return out
}

func (s *PlayerService) publish(ctx context.Context, p domain.PlayerRecord, action domain.ChangeAction) {
	event := domain.ChangeEvent{
		Edition:  p.Game,
		PlayerID: p.ID,
		Action:   action,
		At:       s.now(),
	}
	if err := s.notifier.Publish(ctx, event); err != nil {
		s.logger.Warn("failed to publish change event",
			"edition", p.Game,
			"player_id", p.ID,
			"error", err,
		)
	}
}

type nopNotifier struct{}

func (nopNotifier) Publish(context.Context, domain.ChangeEvent) error { return nil }

type nopRecorder struct{}

func (nopRecorder) ObserveRanking(domain.Edition, domain.TimeWindow, time.Duration, error) {}
func (nopRecorder) IncPlayerWrite(string, error) {}
