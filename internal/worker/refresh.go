package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/gwent-leaderboard/internal/config"
	"github.com/gwent-leaderboard/internal/domain"
	"github.com/gwent-leaderboard/internal/websocket"
)

// Ranker produces ranked player lists
type Ranker interface {
	RankPlayers(ctx context.Context, req domain.RankRequest) ([]domain.PlayerRecord, error)
}

// Broadcaster pushes rankings to live subscribers
type Broadcaster interface {
	Topics() []websocket.Topic
	BroadcastRankings(topic websocket.Topic, players []domain.PlayerRecord)
	GetTotalConnections() int
}

// SubscriberGauge tracks the number of connected clients
type SubscriberGauge interface {
	SetLiveSubscribers(n int)
}

// RefreshWorker periodically re-ranks every subscribed topic and pushes the
// result to its subscribers. Time windows slide even without writes, so a
// topic's contents can change on the clock alone.
type RefreshWorker struct {
	ranker      Ranker
	broadcaster Broadcaster
	gauge       SubscriberGauge
	config      *config.RefreshConfig
	logger      *slog.Logger
	stopCh      chan struct{}
	doneCh      chan struct{}
	mu          sync.Mutex
	running     bool
}

// NewRefreshWorker creates a new refresh worker. gauge may be nil.
func NewRefreshWorker(
	ranker Ranker,
	broadcaster Broadcaster,
	gauge SubscriberGauge,
	cfg *config.RefreshConfig,
	logger *slog.Logger,
) *RefreshWorker {
	return &RefreshWorker{
		ranker:      ranker,
		broadcaster: broadcaster,
		gauge:       gauge,
		config:      cfg,
		logger:      logger,
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}
}

// Start begins the background refresh loop
func (w *RefreshWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	w.logger.Info("refresh worker started", "interval", w.config.Interval)

	go w.run(ctx)
	return nil
}

// Stop stops the background refresh loop
func (w *RefreshWorker) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh

	w.mu.Lock()
	w.running = false
	w.mu.Unlock()

	w.logger.Info("refresh worker stopped")
	return nil
}

// run is the main worker loop
func (w *RefreshWorker) run(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(w.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.refreshAll(ctx)
		}
	}
}

// refreshAll re-ranks every topic with subscribers
func (w *RefreshWorker) refreshAll(ctx context.Context) {
	startTime := time.Now()

	if w.gauge != nil {
		w.gauge.SetLiveSubscribers(w.broadcaster.GetTotalConnections())
	}

	topics := w.broadcaster.Topics()
	if len(topics) == 0 {
		return
	}

	refreshed := 0
	errorCount := 0
	for _, topic := range topics {
		if err := w.RefreshTopic(ctx, topic); err != nil {
			errorCount++
			continue
		}
		refreshed++
	}

	w.logger.Debug("refresh cycle completed",
		"duration", time.Since(startTime),
		"refreshed", refreshed,
		"errors", errorCount,
	)
}

// RefreshTopic ranks one topic and pushes the result to its subscribers
func (w *RefreshWorker) RefreshTopic(ctx context.Context, topic websocket.Topic) error {
	players, err := w.ranker.RankPlayers(ctx, domain.RankRequest{
		Edition: topic.Edition,
		Window:  topic.Window,
	})
	if err != nil {
		w.logger.Error("failed to refresh rankings",
			"topic", topic.String(),
			"error", err,
		)
		return err
	}

	w.broadcaster.BroadcastRankings(topic, players)
	return nil
}

// RefreshEdition pushes fresh rankings to every subscribed window of one
// edition. It runs when a change event arrives for that edition.
func (w *RefreshWorker) RefreshEdition(ctx context.Context, edition domain.Edition) {
	for _, topic := range w.broadcaster.Topics() {
		if topic.Edition != edition {
			continue
		}
		_ = w.RefreshTopic(ctx, topic)
	}
}

// IsRunning returns whether the worker is currently running
func (w *RefreshWorker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// RunOnce runs a single refresh cycle
func (w *RefreshWorker) RunOnce(ctx context.Context) {
	w.refreshAll(ctx)
}
