package worker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/gwent-leaderboard/internal/config"
	"github.com/gwent-leaderboard/internal/domain"
	"github.com/gwent-leaderboard/internal/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRanker struct {
	mu       sync.Mutex
	requests []domain.RankRequest
	fail     map[domain.Edition]bool
}

func (r *fakeRanker) RankPlayers(_ context.Context, req domain.RankRequest) ([]domain.PlayerRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requests = append(r.requests, req)
	if r.fail[req.Edition] {
		return nil, domain.StoreUnavailable("querying players", errors.New("timeout"))
	}
	return []domain.PlayerRecord{{ID: "p1", Game: req.Edition, Username: "top"}}, nil
}

func (r *fakeRanker) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.requests)
}

type fakeBroadcaster struct {
	mu     sync.Mutex
	topics []websocket.Topic
	sent   map[websocket.Topic][]domain.PlayerRecord
	conns  int
}

func (b *fakeBroadcaster) Topics() []websocket.Topic { return b.topics }

func (b *fakeBroadcaster) BroadcastRankings(topic websocket.Topic, players []domain.PlayerRecord) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.sent == nil {
		b.sent = make(map[websocket.Topic][]domain.PlayerRecord)
	}
	b.sent[topic] = players
}

func (b *fakeBroadcaster) GetTotalConnections() int { return b.conns }

type fakeGauge struct{ n int }

func (g *fakeGauge) SetLiveSubscribers(n int) { g.n = n }

func newTestWorker(r *fakeRanker, b *fakeBroadcaster, g SubscriberGauge) *RefreshWorker {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewRefreshWorker(r, b, g, &config.RefreshConfig{Interval: 10 * time.Millisecond, Enabled: true}, logger)
}

var (
	gotToday   = websocket.Topic{Edition: domain.EditionGOT, Window: domain.TimeWindowToday}
	gotAll     = websocket.Topic{Edition: domain.EditionGOT, Window: domain.TimeWindowAllTime}
	lotrWeekly = websocket.Topic{Edition: domain.EditionLOTR, Window: domain.TimeWindowPastWeek}
)

func TestRunOnce_RefreshesEverySubscribedTopic(t *testing.T) {
	r := &fakeRanker{fail: map[domain.Edition]bool{domain.EditionLOTR: true}}
	b := &fakeBroadcaster{topics: []websocket.Topic{gotToday, gotAll, lotrWeekly}, conns: 3}
	g := &fakeGauge{}
	w := newTestWorker(r, b, g)

	w.RunOnce(context.Background())

	assert.Equal(t, 3, r.count())
	assert.Contains(t, r.requests, domain.RankRequest{Edition: domain.EditionGOT, Window: domain.TimeWindowToday})
	assert.Len(t, b.sent, 2, "failed topics are not broadcast")
	assert.Equal(t, "top", b.sent[gotToday][0].Username)
	assert.NotContains(t, b.sent, lotrWeekly)
	assert.Equal(t, 3, g.n)
}

func TestRefreshEdition_OnlyTouchesThatEdition(t *testing.T) {
	r := &fakeRanker{}
	b := &fakeBroadcaster{topics: []websocket.Topic{gotToday, gotAll, lotrWeekly}}
	w := newTestWorker(r, b, nil)

	w.RefreshEdition(context.Background(), domain.EditionGOT)

	assert.Equal(t, 2, r.count())
	assert.Contains(t, b.sent, gotToday)
	assert.Contains(t, b.sent, gotAll)
	assert.NotContains(t, b.sent, lotrWeekly)
}

func TestRefreshTopic_ReturnsError(t *testing.T) {
	r := &fakeRanker{fail: map[domain.Edition]bool{domain.EditionLOTR: true}}
	w := newTestWorker(r, &fakeBroadcaster{}, nil)

	err := w.RefreshTopic(context.Background(), lotrWeekly)
	assert.True(t, domain.IsStoreUnavailable(err))
}

func TestStartStop(t *testing.T) {
	r := &fakeRanker{}
	b := &fakeBroadcaster{topics: []websocket.Topic{gotAll}}
	w := newTestWorker(r, b, nil)

	require.NoError(t, w.Start(context.Background()))
	require.NoError(t, w.Start(context.Background()), "second start is a no-op")
	assert.True(t, w.IsRunning())

	assert.Eventually(t, func() bool { return r.count() >= 2 }, time.Second, 5*time.Millisecond)

	require.NoError(t, w.Stop())
	assert.False(t, w.IsRunning())
	require.NoError(t, w.Stop(), "stopping a stopped worker is a no-op")
}
