package kafka

import (
	"context"
	"io"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/gwent-leaderboard/internal/config"
	"github.com/gwent-leaderboard/internal/domain"
	"github.com/gwent-leaderboard/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodePlayerMessage(t *testing.T) {
	in, err := DecodePlayerMessage([]byte(`{"id":"p1","game":"got","username":"Alice","wins":3,"win_percentage":75.5}`))
	require.NoError(t, err)
	assert.Equal(t, "p1", in.ID)
	require.NotNil(t, in.Wins)
	assert.Equal(t, int64(3), *in.Wins)
	assert.Nil(t, in.Losses, "omitted fields stay nil until the record is built")

	_, err = DecodePlayerMessage([]byte(`not json`))
	require.Error(t, err)
	assert.False(t, domain.IsValidationError(err))

	_, err = DecodePlayerMessage([]byte(`{"game":"got"}`))
	assert.True(t, domain.IsValidationError(err))
}

func TestEncodePlayerMessage_RoundTripsOmittedFields(t *testing.T) {
	wins := int64(0)
	data, err := EncodePlayerMessage(domain.PlayerInput{Game: "lotr", Username: "Sam", Wins: &wins})
	require.NoError(t, err)
	assert.JSONEq(t, `{"game":"lotr","username":"Sam","wins":0}`, string(data))

	in, err := DecodePlayerMessage(data)
	require.NoError(t, err)
	require.NotNil(t, in.Wins)
	assert.Nil(t, in.Draws)
}

type recordingApplier struct {
	mu      sync.Mutex
	batches [][]domain.PlayerInput
	failFor map[string]bool
}

func (a *recordingApplier) ApplyBatch(_ context.Context, inputs []domain.PlayerInput) service.BatchResult {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.batches = append(a.batches, append([]domain.PlayerInput(nil), inputs...))
	var result service.BatchResult
	for _, in := range inputs {
		if a.failFor[in.Username] {
			result.Failed++
			continue
		}
		result.Applied++
	}
	return result
}

func (a *recordingApplier) sizes() []int {
	a.mu.Lock()
	defer a.mu.Unlock()
	sizes := make([]int, len(a.batches))
	for i, b := range a.batches {
		sizes[i] = len(b)
	}
	return sizes
}

type countingRecorder struct {
	mu     sync.Mutex
	counts map[string]int
}

func (r *countingRecorder) IncIngested(result string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.counts == nil {
		r.counts = make(map[string]int)
	}
	r.counts[result]++
}

func (r *countingRecorder) snapshot() map[string]int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return maps.Clone(r.counts)
}

// fakeSession records marked offsets; unused methods fall through to the
// nil embedded interface.
type fakeSession struct {
	sarama.ConsumerGroupSession
	ctx    context.Context
	mu     sync.Mutex
	marked []int64
}

func (s *fakeSession) Context() context.Context { return s.ctx }

func (s *fakeSession) MarkMessage(msg *sarama.ConsumerMessage, _ string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.marked = append(s.marked, msg.Offset)
}

func (s *fakeSession) markedOffsets() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.marked)
}

type fakeClaim struct {
	sarama.ConsumerGroupClaim
	messages chan *sarama.ConsumerMessage
}

func (c *fakeClaim) Messages() <-chan *sarama.ConsumerMessage { return c.messages }

type claimHarness struct {
	applier  *recordingApplier
	recorder *countingRecorder
	session  *fakeSession
	claim    *fakeClaim
	offset   int64
	cancel   context.CancelFunc
	done     chan error
}

func startClaim(t *testing.T, batchSize int, batchTimeout time.Duration) *claimHarness {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	h := &claimHarness{
		applier:  &recordingApplier{failFor: map[string]bool{"doomed": true}},
		recorder: &countingRecorder{},
		session:  &fakeSession{ctx: ctx},
		claim:    &fakeClaim{messages: make(chan *sarama.ConsumerMessage, 16)},
		cancel:   cancel,
		done:     make(chan error, 1),
	}
	c := &Consumer{
		config:   &config.KafkaConfig{BatchSize: batchSize, BatchTimeout: batchTimeout},
		applier:  h.applier,
		recorder: h.recorder,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	handler := &consumerGroupHandler{consumer: c, ready: make(chan bool)}
	go func() { h.done <- handler.ConsumeClaim(h.session, h.claim) }()
	return h
}

func (h *claimHarness) send(value string) {
	h.claim.messages <- &sarama.ConsumerMessage{Offset: h.offset, Value: []byte(value)}
	h.offset++
}

func (h *claimHarness) sendPlayer(username string) {
	h.send(`{"game":"got","username":"` + username + `"}`)
}

func (h *claimHarness) close(t *testing.T) {
	t.Helper()
	close(h.claim.messages)
	select {
	case err := <-h.done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("ConsumeClaim did not return after the claim closed")
	}
}

func TestConsumeClaim_FlushesAtBatchSize(t *testing.T) {
	h := startClaim(t, 3, time.Hour)

	for _, name := range []string{"a", "b", "c", "d"} {
		h.sendPlayer(name)
	}

	require.Eventually(t, func() bool { return len(h.session.markedOffsets()) == 3 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []int{3}, h.applier.sizes())
	assert.Equal(t, []int64{0, 1, 2}, h.session.markedOffsets(), "only applied messages are marked")

	h.close(t)
	assert.Equal(t, []int{3, 1}, h.applier.sizes(), "closing the claim flushes the tail")
	assert.Equal(t, []int64{0, 1, 2, 3}, h.session.markedOffsets())
}

func TestConsumeClaim_FlushesOnTimeout(t *testing.T) {
	h := startClaim(t, 100, 20*time.Millisecond)

	h.sendPlayer("a")
	h.sendPlayer("b")

	// Neither the batch size nor a closed claim triggers this flush
	require.Eventually(t, func() bool { return len(h.session.markedOffsets()) == 2 }, time.Second, 5*time.Millisecond)
	flushed := 0
	for _, n := range h.applier.sizes() {
		flushed += n
	}
	assert.Equal(t, 2, flushed)
	assert.Equal(t, []int64{0, 1}, h.session.markedOffsets())

	h.close(t)
}

func TestConsumeClaim_HoldsMarksUntilFlush(t *testing.T) {
	h := startClaim(t, 100, time.Hour)

	h.sendPlayer("a")
	h.send(`not json`)

	require.Eventually(t, func() bool { return h.recorder.snapshot()[resultMalformed] == 1 }, time.Second, 5*time.Millisecond)
	assert.Empty(t, h.session.markedOffsets())
	assert.Empty(t, h.applier.sizes())

	h.close(t)
	assert.Equal(t, []int64{0, 1}, h.session.markedOffsets())
}

func TestConsumeClaim_CountsResults(t *testing.T) {
	h := startClaim(t, 100, time.Hour)

	h.sendPlayer("a")
	h.sendPlayer("doomed")
	h.sendPlayer("b")
	h.send(`{"game":"got"`)
	h.send(`{"game":"chess","username":"x"}`)
	h.send(`{"game":"got","username":"y","wins":-2}`)

	h.close(t)

	assert.Equal(t, map[string]int{
		resultApplied:   2,
		resultFailed:    1,
		resultMalformed: 1,
		resultInvalid:   2,
	}, h.recorder.snapshot())
	assert.Equal(t, []int{3}, h.applier.sizes(), "skipped messages never reach the applier")
	assert.Len(t, h.session.markedOffsets(), 6, "every message is marked once its batch is done")
}

func TestConsumeClaim_FlushesWhenSessionEnds(t *testing.T) {
	h := startClaim(t, 100, time.Hour)

	h.sendPlayer("a")
	require.Eventually(t, func() bool { return len(h.claim.messages) == 0 }, time.Second, 5*time.Millisecond)
	h.cancel()

	select {
	case err := <-h.done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("ConsumeClaim did not return after the session ended")
	}
	assert.Equal(t, []int{1}, h.applier.sizes())
}
