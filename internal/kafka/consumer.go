package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/IBM/sarama"
	"github.com/gwent-leaderboard/internal/config"
	"github.com/gwent-leaderboard/internal/domain"
	"github.com/gwent-leaderboard/internal/service"
)

// Ingest results
const (
	resultApplied   = "applied"
	resultFailed    = "failed"
	resultMalformed = "malformed"
	resultInvalid   = "invalid"
)

// BatchApplier writes batches of player records
type BatchApplier interface {
	ApplyBatch(ctx context.Context, inputs []domain.PlayerInput) service.BatchResult
}

// IngestRecorder counts consumed messages by result
type IngestRecorder interface {
	IncIngested(result string)
}

// Consumer consumes player update messages from Kafka
type Consumer struct {
	config        *config.KafkaConfig
	applier       BatchApplier
	recorder      IngestRecorder
	logger        *slog.Logger
	consumerGroup sarama.ConsumerGroup
	ctx           context.Context
	cancel        context.CancelFunc
	wg            sync.WaitGroup
	ready         chan bool
}

// NewConsumer creates a new Kafka consumer. recorder may be nil.
func NewConsumer(cfg *config.KafkaConfig, applier BatchApplier, recorder IngestRecorder, logger *slog.Logger) (*Consumer, error) {
	saramaConfig := sarama.NewConfig()
	saramaConfig.Version = sarama.V3_0_0_0
	saramaConfig.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.NewBalanceStrategyRoundRobin()}
	saramaConfig.Consumer.Offsets.Initial = sarama.OffsetNewest
	saramaConfig.Consumer.Return.Errors = true

	consumerGroup, err := sarama.NewConsumerGroup(cfg.Brokers, cfg.GroupID, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("creating consumer group: %w", err)
	}

	if recorder == nil {
		recorder = nopRecorder{}
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Consumer{
		config:        cfg,
		applier:       applier,
		recorder:      recorder,
		logger:        logger,
		consumerGroup: consumerGroup,
		ctx:           ctx,
		cancel:        cancel,
		ready:         make(chan bool),
	}, nil
}

// Start begins consuming messages from Kafka
func (c *Consumer) Start() error {
	c.logger.Info("starting Kafka consumer",
		"brokers", c.config.Brokers,
		"topic", c.config.Topic,
		"group_id", c.config.GroupID,
	)

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		for {
			handler := &consumerGroupHandler{
				consumer: c,
				ready:    c.ready,
			}

			if err := c.consumerGroup.Consume(c.ctx, []string{c.config.Topic}, handler); err != nil {
				if errors.Is(err, sarama.ErrClosedConsumerGroup) {
					return
				}
				c.logger.Error("error from consumer", "error", err)
			}

			// Check if context was cancelled
			if c.ctx.Err() != nil {
				return
			}

			c.ready = make(chan bool)
		}
	}()

	// Wait until consumer is ready
	<-c.ready
	c.logger.Info("Kafka consumer ready")

	// Handle errors in separate goroutine
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		for {
			select {
			case <-c.ctx.Done():
				return
			case err, ok := <-c.consumerGroup.Errors():
				if !ok {
					return
				}
				c.logger.Error("consumer group error", "error", err)
			}
		}
	}()

	return nil
}

// Stop gracefully stops the consumer
func (c *Consumer) Stop() error {
	c.logger.Info("stopping Kafka consumer")
	c.cancel()
	c.wg.Wait()
	return c.consumerGroup.Close()
}

// flush applies a batch and records the outcome
func (c *Consumer) flush(batch []domain.PlayerInput) {
	if len(batch) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	result := c.applier.ApplyBatch(ctx, batch)
	for i := 0; i < result.Applied; i++ {
		c.recorder.IncIngested(resultApplied)
	}
	for i := 0; i < result.Failed; i++ {
		c.recorder.IncIngested(resultFailed)
	}

	if result.Failed > 0 {
		c.logger.Error("batch applied with failures",
			"batch_size", len(batch),
			"applied", result.Applied,
			"failed", result.Failed,
		)
		return
	}
	c.logger.Debug("applied batch", "batch_size", len(batch))
}

// consumerGroupHandler implements sarama.ConsumerGroupHandler
type consumerGroupHandler struct {
	consumer *Consumer
	ready    chan bool
}

// Setup is called at the beginning of a new session
func (h *consumerGroupHandler) Setup(sarama.ConsumerGroupSession) error {
	close(h.ready)
	return nil
}

// Cleanup is called at the end of a session
func (h *consumerGroupHandler) Cleanup(sarama.ConsumerGroupSession) error {
	return nil
}

// ConsumeClaim processes messages from a topic partition. Offsets are
// marked only after the batch holding them has been applied, so a crash
// replays the unflushed tail (at-least-once).
func (h *consumerGroupHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	c := h.consumer
	batch := make([]domain.PlayerInput, 0, c.config.BatchSize)
	var pending []*sarama.ConsumerMessage
	batchTimer := time.NewTimer(c.config.BatchTimeout)
	defer batchTimer.Stop()

	processBatch := func() {
		c.flush(batch)
		for _, message := range pending {
			session.MarkMessage(message, "")
		}
		batch = batch[:0]
		pending = pending[:0]
	}

	for {
		select {
		case <-session.Context().Done():
			// Process remaining batch before exit
			processBatch()
			return nil

		case <-batchTimer.C:
			processBatch()
			batchTimer.Reset(c.config.BatchTimeout)

		case message, ok := <-claim.Messages():
			if !ok {
				processBatch()
				return nil
			}
			pending = append(pending, message)

			in, err := DecodePlayerMessage(message.Value)
			if err != nil {
				result := resultMalformed
				if domain.IsValidationError(err) {
					result = resultInvalid
				}
				c.recorder.IncIngested(result)
				c.logger.Warn("skipping player message",
					"error", err,
					"offset", message.Offset,
					"partition", message.Partition,
				)
				continue
			}

			batch = append(batch, in)
			if len(batch) >= c.config.BatchSize {
				processBatch()
				batchTimer.Reset(c.config.BatchTimeout)
			}
		}
	}
}

// DecodePlayerMessage parses and validates one player update message. The
// payload has the same shape as the HTTP write body.
func DecodePlayerMessage(data []byte) (domain.PlayerInput, error) {
	var in domain.PlayerInput
	if err := json.Unmarshal(data, &in); err != nil {
		return domain.PlayerInput{}, fmt.Errorf("decoding player message: %w", err)
	}
	if err := in.Validate(); err != nil {
		return domain.PlayerInput{}, err
	}
	return in, nil
}

// EncodePlayerMessage renders a player update for the topic
func EncodePlayerMessage(in domain.PlayerInput) ([]byte, error) {
	data, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("encoding player message: %w", err)
	}
	return data, nil
}

type nopRecorder struct{}

func (nopRecorder) IncIngested(string) {}
