package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/IBM/sarama"
	"github.com/gwent-leaderboard/internal/domain"
	"github.com/gwent-leaderboard/internal/kafka"
	"github.com/spf13/cobra"
)

var (
	brokers  string
	topic    string
	rate     int
	duration time.Duration
)

var kafkaCmd = &cobra.Command{
	Use:   "kafka",
	Short: "Publish fake players to the ingest topic",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runKafka()
	},
}

func init() {
	kafkaCmd.Flags().StringVar(&brokers, "brokers", envOr("KAFKA_BROKERS", "localhost:9092"), "Kafka brokers (comma-separated)")
	kafkaCmd.Flags().StringVar(&topic, "topic", envOr("KAFKA_TOPIC", "gwent-player-updates"), "Kafka topic")
	kafkaCmd.Flags().IntVar(&rate, "rate", 0, "Updates per second after the initial players (0 = initial players only)")
	kafkaCmd.Flags().DurationVar(&duration, "duration", 0, "How long to send updates (0 = until interrupted)")
	rootCmd.AddCommand(kafkaCmd)
}

func runKafka() error {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	gen, err := newGenerator(seed, game)
	if err != nil {
		return err
	}
	gen.clientIDs = clientIDs

	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForLocal
	config.Producer.Compression = sarama.CompressionSnappy
	config.Producer.Flush.Frequency = 100 * time.Millisecond
	config.Producer.Flush.Messages = 100
	config.Producer.Return.Successes = true
	config.Producer.Return.Errors = true

	producer, err := sarama.NewAsyncProducer(strings.Split(brokers, ","), config)
	if err != nil {
		return fmt.Errorf("creating producer: %w", err)
	}

	var successCount, errorCount int64
	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		for range producer.Successes() {
			atomic.AddInt64(&successCount, 1)
		}
	}()
	go func() {
		defer wg.Done()
		for err := range producer.Errors() {
			atomic.AddInt64(&errorCount, 1)
			logger.Error("producer error", "error", err)
		}
	}()

	finish := func() error {
		producer.AsyncClose()
		wg.Wait()
		logger.Info("seeding completed",
			"sent", atomic.LoadInt64(&successCount),
			"errors", atomic.LoadInt64(&errorCount),
		)
		return nil
	}

	send := func(p domain.PlayerInput) {
		data, err := kafka.EncodePlayerMessage(p)
		if err != nil {
			logger.Error("failed to encode player", "error", err)
			return
		}
		producer.Input() <- &sarama.ProducerMessage{
			Topic: topic,
			Key:   sarama.StringEncoder(p.ID),
			Value: sarama.ByteEncoder(data),
		}
	}

	logger.Info("creating players", "count", players, "topic", topic)
	for i := 0; i < players; i++ {
		send(gen.NewPlayer())
	}

	if rate <= 0 {
		return finish()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(time.Second / time.Duration(rate))
	defer ticker.Stop()

	var deadline <-chan time.Time
	if duration > 0 {
		deadline = time.After(duration)
	}

	if !clientIDs {
		logger.Warn("server-assigned ids are not visible over Kafka; sending new players instead of updates (see --client-ids)")
	}
	logger.Info("sending updates", "rate", rate)
	for {
		select {
		case <-sigChan:
			return finish()
		case <-deadline:
			return finish()
		case <-ticker.C:
			send(gen.UpdatePlayer())
		}
	}
}

func envOr(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}
