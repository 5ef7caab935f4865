package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/gwent-leaderboard/internal/domain"
	"github.com/spf13/cobra"
)

var (
	host    string
	updates int
)

var httpCmd = &cobra.Command{
	Use:   "http",
	Short: "POST fake players to the leaderboard API",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runHTTP(cmd.Context())
	},
}

func init() {
	httpCmd.Flags().StringVar(&host, "host", envOr("LEADERBOARD_HOST", "http://localhost:8080"), "The host address of the server")
	httpCmd.Flags().IntVar(&updates, "updates", 0, "Stat updates to send for created players")
	rootCmd.AddCommand(httpCmd)
}

func runHTTP(ctx context.Context) error {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	if ctx == nil {
		ctx = context.Background()
	}

	gen, err := newGenerator(seed, game)
	if err != nil {
		return err
	}
	gen.clientIDs = clientIDs

	client := &http.Client{Timeout: 10 * time.Second}
	created, updated, failed := 0, 0, 0
	for i := 0; i < players; i++ {
		in := gen.NewPlayer()
		saved, err := postPlayer(ctx, client, host, in)
		if err != nil {
			logger.Error("failed to create player", "error", err)
			failed++
			continue
		}
		gen.Track(in, saved.ID)
		created++
	}

	// A POST carrying a known id updates that player under either upsert mode
	for i := 0; i < updates && len(gen.pool) > 0; i++ {
		if _, err := postPlayer(ctx, client, host, gen.UpdatePlayer()); err != nil {
			logger.Error("failed to update player", "error", err)
			failed++
			continue
		}
		updated++
	}

	logger.Info("seeding completed", "created", created, "updated", updated, "failed", failed)
	if failed > 0 {
		return fmt.Errorf("%d of %d writes failed", failed, players+updates)
	}
	return nil
}

func postPlayer(ctx context.Context, client *http.Client, host string, in domain.PlayerInput) (domain.PlayerRecord, error) {
	body, err := json.Marshal(in)
	if err != nil {
		return domain.PlayerRecord{}, fmt.Errorf("encoding player: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, host+"/api/players", bytes.NewReader(body))
	if err != nil {
		return domain.PlayerRecord{}, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return domain.PlayerRecord{}, fmt.Errorf("posting player: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return domain.PlayerRecord{}, fmt.Errorf("posting player: status %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}

	var saved domain.PlayerRecord
	if err := json.NewDecoder(resp.Body).Decode(&saved); err != nil {
		return domain.PlayerRecord{}, fmt.Errorf("decoding response: %w", err)
	}
	return saved, nil
}
