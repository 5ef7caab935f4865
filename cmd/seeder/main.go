package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	players   int
	seed      int64
	game      string
	clientIDs bool
)

var rootCmd = &cobra.Command{
	Use:   "seeder",
	Short: "Generate fake Gwent players for the leaderboard",
	Long: `Generates fake players with plausible stats for every edition and
feeds them to the leaderboard, either through the Kafka ingest topic or
through the HTTP API.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		_ = godotenv.Load()
	},
}

func init() {
	rootCmd.PersistentFlags().IntVar(&players, "players", 100, "Number of players to create")
	rootCmd.PersistentFlags().Int64Var(&seed, "seed", 0, "Random seed (0 = time based)")
	rootCmd.PersistentFlags().StringVar(&game, "game", "", "Only generate players for this edition")
	rootCmd.PersistentFlags().BoolVar(&clientIDs, "client-ids", false, "Send client-generated ids on create (needs upsert_on_conflict)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "seeder: %s\n", err)
		os.Exit(1)
	}
}
