package cmd

import (
	"context"
	"fmt"
	"time"

	"repost-manager/core/config"
	"repost-manager/core/database"
	"repost-manager/core/logger"
	"repost-manager/core/relay"
	"repost-manager/feature/repost"

	"github.com/spf13/cobra"
)

var syncLimit int

// syncCmd runs a one-shot reconciliation for the configured user.
var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Sync the local repost cache from the relays",
	Long: `Runs the two-phase repost reconciliation once: seeds from the local
cache, then merges the relays' view, persisting anything newer.

Examples:
  # Sync with the configured fetch limit
  repost-manager sync

  # Bound the remote query
  repost-manager sync --limit 100`,
	RunE: runSync,
}

func init() {
	syncCmd.Flags().IntVar(&syncLimit, "limit", 0, "Maximum remote events to fetch (0 = configured default)")
	RootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	l, err := logger.New(&cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer l.Sync()

	db, err := database.Connect(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to local cache database: %w", err)
	}
	if err := repost.Migrate(db); err != nil {
		return err
	}

	limit := syncLimit
	if limit <= 0 {
		limit = cfg.Server.FetchLimit
	}

	signer := relay.NewLocalSigner(cfg.Server.Pubkey, cfg.Server.Secret)
	gateway := relay.NewClient(cfg.Relay, signer, l)
	store := repost.NewGormStore(db, cfg.Server.Pubkey)
	engine := repost.NewEngine(store, gateway, repost.Config{
		Pubkey:     cfg.Server.Pubkey,
		FetchLimit: limit,
	}, l)
	defer engine.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	result, err := engine.SyncUserReposts(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Synced %d reposts for %s\n", len(result.OrderedRefs), cfg.Server.Pubkey)
	for _, ref := range result.OrderedRefs {
		fmt.Printf("  %s  (event %s)\n", ref, result.EventIDs[ref])
	}
	return nil
}
