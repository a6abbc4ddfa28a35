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

// repostsCmd fetches any user's reposts from the relays.
var repostsCmd = &cobra.Command{
	Use:   "reposts <pubkey>",
	Short: "Fetch a user's reposts from the relays",
	Long: `Queries the relays for the given user's repost assertions and prints
them most recent first. Read-only: the local cache is not touched.`,
	Args: cobra.ExactArgs(1),
	RunE: runReposts,
}

func init() {
	RootCmd.AddCommand(repostsCmd)
}

func runReposts(cmd *cobra.Command, args []string) error {
	pubkey := args[0]

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

	signer := relay.NewLocalSigner(cfg.Server.Pubkey, cfg.Server.Secret)
	gateway := relay.NewClient(cfg.Relay, signer, l)
	store := repost.NewGormStore(db, cfg.Server.Pubkey)
	engine := repost.NewEngine(store, gateway, repost.Config{
		Pubkey:     cfg.Server.Pubkey,
		FetchLimit: cfg.Server.FetchLimit,
	}, l)
	defer engine.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	recs, err := engine.FetchUserRepostRecords(ctx, pubkey)
	if err != nil {
		return err
	}

	fmt.Printf("%d reposts by %s\n", len(recs), pubkey)
	for _, rec := range recs {
		ts := time.Unix(rec.CreatedAt, 0).UTC().Format(time.RFC3339)
		fmt.Printf("  %s  %s  (event %s)\n", ts, rec.ContentRef, rec.AssertionEventID)
	}
	return nil
}
