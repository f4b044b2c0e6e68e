package cli

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/polifund/fundscan/internal/common"
	"github.com/polifund/fundscan/internal/store"
)

func newCacheCommand(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and maintain the persistent annotation cache",
	}
	cmd.AddCommand(newCachePingCommand(root))
	cmd.AddCommand(newCachePruneCommand(root))
	return cmd
}

func openCacheStore(cmd *cobra.Command, root *rootOptions) (*store.DB, error) {
	cfg := common.LoadConfig()
	if root.configPath != "" {
		if err := cfg.ApplyFile(root.configPath); err != nil {
			return nil, err
		}
	}
	if cfg.Cache.DSN == "" {
		return nil, common.NewAppError("CONFIG_ERROR", "FUNDSCAN_CACHE_DSN is not set", common.ErrInvalidInput)
	}
	return store.Open(cmd.Context(), cfg.Cache.DSN, slog.Default())
}

func newCachePingCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check connectivity to the annotation cache store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := openCacheStore(cmd, root)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := db.Ping(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "cache store: OK")
			return nil
		},
	}
}

func newCachePruneCommand(root *rootOptions) *cobra.Command {
	var olderThan time.Duration
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete cached annotations older than a cutoff",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := openCacheStore(cmd, root)
			if err != nil {
				return err
			}
			defer db.Close()

			n, err := db.PruneBefore(cmd.Context(), time.Now().Add(-olderThan))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "pruned %d cached annotations\n", n)
			return nil
		},
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", 720*time.Hour, "age beyond which cached annotations are deleted")
	return cmd
}
