package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dyluth/gazette/internal/listing"
	"github.com/dyluth/gazette/internal/printer"
	"github.com/dyluth/gazette/internal/watch"
	"github.com/spf13/cobra"
)

var (
	watchOutputFormat string
	watchTimeout      time.Duration
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Monitor cache purge activity",
	Long: `Stream cache purge events as they occur.

Purges come from 'gazette purge' and from the /api/revalidate endpoint
that WordPress calls on publish.

Output Formats:
  default - Human-readable output with timestamps and emojis
  jsonl   - Line-delimited JSON for programmatic processing

Examples:
  # Watch until interrupted
  gazette watch

  # Stop after ten minutes and export events as JSON
  gazette watch --timeout=10m --output=jsonl > purges.jsonl`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVarP(&watchOutputFormat, "output", "o", "default", "Output format (default or jsonl)")
	watchCmd.Flags().DurationVar(&watchTimeout, "timeout", 0, "Stop after this long (0 = until interrupted)")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	format, err := listing.ParseOutputFormat(watchOutputFormat)
	if err != nil {
		return printer.Error(
			"invalid output format",
			fmt.Sprintf("Unknown format: %s", watchOutputFormat),
			[]string{"Valid formats: default, jsonl"},
		)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	rc, err := requireCache(ctx, cfg)
	if err != nil {
		return err
	}
	defer rc.Close()

	sub, err := rc.SubscribePurgeEvents(ctx)
	if err != nil {
		return fmt.Errorf("failed to subscribe to purge events: %w", err)
	}
	defer sub.Close()

	if format == listing.OutputFormatDefault {
		printer.Step("Watching purge events for %s (Ctrl+C to stop)\n", rc.Namespace())
	}

	n, err := watch.Stream(ctx, sub, cmd.OutOrStdout(), watch.Options{
		Timeout: watchTimeout,
		Format:  format,
		OnError: func(err error) {
			printer.Warning("Purge event error: %v\n", err)
		},
	})
	if err != nil {
		return err
	}

	if format == listing.OutputFormatDefault {
		printer.Info("\n%d purge events seen\n", n)
	}
	return nil
}
