package commands

import (
	"context"

	"github.com/dyluth/gazette/internal/printer"
	"github.com/spf13/cobra"
)

var purgeReason string

var purgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Purge the response cache",
	Long: `Delete every cached WordPress response in this site's namespace.

A purge event is published so running 'gazette watch' sessions see it.

Examples:
  gazette purge
  gazette purge --reason "breaking news correction"`,
	Args: cobra.NoArgs,
	RunE: runPurge,
}

func init() {
	purgeCmd.Flags().StringVar(&purgeReason, "reason", "manual purge", "Reason recorded on the purge event")
	rootCmd.AddCommand(purgeCmd)
}

func runPurge(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	rc, err := requireCache(ctx, cfg)
	if err != nil {
		return err
	}
	defer rc.Close()

	n, err := rc.Purge(ctx, purgeReason)
	if err != nil {
		return printer.ErrorWithContext(
			"cache purge failed",
			err.Error(),
			map[string]string{"Namespace": rc.Namespace()},
			nil,
		)
	}

	if n == 0 {
		printer.Info("Cache for %s was already empty\n", rc.Namespace())
		return nil
	}
	printer.Success("Purged %d cached responses from %s\n", n, rc.Namespace())
	return nil
}
