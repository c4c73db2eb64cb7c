package commands

import (
	"fmt"

	"github.com/dyluth/gazette/internal/config"
	"github.com/dyluth/gazette/internal/printer"
	"github.com/dyluth/gazette/internal/scaffold"
	"github.com/spf13/cobra"
)

var (
	forceInit bool
	initDir   string
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a new Gazette project",
	Long: `Initialize a new Gazette project with a commented default configuration.

Creates:
  • gazette.yml - Site, WordPress, cache, ads and comment settings

Use --force to overwrite an existing gazette.yml.`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func init() {
	// Note: Cannot use -f shorthand because it conflicts with global --config flag
	initCmd.Flags().BoolVar(&forceInit, "force", false, "Overwrite an existing gazette.yml")
	initCmd.Flags().StringVar(&initDir, "dir", ".", "Directory to initialize")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	created, err := scaffold.Initialize(initDir, forceInit)
	if err != nil {
		if !forceInit && scaffold.CheckExisting(initDir) != nil {
			return printer.Error(
				"project already initialized",
				fmt.Sprintf("Found an existing %s in %s.", config.DefaultPath, initDir),
				[]string{"Overwrite it with the defaults:\n  gazette init --force"},
			)
		}
		return fmt.Errorf("initialization failed: %w", err)
	}

	for _, path := range created {
		printer.Success("Created %s\n", path)
	}
	printer.Info("\nNext steps:\n")
	printer.Info("  1. Set wordpress.graphql_url to your WPGraphQL endpoint\n")
	printer.Info("  2. Run: gazette serve\n")
	return nil
}
