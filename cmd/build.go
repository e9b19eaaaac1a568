package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newBuildCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Render rss.xml and sitemap.xml into the configured output",
		Long: `Fetches every post (up to the configured cap) and every page, renders the
RSS feed and sitemap, and writes them to the configured backend. When a
Pub/Sub topic is configured the build result is published to it.`,
		Args: cobra.NoArgs,
		RunE: runBuildCommand,
	}
	cmd.Flags().Bool("dry-run", false, "render into memory and skip publishing")
	return cmd
}

func runBuildCommand(cmd *cobra.Command, _ []string) error {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}
	builder, err := appInstance.Builder(cmd.Context())
	if err != nil {
		return fmt.Errorf("create builder: %w", err)
	}
	report, err := builder.Run(cmd.Context())
	if err != nil {
		return fmt.Errorf("build %s: %w", report.ID, err)
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}
