package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newMetaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "meta <slug>",
		Short: "Print the resolved SEO metadata for a post",
		Args:  cobra.ExactArgs(1),
		RunE:  runMetaCommand,
	}
}

func runMetaCommand(cmd *cobra.Command, args []string) error {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}
	post, ok := appInstance.Gateway().Post(cmd.Context(), args[0])
	if !ok {
		return fmt.Errorf("post %q not found", args[0])
	}
	meta := appInstance.CDN().Meta(appInstance.Resolver().Resolve(&post))

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return fmt.Errorf("write meta: %w", err)
	}
	return nil
}
