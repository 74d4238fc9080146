package cmd

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"nuxthub/cli/internal/assets"
	"nuxthub/cli/internal/build"
	"nuxthub/cli/internal/wrangler"
)

var previewCmd = &cobra.Command{
	Use:   "preview [dir]",
	Short: "Preview the production build locally with `wrangler pages dev`",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		dir := projectDir(args)
		distDir := filepath.Join(dir, build.OutputDir)
		hub, err := assets.ReadHubConfig(distDir)
		if err != nil {
			return err
		}
		return wrangler.Preview(ctx, dir, distDir, hub)
	},
}

func init() {
	rootCmd.AddCommand(previewCmd)
}
