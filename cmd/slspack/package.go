package main

import (
	"context"
	"path/filepath"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/scadu/serverless/internal/packager"
	"github.com/scadu/serverless/internal/progress"
)

var (
	packageFunctions   []string
	packageLayers      []string
	packageOutDir      string
	packageConcurrency int
	packageNoProgress  bool
	packageTimeout     time.Duration

	packageCmd = &cobra.Command{
		Use:   "package",
		Short: "Build the service's deployment artifacts",
		Long: `Package selects the files of every function and layer according to the
configured include / exclude patterns and writes one zip archive per
packaging unit into the output directory. With --function or --layer the
run is restricted to the named units.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, path, err := loadConfig()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			if packageTimeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, packageTimeout)
				defer cancel()
			}

			var bar *progress.Bar
			if !packageNoProgress {
				bar = progress.New(0, "packaging")
			}

			artifacts, err := packager.New(cfg).
				WithRootDir(filepath.Dir(path)).
				WithConfigFile(filepath.Base(path)).
				WithOutputDir(packageOutDir).
				WithConcurrency(packageConcurrency).
				WithOnly(packageFunctions...).
				WithOnly(packageLayers...).
				WithLogger(log).
				WithProgress(bar).
				Run(ctx)
			bar.Finish()
			if err != nil {
				return err
			}

			table := tablewriter.NewTable(cmd.OutOrStdout())
			table.Header([]string{"Unit", "Kind", "Mode", "Artifact", "Files", "Size"})
			for _, a := range artifacts {
				files, size := strconv.Itoa(a.Files), humanize.Bytes(uint64(a.Bytes))
				if a.Mode == packager.ModePreBuilt {
					files, size = "-", "-"
				}
				if err := table.Append([]string{a.Unit, a.Kind.String(), a.Mode.String(), a.Path, files, size}); err != nil {
					return err
				}
			}
			return table.Render()
		},
	}
)

func init() {
	packageCmd.Flags().StringArrayVarP(&packageFunctions, "function", "f", nil, "package only the named function (repeatable)")
	packageCmd.Flags().StringArrayVarP(&packageLayers, "layer", "l", nil, "package only the named layer (repeatable)")
	packageCmd.Flags().StringVar(&packageOutDir, "out-dir", ".serverless", "artifact directory, relative to the service directory")
	packageCmd.Flags().IntVar(&packageConcurrency, "concurrency", 4, "number of archives built at the same time")
	packageCmd.Flags().BoolVar(&packageNoProgress, "no-progress", false, "disable the progress bar")
	packageCmd.Flags().DurationVar(&packageTimeout, "timeout", 0, "abort packaging after this duration (0 means no limit)")
}
