package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/KaramelBytes/trackscope-cli/internal/pipeline"
	"github.com/KaramelBytes/trackscope-cli/internal/utils"
)

var (
	abFlags = runFlags{slots: -1}
	abQuiet bool
)

var analyzeBatchCmd = &cobra.Command{
	Use:   "analyze-batch <sources...>",
	Short: "Analyze several track databases with progress and per-source summaries",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sources := expandSources(args)
		if len(sources) == 0 {
			return fmt.Errorf("no input files matched")
		}
		c, err := currentConfig()
		if err != nil {
			return err
		}
		log, err := newLogger(c)
		if err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()
		outDir := firstNonEmpty(abFlags.outDir, c.OutputDir)
		out := cmd.OutOrStdout()

		var errs error
		total := len(sources)
		for i, path := range sources {
			if !abQuiet {
				fmt.Fprintf(out, "[%d/%d] Processing %s...\n", i+1, total, filepath.Base(path))
			}
			opt, format, err := abFlags.options(c, path)
			if err != nil {
				return err
			}
			rep, err := pipeline.Run(commandContext(cmd), opt, log)
			if err != nil {
				// one unavailable source does not stop the batch
				errs = multierr.Append(errs, err)
				if !abQuiet {
					fmt.Fprintf(out, "✗ Skipped %s: %v\n", filepath.Base(path), err)
				}
				continue
			}
			data, err := render(rep, format)
			if err != nil {
				return err
			}
			if outDir == "" {
				if err := emit(out, data, "", abQuiet); err != nil {
					return err
				}
				continue
			}
			base := filepath.Base(path)
			name := utils.Slug(strings.TrimSuffix(base, filepath.Ext(base))) + ".analysis_summary." + format
			target := filepath.Join(outDir, name)
			if unique := utils.UniquePath(target); unique != target {
				if !abQuiet {
					fmt.Fprintf(out, "⚠ Detected existing summary, writing to %s to avoid overwrite.\n", filepath.Base(unique))
				}
				target = unique
			}
			if err := emit(out, data, target, abQuiet); err != nil {
				return err
			}
		}
		return errs
	},
}

// expandSources resolves globs, keeps literal paths that exist, drops
// duplicates and sorts the result.
func expandSources(args []string) []string {
	var files []string
	seen := map[string]struct{}{}
	for _, arg := range args {
		matches, _ := filepath.Glob(arg)
		if len(matches) == 0 {
			// treat as literal path if exists
			if _, err := os.Stat(arg); err == nil {
				matches = []string{arg}
			}
		}
		for _, m := range matches {
			if _, ok := seen[m]; ok {
				continue
			}
			seen[m] = struct{}{}
			files = append(files, m)
		}
	}
	sort.Strings(files)
	return files
}

func init() {
	rootCmd.AddCommand(analyzeBatchCmd)
	abFlags.register(analyzeBatchCmd)
	analyzeBatchCmd.Flags().BoolVar(&abQuiet, "quiet", false, "suppress progress and non-essential output")
}
