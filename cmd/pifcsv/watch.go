package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/pifcsv/internal/watch"
)

func newWatchCommand(ctx *commandContext) *cobra.Command {
	var outDir string
	var conv conversionFlags

	cmd := &cobra.Command{
		Use:   "watch [inbox]",
		Short: "Convert templates as they are saved into an inbox directory",
		Long: `Watch an inbox directory and convert every template saved into it.
Converted templates move to <inbox>/Converted; a template that fails stays in
place with a "<name> - failed.txt" report and is retried when saved again.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			dir := cfg.Watch.Dir
			if len(args) == 1 {
				dir = args[0]
			}
			if !cmd.Flags().Changed("out-dir") {
				outDir = cfg.Watch.OutputDir
			}

			svc, err := ctx.openService(cmd.Context())
			if err != nil {
				return err
			}
			defer svc.Close()

			opts, err := conv.apply(cmd, svc.Defaults())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			w := watch.New(watch.Config{
				Dir:       dir,
				OutputDir: outDir,
				Debounce:  cfg.Watch.Debounce,
				Options:   opts,
				OnResult: func(r watch.Result) {
					if r.Err != nil {
						fmt.Fprintf(out, "FAILED %s: %s\n", r.Source, describeError(r.Err))
						return
					}
					fmt.Fprintf(out, "%s -> %s (%s)\n", r.Source, r.Output, summaryLine(r.Summary))
				},
			}, svc, slog.Default())
			return w.Run(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&outDir, "out-dir", "", "Directory receiving the output files (default: the inbox)")
	conv.register(cmd)
	return cmd
}
