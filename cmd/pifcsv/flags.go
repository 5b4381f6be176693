package main

import (
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/pifcsv/internal/output"
	"github.com/JonMunkholm/pifcsv/internal/service"
)

// conversionFlags are the per-command overrides of the configured
// conversion options.
type conversionFlags struct {
	format    string
	charset   string
	merge     bool
	cellLimit int
}

func (f *conversionFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.format, "format", "f", "", "Output format (json, ndjson, yaml)")
	cmd.Flags().StringVar(&f.charset, "charset", "", "Template character set (auto, utf-8, windows-1252, ...)")
	cmd.Flags().BoolVar(&f.merge, "merge-properties", false, "Merge properties with the same name and conditions")
	cmd.Flags().IntVar(&f.cellLimit, "cell-limit", 0, "Maximum number of cells in a template")
}

// apply overrides opts with the flags the user set.
func (f *conversionFlags) apply(cmd *cobra.Command, opts service.Options) (service.Options, error) {
	flags := cmd.Flags()
	if flags.Changed("format") {
		format, err := output.ParseFormat(f.format)
		if err != nil {
			return opts, err
		}
		opts.Format = format
	}
	if flags.Changed("charset") {
		opts.Charset = f.charset
	}
	if flags.Changed("merge-properties") {
		opts.MergeProperties = f.merge
	}
	if flags.Changed("cell-limit") {
		opts.CellLimit = f.cellLimit
	}
	return opts, nil
}
