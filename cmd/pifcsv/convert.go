package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/pifcsv/internal/core"
	"github.com/JonMunkholm/pifcsv/internal/output"
	"github.com/JonMunkholm/pifcsv/internal/service"
	"github.com/JonMunkholm/pifcsv/internal/watch"
)

// stdio names standard input as a template and standard output as a target.
const stdio = "-"

func newConvertCommand(ctx *commandContext) *cobra.Command {
	var outPath, outDir string
	var conv conversionFlags

	cmd := &cobra.Command{
		Use:   "convert <template>...",
		Short: "Convert templates into PIF record files",
		Long: `Convert one or more CSV/TSV templates. Arguments may be glob patterns
("data/**/*.csv"). Each template is written beside itself as
"<name>-pif.<ext>" unless --output or --out-dir is given. "-" reads the
template from standard input and writes the records to standard output.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			inputs, err := expandTemplates(args)
			if err != nil {
				return err
			}
			if outPath != "" && len(inputs) > 1 {
				return fmt.Errorf("--output needs exactly one template, got %d; use --out-dir", len(inputs))
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

			var failed int
			for _, in := range inputs {
				out := targetPath(in, outPath, outDir, opts.Format)
				sum, err := convertOne(cmd, svc, in, out, opts)
				if err != nil {
					failed++
					fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s\n", displayName(in), describeError(err))
					continue
				}
				if out != stdio {
					fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s (%s)\n", displayName(in), out, summaryLine(sum))
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d templates failed", failed, len(inputs))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&outPath, "output", "o", "", `Output file for a single template ("-" for stdout)`)
	cmd.Flags().StringVar(&outDir, "out-dir", "", "Directory receiving the output files")
	conv.register(cmd)
	cmd.MarkFlagsMutuallyExclusive("output", "out-dir")

	return cmd
}

func convertOne(cmd *cobra.Command, svc *service.Service, in, out string, opts service.Options) (*service.Summary, error) {
	if in != stdio && out != stdio {
		return svc.ConvertFile(cmd.Context(), in, out, opts)
	}

	var src io.ReadSeeker
	if in == stdio {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		src = bytes.NewReader(data)
	} else {
		f, err := os.Open(in)
		if err != nil {
			return nil, fmt.Errorf("open template: %w", err)
		}
		defer f.Close()
		src = f
	}

	// Buffer so a failing template writes nothing.
	var buf bytes.Buffer
	sum, err := svc.Convert(cmd.Context(), src, in, &buf, opts)
	if err != nil {
		return nil, err
	}
	if out == stdio {
		if _, err := buf.WriteTo(cmd.OutOrStdout()); err != nil {
			return nil, fmt.Errorf("write output: %w", err)
		}
		return sum, nil
	}
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}
	if err := os.WriteFile(out, buf.Bytes(), 0o644); err != nil {
		return nil, fmt.Errorf("write output: %w", err)
	}
	return sum, nil
}

// targetPath picks where the records of template in are written.
func targetPath(in, outPath, outDir string, f output.Format) string {
	switch {
	case outPath != "":
		return outPath
	case in == stdio && outDir == "":
		return stdio
	case in == stdio:
		return filepath.Join(outDir, output.OutputPath("stdin", f))
	case outDir != "":
		return filepath.Join(outDir, filepath.Base(output.OutputPath(in, f)))
	default:
		return output.OutputPath(in, f)
	}
}

// expandTemplates resolves glob arguments. A pattern must match at least one
// template; plain paths are passed through so a missing file reports its own
// error.
func expandTemplates(args []string) ([]string, error) {
	var inputs []string
	for _, arg := range args {
		if arg == stdio || !strings.ContainsAny(arg, "*?[{") {
			inputs = append(inputs, arg)
			continue
		}
		matches, err := doublestar.FilepathGlob(arg, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("bad pattern %q: %w", arg, err)
		}
		var found bool
		for _, m := range matches {
			if watch.IsTemplate(m) {
				inputs = append(inputs, m)
				found = true
			}
		}
		if !found {
			return nil, fmt.Errorf("no templates match %q", arg)
		}
	}
	slices.Sort(inputs)
	inputs = slices.Compact(inputs)
	if slices.Contains(inputs, stdio) && len(inputs) > 1 {
		return nil, errors.New(`"-" cannot be combined with other templates`)
	}
	return inputs, nil
}

// describeError renders a conversion failure with its code and fix.
func describeError(err error) string {
	if core.IsUserFacing(err) {
		return core.FormatUserError(err)
	}
	return err.Error()
}

func summaryLine(sum *service.Summary) string {
	s := fmt.Sprintf("%d records", sum.Records)
	if n := len(sum.Diagnostics); n > 0 {
		s += fmt.Sprintf(", %d warnings", n)
	}
	return s
}

func displayName(in string) string {
	if in == stdio {
		return "stdin"
	}
	return in
}
