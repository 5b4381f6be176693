package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/pifcsv/internal/core"
	"github.com/JonMunkholm/pifcsv/internal/service"
)

func newHeadersCommand(ctx *commandContext) *cobra.Command {
	var charset string

	cmd := &cobra.Command{
		Use:   "headers <template>",
		Short: "Show how each header column of a template is read",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := ctx.defaults()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("charset") {
				opts.Charset = charset
			}

			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open template: %w", err)
			}
			defer f.Close()

			h, err := service.New(nil, opts).Headers(f, args[0], opts)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderHeaders(h))
			fmt.Fprintf(cmd.OutOrStdout(), "Subsystems: %s\n", strings.Join(h.Subsystems(), ", "))
			if n := len(h.Unknown()); n > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "%d column(s) have no known keyword and are skipped\n", n)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&charset, "charset", "", "Template character set (auto, utf-8, windows-1252, ...)")
	return cmd
}

func renderHeaders(h *core.Header) string {
	rows := make([][]string, 0, len(h.Columns))
	for _, c := range h.Columns {
		keyword := string(c.Kind)
		if !c.Known() {
			keyword = "(skipped)"
		}
		rows = append(rows, []string{
			strconv.Itoa(c.Index + 1),
			c.Header,
			keyword,
			c.Subsystem,
			c.Name,
			c.Unit,
		})
	}
	return renderTable(
		[]string{"#", "Header", "Keyword", "Subsystem", "Name", "Unit"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft},
	)
}
