package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/pifcsv/internal/output"
)

func newFormatsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "formats",
		Short: "List the output formats",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var rows [][]string
			for _, name := range output.FormatNames() {
				info := output.FormatRegistry[output.Format(name)]
				rows = append(rows, []string{name, info.Extension, info.MIMEType, info.Description})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Format", "Extension", "MIME type", "Description"},
				rows,
				nil,
			))
			return nil
		},
	}
}
