package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"cepstra/internal/keymap"
)

var kindDescriptions = map[keymap.Kind]string{
	keymap.Linear: "linear filter bank",
	keymap.Log:    "log (mel) filter bank",
}

func newKeymapCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:         "keymap",
		Short:       "Print the field rename table",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			entries := keymap.Entries()
			if asJSON {
				return writeJSON(cmd, entries)
			}
			title := cases.Title(language.English)
			rows := make([][]string, 0, len(entries))
			for _, e := range entries {
				rows = append(rows, []string{
					title.String(kindDescriptions[e.Kind]),
					e.Internal,
					e.Canonical,
				})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable(out, []string{"Pipeline", "Field", "Canonical"}, rows, nil))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of a table")
	return cmd
}
