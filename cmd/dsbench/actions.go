package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"dsbench/internal/actions"
)

func newActionsCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "actions",
		Short: "List the actions an agent can run",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			catalog := actions.Catalog()

			if asJSON {
				decls := make([]any, 0, len(catalog))
				for _, d := range catalog {
					decls = append(decls, d.Declaration())
				}
				data, err := json.MarshalIndent(decls, "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(out, string(data))
				return nil
			}

			for _, d := range catalog {
				fmt.Fprintln(out, d.Usage())
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print function declarations as JSON")
	return cmd
}
