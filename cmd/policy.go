package cmd

import (
	"encoding/json"
	"os"

	"github.com/frahmantamala/workforce-management/internal/authz"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var policyJSON bool

var policyCmd = &cobra.Command{
	Use:   "policy",
	Short: "Inspect the authorization policy",
}

var policyMatrixCmd = &cobra.Command{
	Use:   "matrix",
	Short: "Print who may do what on every entity type",
	RunE: func(cmd *cobra.Command, args []string) error {
		rows := authz.Matrix()
		if policyJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(rows)
		}

		tw := table.NewWriter()
		tw.SetOutputMirror(os.Stdout)
		tw.AppendHeader(table.Row{"Entity", "Operation", "Admin", "Manager", "Employee"})
		var last string
		for _, r := range rows {
			if last != "" && last != string(r.Entity) {
				tw.AppendSeparator()
			}
			last = string(r.Entity)
			tw.AppendRow(table.Row{r.Entity, r.Operation, r.Admin, r.Manager, r.Employee})
		}
		tw.SetStyle(table.StyleLight)
		tw.Render()
		return nil
	},
}

func init() {
	policyMatrixCmd.Flags().BoolVar(&policyJSON, "json", false, "print JSON instead of a table")
	policyCmd.AddCommand(policyMatrixCmd)
}
