package cmd

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"resell-reports/internal/definition"
)

// listCmd represents the list command.
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the available reports",
	Run:   runList,
}

func init() {
	rootCmd.AddCommand(listCmd)
}

// runList prints every registered report. It needs no configuration.
func runList(cmd *cobra.Command, args []string) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCATEGORY\tTITLE\tCOLUMNS")
	for _, def := range definition.NewRegistry().List() {
		meta := def.Meta()
		keys := make([]string, 0, len(meta.Columns))
		for _, c := range meta.Columns {
			keys = append(keys, c.Key)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", meta.ID, meta.Category, meta.Title, strings.Join(keys, ","))
	}
	w.Flush()
}
