package cli

import (
	"github.com/spf13/cobra"
)

// addHelpCommands adds documentation commands.
func addHelpCommands(rootCmd *cobra.Command) {
	rootCmd.AddCommand(newExamplesCmd())
}

type example struct {
	title    string
	commands []string
}

var workflows = []example{
	{
		title: "Load a day of fills",
		commands: []string{
			"pnl import fills-2025-03-14.csv --dry-run",
			"pnl import fills-2025-03-14.csv",
			"pnl days",
		},
	},
	{
		title: "Review a day",
		commands: []string{
			"pnl report 2025-03-14",
			"pnl report 2025-03-14 --transactions",
			"pnl report --model average_greeks",
		},
	},
	{
		title: "Export for charts and spreadsheets",
		commands: []string{
			"pnl report 2025-03-14 --json > day.json",
			"pnl report 2025-03-14 --yaml",
			"pnl report 2025-03-14 --csv > round-trips.csv",
		},
	},
}

func newExamplesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "examples",
		Short: "Show common workflows",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if output.IsStructured() {
				type view struct {
					Title    string   `json:"title" yaml:"title"`
					Commands []string `json:"commands" yaml:"commands"`
				}
				views := make([]view, 0, len(workflows))
				for _, w := range workflows {
					views = append(views, view{Title: w.title, Commands: w.commands})
				}
				return output.Encode(views)
			}

			for i, w := range workflows {
				if i > 0 {
					output.Println()
				}
				output.Bold(w.title)
				for _, c := range w.commands {
					output.Printf("  $ %s\n", c)
				}
			}
			return nil
		},
	}
}
