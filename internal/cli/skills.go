package cli

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var skillsJSON bool

var skillsCmd = &cobra.Command{
	Use:   "skills",
	Short: "List available skills",
	Args:  cobra.NoArgs,
	RunE:  runSkills,
}

func init() {
	skillsCmd.Flags().BoolVar(&skillsJSON, "json", false, "print full descriptors as JSON")
}

func runSkills(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer rt.Close()

	descriptors, err := rt.catalog.List(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if skillsJSON {
		data, err := json.MarshalIndent(descriptors, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(out, string(data))
		return err
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tICON\tDESCRIPTION")
	for _, d := range descriptors {
		fmt.Fprintf(w, "%s\t%s\t%s\n", d.Name, d.Icon.Value, d.Description)
	}
	return w.Flush()
}
