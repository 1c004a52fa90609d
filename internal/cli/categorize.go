package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func NewCategorizeCmd(deps *Dependencies) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "categorize LABEL...",
		Short: "Show the sentiment category of emotion labels",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tcfg, err := deps.Config.Timeline()
			if err != nil {
				return err
			}
			for _, label := range args {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", label, tcfg.Taxonomy.Categorize(label))
			}
			return nil
		},
	}

	return cmd
}
