package cli

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/daniyalraza-braincx/emotion-extractor/internal/config"
)

type Dependencies struct {
	Config config.Config
	Logger *slog.Logger
}

func NewRootCmd(deps *Dependencies) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "emotionctl",
		Short:         "Reconcile call emotion timelines offline",
		Long:          "Builds the reconciled emotion timeline and outcome judgment of a call from saved prediction and transcript files.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(NewReconcileCmd(deps))
	rootCmd.AddCommand(NewCategorizeCmd(deps))

	return rootCmd
}
