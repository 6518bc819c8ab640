package main

import (
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "average <csv>",
		Short: "Mean age grouped by the first letter of the name",
		Args:  cobra.ExactArgs(1),
		Run:   runAverage,
	}

	RootCmd.AddCommand(cmd)
}

func runAverage(cmd *cobra.Command, args []string) {
	ctx := cmd.Context()

	svc, err := openService(ctx, args[0], newLogger())
	if err != nil {
		exitErr("load source", err)
	}

	means, err := svc.CalcAverageAgeByFirstLetter(ctx)
	if err != nil {
		exitErr("average", err)
	}
	if err := printJSON(cmd.OutOrStdout(), means); err != nil {
		exitErr("write output", err)
	}
}
