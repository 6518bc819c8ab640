package main

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/eion/userops/internal/users"
)

type validateReport struct {
	Source string `json:"source"`
	Rows   int    `json:"rows"`
	Valid  bool   `json:"valid"`
}

func init() {
	cmd := &cobra.Command{
		Use:   "validate <csv>",
		Short: "Parse a source and report its row count",
		Args:  cobra.ExactArgs(1),
		Run:   runValidate,
	}

	RootCmd.AddCommand(cmd)
}

func runValidate(cmd *cobra.Command, args []string) {
	report, err := validateSource(cmd.Context(), args[0], newLogger())
	if err != nil {
		exitErr("validate", err)
	}
	if err := printJSON(cmd.OutOrStdout(), report); err != nil {
		exitErr("write output", err)
	}
}

func validateSource(ctx context.Context, source string, logger *zap.Logger) (*validateReport, error) {
	rows, err := users.NewCSVLoader(logger).InitUsers(ctx, source)
	if err != nil {
		return nil, err
	}
	return &validateReport{Source: source, Rows: len(rows), Valid: true}, nil
}
