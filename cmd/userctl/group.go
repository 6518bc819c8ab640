package main

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/eion/userops/internal/users"
)

var (
	groupBy        string
	groupFirstChar bool
	groupMean      string
)

type groupResult struct {
	By        string             `json:"by"`
	FirstChar bool               `json:"first_char"`
	Mean      string             `json:"mean"`
	Groups    map[string]float64 `json:"groups"`
}

func init() {
	cmd := &cobra.Command{
		Use:   "group <csv>",
		Short: "Group rows by a field and average another",
		Args:  cobra.ExactArgs(1),
		Run:   runGroup,
	}
	cmd.Flags().StringVar(&groupBy, "by", users.FieldName, "Field to group by")
	cmd.Flags().BoolVar(&groupFirstChar, "first-char", false, "Group by the first character of the field")
	cmd.Flags().StringVar(&groupMean, "mean", users.FieldAge, "Numeric field to average")

	RootCmd.AddCommand(cmd)
}

func runGroup(cmd *cobra.Command, args []string) {
	result, err := groupSource(cmd.Context(), args[0], groupBy, groupFirstChar, groupMean, newLogger())
	if err != nil {
		exitErr("group", err)
	}
	if err := printJSON(cmd.OutOrStdout(), result); err != nil {
		exitErr("write output", err)
	}
}

func groupSource(ctx context.Context, source, by string, firstChar bool, field string, logger *zap.Logger) (*groupResult, error) {
	svc, err := openService(ctx, source, logger)
	if err != nil {
		return nil, err
	}

	groups, err := svc.GroupMean(ctx, by, firstChar, field)
	if err != nil {
		return nil, err
	}
	return &groupResult{By: by, FirstChar: firstChar, Mean: field, Groups: groups}, nil
}
