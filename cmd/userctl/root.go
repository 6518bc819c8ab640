package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/eion/userops/internal/users"
)

var verbose bool

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "userctl",
	Short: "Inspect user CSV sources offline",
	Long:  "Validates and aggregates user CSV sources with the same loader and grouping engine the server uses.",
}

func init() {
	RootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log loader activity to stderr")
}

func newLogger() *zap.Logger {
	if !verbose {
		return zap.NewNop()
	}
	logger, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

// openService loads source into a fresh in-memory store
func openService(ctx context.Context, source string, logger *zap.Logger) (users.UserService, error) {
	svc := users.NewUserService(users.NewInMemoryStore(), users.NewCSVLoader(logger), logger)

	rows, err := svc.Bootstrap(ctx, source)
	if err != nil {
		return nil, err
	}
	if err := svc.AddUsers(ctx, rows); err != nil {
		return nil, err
	}
	return svc, nil
}

func printJSON(w io.Writer, v interface{}) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}
