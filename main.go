package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// exitCode is returned by commands that have already reported their outcome and only
// need the process to exit with a particular status.
type exitCode int

func (e exitCode) Error() string {
	return fmt.Sprintf("exit status %d", int(e))
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := execute(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	var code exitCode
	switch {
	case err == nil:
		return 0
	case errors.As(err, &code):
		return int(code)
	default:
		fmt.Fprintf(stderr, "Error: %s\n", err)
		return 1
	}
}

func newRootCmd() *cobra.Command {
	var params commandParams

	root := &cobra.Command{
		Use:   "website-e2e",
		Short: "Run the end-to-end test suite of the website",
		Long: `website-e2e starts the web servers the site depends on, prepares test data in the
backend, runs the browser test suite across the configured projects, cleans the test
data up again and writes reports.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetVersionTemplate(`{{printf "website-e2e version %s\n" .Version}}`)
	params.addConfigFlags(root.PersistentFlags())

	root.AddCommand(newRunCmd(&params))
	root.AddCommand(newSetupCmd(&params))
	root.AddCommand(newTeardownCmd(&params))
	root.AddCommand(newMatrixCmd(&params))
	root.AddCommand(newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of website-e2e",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "website-e2e version %s\n", version)
		},
	}
}
