package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/felixgeelhaar/auditd/internal/cmd"
	"github.com/felixgeelhaar/auditd/internal/errors"
	"github.com/felixgeelhaar/auditd/internal/exitcode"
)

func main() {
	// serve treats cancellation as a graceful shutdown request
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.ExecuteContext(ctx); err != nil {
		if stderrors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, "\nOperation cancelled by user")
			exitcode.Exit(exitcode.Interrupted)
		}

		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		var ae *errors.AuditError
		if stderrors.As(err, &ae) {
			for _, s := range ae.Suggestions {
				fmt.Fprintf(os.Stderr, "  hint: %s\n", s)
			}
		}
		exitcode.ExitWithError(err)
	}
	exitcode.Exit(exitcode.Success)
}
