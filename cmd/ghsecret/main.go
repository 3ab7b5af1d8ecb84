package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	apperrors "github.com/skiyl9x/ghsecret/internal/errors"
)

// Exit codes
const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

const usageLine = "Usage: ghsecret --lg=<github_login> --tk=<github_token> --sn=<secret_name> --repo=<repository_name> --filename=<filename_with_secret>"

// reportedError has already been shown to the user; only its exit code matters
type reportedError struct {
	code int
	err  error
}

func (e *reportedError) Error() string {
	return e.err.Error()
}

func (e *reportedError) Unwrap() error {
	return e.err
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run executes one invocation and returns the process exit code
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	a := newApp(stdout, stderr)
	cmd := newRootCmd(a)
	cmd.SetArgs(args)

	return a.exitCode(cmd.ExecuteContext(ctx))
}

// exitCode reports err (unless it was already reported) and maps it to an exit code
func (a *app) exitCode(err error) int {
	if err == nil {
		return exitOK
	}

	var reported *reportedError
	if errors.As(err, &reported) {
		return reported.code
	}

	// Anything that failed before a command started is an argument problem
	if !a.started || apperrors.Is(err, apperrors.ErrorTypeUsage) {
		fmt.Fprintf(a.stdout, "%s\n%s\n", usageMessage(err), usageLine)
		return exitUsage
	}

	out := a.output()
	var se *apperrors.SecretError
	if errors.As(err, &se) {
		out.Error(se.Message)
		if se.Err != nil {
			a.logger.Debugf("cause: %v", se.Err)
		}
		out.Hint(se.Hint)
	} else {
		out.Error(err.Error())
	}
	return exitFailure
}

func usageMessage(err error) string {
	var se *apperrors.SecretError
	if errors.As(err, &se) {
		if se.Err != nil {
			return fmt.Sprintf("%s: %v", se.Message, se.Err)
		}
		return se.Message
	}
	return err.Error()
}
