package cli

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"

	"github.com/matzehuels/layerviz/pkg/errors"
)

// Exit codes.
const (
	ExitOK          = 0
	ExitFailure     = 1
	ExitUsage       = 2   // bad arguments, flags or input files
	ExitInterrupted = 130 // shell convention for SIGINT
)

// ExitCode maps a command error to the process exit status.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case stderrors.Is(err, context.Canceled):
		return ExitInterrupted
	}
	switch errors.GetCode(err) {
	case errors.ErrCodeInvalidInput, errors.ErrCodeInvalidFormat, errors.ErrCodeUnsupported:
		return ExitUsage
	}
	return ExitFailure
}

// ReportError writes err to w the way status lines are styled and returns
// its exit code. Interrupts are not reported.
func ReportError(w io.Writer, err error) int {
	code := ExitCode(err)
	if code != ExitOK && code != ExitInterrupted {
		fmt.Fprintln(w, styleIconError.Render(iconError)+" "+StyleError.Render(errors.UserMessage(err)))
	}
	return code
}
