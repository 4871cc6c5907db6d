package main

import (
	"errors"
	"fmt"
	"os"
)

// Exit codes for different failure modes
const (
	ExitSuccess    = 0 // All gates passed
	ExitGateFailed = 1 // One or more gates failed
	ExitError      = 2 // Configuration, input or runtime error
)

// GateFailureError indicates that the evaluation completed,
// but one or more quality gates did not pass.
type GateFailureError struct {
	Message string
}

func (e *GateFailureError) Error() string {
	return e.Message
}

func main() {
	if err := execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)

		var gateErr *GateFailureError
		if errors.As(err, &gateErr) {
			os.Exit(ExitGateFailed)
		}

		os.Exit(ExitError)
	}
}
