package models

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for conditions callers are expected to test with errors.Is.
var (
	// ErrInvalidBranchName indicates a branch name failed validation.
	ErrInvalidBranchName = errors.New("invalid branch name")

	// ErrAlreadyExists indicates a checkout for the (project, branch) pair
	// is already active.
	ErrAlreadyExists = errors.New("checkout already exists")

	// ErrDirtyCheckout indicates a checkout has uncommitted changes and
	// removal was not forced.
	ErrDirtyCheckout = errors.New("checkout has uncommitted changes")

	// ErrCheckoutBusy indicates the checkout's queue has an active task.
	ErrCheckoutBusy = errors.New("checkout has an active task")

	// ErrDuplicateTask indicates a task ID is already pending or active on
	// its queue.
	ErrDuplicateTask = errors.New("task already enqueued")
)

// CheckoutCreationError carries the verbatim diagnostic output of the
// version-control tool when materializing a checkout fails. The output is
// preserved for operators and never parsed by callers.
type CheckoutCreationError struct {
	Project string
	Branch  string
	Output  string
	Err     error
}

func (e *CheckoutCreationError) Error() string {
	msg := fmt.Sprintf("creating checkout %s/%s failed", e.Project, e.Branch)
	if out := strings.TrimSpace(e.Output); out != "" {
		msg += ": " + out
	}
	return msg
}

func (e *CheckoutCreationError) Unwrap() error { return e.Err }
