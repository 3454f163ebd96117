package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidID          = errors.New("invalid id")
	ErrInvalidName        = errors.New("invalid name")
	ErrInvalidTitle       = errors.New("invalid title")
	ErrInvalidDuration    = errors.New("invalid duration")
	ErrInvalidProgress    = errors.New("invalid progress percent")
	ErrInvalidPredecessor = errors.New("invalid predecessor")
	ErrInvalidStartDate   = errors.New("invalid start date")
	ErrDuplicateTask      = errors.New("duplicate task id")
)

// ErrCycle and related sentinels classify scheduling graph failures.
var (
	ErrCycle             = errors.New("dependency cycle")
	ErrDanglingReference = errors.New("dangling predecessor reference")
	ErrAmbiguousParent   = errors.New("ambiguous parent")
)

// CycleError reports a predecessor relation that is not a DAG.
type CycleError struct {
	// Cycle lists task ids along the loop; the first id is repeated at the end.
	Cycle []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("dependency cycle detected: %s", strings.Join(e.Cycle, " -> "))
}

func (e *CycleError) Unwrap() error { return ErrCycle }

// DanglingReferenceError reports a predecessor id missing from the task set.
type DanglingReferenceError struct {
	TaskID        string
	PredecessorID string
}

func (e *DanglingReferenceError) Error() string {
	return fmt.Sprintf("task %q references unknown predecessor %q", e.TaskID, e.PredecessorID)
}

func (e *DanglingReferenceError) Unwrap() error { return ErrDanglingReference }

// AmbiguousParentError reports a WBS parent reference that could not be honored.
// It is recoverable: the task is attached under the WBS root instead.
type AmbiguousParentError struct {
	TaskID   string
	ParentID string
	Reason   string
}

func (e *AmbiguousParentError) Error() string {
	reason := strings.TrimSpace(e.Reason)
	if reason == "" {
		reason = "parent not found"
	}
	return fmt.Sprintf("task %q parent %q: %s; attached under root", e.TaskID, e.ParentID, reason)
}

func (e *AmbiguousParentError) Unwrap() error { return ErrAmbiguousParent }
