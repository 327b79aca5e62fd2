package types

import (
	"errors"
	"fmt"
)

// ErrNoGenerator is returned when an agent has no generation capability.
var ErrNoGenerator = errors.New("no generator configured")

// GenerationError is returned after generation failed on every allowed attempt.
type GenerationError struct {
	Attempts int
	Err      error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation failed after %d attempt(s): %v", e.Attempts, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// AugmentationError reports a failed retrieval or web search. Callers log it
// and continue without that context.
type AugmentationError struct {
	Source string // "retrieval" or "web"
	Err    error
}

func (e *AugmentationError) Error() string {
	return fmt.Sprintf("%s augmentation failed: %v", e.Source, e.Err)
}

func (e *AugmentationError) Unwrap() error { return e.Err }

// AnnotationError reports a failed topic or keyword extraction.
type AnnotationError struct {
	Kind string // "topics" or "keywords"
	Err  error
}

func (e *AnnotationError) Error() string {
	return fmt.Sprintf("%s annotation failed: %v", e.Kind, e.Err)
}

func (e *AnnotationError) Unwrap() error { return e.Err }

// DialogueAbandonedError reports a self-play dialogue that ended without a result.
type DialogueAbandonedError struct {
	TaskID string
	Err    error
}

func (e *DialogueAbandonedError) Error() string {
	return fmt.Sprintf("dialogue %s abandoned: %v", e.TaskID, e.Err)
}

func (e *DialogueAbandonedError) Unwrap() error { return e.Err }

// PersistenceError reports a failed write to the durable store. The in-memory
// state is left intact so the next flush retries.
type PersistenceError struct {
	RecordID string
	Err      error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist record %s: %v", e.RecordID, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
