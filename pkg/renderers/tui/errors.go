package tui

import "errors"

var (
	// ErrAborted signals the user aborted input (e.g., Ctrl+C).
	ErrAborted = errors.New("tui: aborted")
	// ErrNoAnswer is returned by scripted drivers that ran out of answers.
	ErrNoAnswer = errors.New("tui: no answer")
)
