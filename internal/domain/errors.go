package domain

import "errors"

var (
	// ErrQuestionSetNotFound indicates the question set could not be loaded.
	ErrQuestionSetNotFound = errors.New("question set not found")
	// ErrInvalidQuestion is returned by loaders when stored questions are malformed.
	ErrInvalidQuestion = errors.New("invalid question")
	// ErrUnknownKind indicates a question record with an unsupported kind.
	ErrUnknownKind = errors.New("unknown question kind")
	// ErrRunNotFound is returned when a run id has no live run.
	ErrRunNotFound = errors.New("run not found")
	// ErrUnknownBackend is returned when config names a storage backend that does not exist.
	ErrUnknownBackend = errors.New("unknown backend")
)
