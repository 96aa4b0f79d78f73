package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthenticated is returned when no valid identity accompanies a request.
	ErrUnauthenticated = errors.New("not authenticated")
	// ErrForbidden is returned when the identity lacks the privilege for an operation.
	ErrForbidden = errors.New("forbidden")
	// ErrQuestionNotFound indicates a referenced question does not exist.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrUserNotFound indicates a referenced user does not exist.
	ErrUserNotFound = errors.New("user not found")
	// ErrAlreadyAnswered is returned when the user already has a response for the question.
	ErrAlreadyAnswered = errors.New("already answered")
	// ErrInvalidInput indicates a malformed payload.
	ErrInvalidInput = errors.New("invalid input")
	// ErrQuestionInUse is returned when deleting a question that already has responses.
	ErrQuestionInUse = errors.New("question has responses")
	// ErrNoQuestions is returned when the user has answered every active question.
	ErrNoQuestions = errors.New("no questions left")
	// ErrStoreFailure marks a persistence error.
	ErrStoreFailure = errors.New("store failure")
)

// StoreError wraps a persistence error so callers can match ErrStoreFailure.
func StoreError(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStoreFailure, err)
}

// InvalidInput wraps a validation message as ErrInvalidInput.
func InvalidInput(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
