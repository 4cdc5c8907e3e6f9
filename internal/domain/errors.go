package domain

import "errors"

var (
	// ErrEmailTaken is returned when signup hits an already registered email.
	ErrEmailTaken = errors.New("email already registered")
	// ErrUserNotFound is returned when no user matches the email.
	ErrUserNotFound = errors.New("user not found")
	// ErrIncorrectPassword indicates the password did not match the stored hash.
	ErrIncorrectPassword = errors.New("incorrect password")
	// ErrMissingCredentials is returned when email or password is empty.
	ErrMissingCredentials = errors.New("missing email or password")
	// ErrMissingPasswordHash flags a user record stored without a hash.
	ErrMissingPasswordHash = errors.New("password field is missing in database record")
	// ErrInvalidSubmission indicates a malformed answer list.
	ErrInvalidSubmission = errors.New("invalid submission")
)
