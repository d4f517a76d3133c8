package services

import "errors"

var (
	ErrSessionNotFound     = errors.New("session not found")
	ErrInvalidSessionState = errors.New("invalid session state")
	ErrUnauthorized        = errors.New("unauthorized")
)
