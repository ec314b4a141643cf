package persistence

import "errors"

var (
	errNotFound   = errors.New("record not found")
	errNotPending = errors.New("draft is not pending")
)
