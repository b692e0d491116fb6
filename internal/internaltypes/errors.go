package internaltypes

import "errors"

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("not found")
	// ErrNoSession is returned before any request when nothing is stored for the current user.
	ErrNoSession = errors.New("not logged in")
)
