package response

import "errors"

// ErrEncodeFailed is returned when an action result cannot be serialized.
var ErrEncodeFailed = errors.New("failed to encode response")
