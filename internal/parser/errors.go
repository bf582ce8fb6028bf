package parser

import "errors"

// ErrMalformedOutput means tool output could not be interpreted.
var ErrMalformedOutput = errors.New("malformed tool output")
