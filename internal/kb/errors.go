package kb

import "errors"

// ErrDefinition marks a malformed variable or rule-set definition.
var ErrDefinition = errors.New("invalid definition")
