package ai

import "errors"

// ErrOracle indicates the model could not be reached or produced no usable
// completion after the adapter exhausted its retries.
var ErrOracle = errors.New("oracle request failed")
