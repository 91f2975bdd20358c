package model

import "errors"

// ErrDataFetch marks a failure to obtain external data: land geometry or
// satellite positions. It is reported and never retried automatically.
var ErrDataFetch = errors.New("data fetch failed")
