package fanout

import "errors"

// ErrClosed is returned by Subscribe after the broker has been closed.
var ErrClosed = errors.New("fanout: broker closed")
