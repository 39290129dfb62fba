package http

import (
	"sync/atomic"

	"github.com/artpar/routegen/domain/call"
)

// completion delivers the outcome of one call at most once. Whichever signal
// arrives first (response, transport error or timeout) wins; later ones are dropped.
type completion struct {
	done atomic.Bool
	cb   func(*call.Response, error)
}

func newCompletion(cb func(*call.Response, error)) *completion {
	return &completion{cb: cb}
}

// deliver invokes the callback if no outcome was delivered yet and reports whether it did.
func (c *completion) deliver(resp *call.Response, err error) bool {
	if !c.done.CompareAndSwap(false, true) {
		return false
	}
	if c.cb != nil {
		c.cb(resp, err)
	}
	return true
}
