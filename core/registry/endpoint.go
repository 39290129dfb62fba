package registry

import (
	"context"
	"fmt"

	"github.com/artpar/routegen/core/capability"
	"github.com/artpar/routegen/core/schema"
	"github.com/artpar/routegen/domain/call"
)

// Endpoint is one compiled route bound to its implementation.
type Endpoint struct {
	Namespace string
	Name      string
	Path      []string
	Route     schema.Route // resolved, with normalized header lists

	handler capability.Handler
	reg     *Registry
}

// ID returns "namespace.function".
func (e *Endpoint) ID() string {
	return e.Namespace + "." + e.Name
}

// Call validates msg and, when valid, invokes the implementation.
// Validation failures go through the error responder and never reach the network.
func (e *Endpoint) Call(ctx context.Context, msg call.Message) (*call.Response, error) {
	return e.call(ctx, msg, e.reg.sender)
}

// Go runs the call in its own goroutine and delivers the outcome to cb exactly once.
// When the sender is a capability.AsyncSender, the implementation sends through
// its Go, so a timeout that fires before the response completes the call and the
// late response is dropped.
func (e *Endpoint) Go(ctx context.Context, msg call.Message, cb func(*call.Response, error)) {
	s := e.reg.sender
	if as, ok := s.(capability.AsyncSender); ok {
		s = asyncSend{as}
	}
	go func() {
		cb(e.call(ctx, msg, s))
	}()
}

func (e *Endpoint) call(ctx context.Context, msg call.Message, s capability.Sender) (*call.Response, error) {
	if msg == nil {
		msg = call.Message{}
	}

	if err := e.reg.validator.Validate(msg, e.Route.Params); err != nil {
		return nil, e.reg.respond(ctx, err, e.Route, msg)
	}

	if s == nil {
		return nil, fmt.Errorf("endpoint %s: no sender configured", e.ID())
	}
	return e.handler(ctx, s, msg, e.Route)
}

// asyncSend waits for the first outcome an AsyncSender delivers.
type asyncSend struct {
	s capability.AsyncSender
}

type outcome struct {
	resp *call.Response
	err  error
}

func (a asyncSend) Send(ctx context.Context, msg call.Message, route schema.Route) (*call.Response, error) {
	ch := make(chan outcome, 1)
	a.s.Go(ctx, msg, route, func(resp *call.Response, err error) {
		select {
		case ch <- outcome{resp, err}:
		default:
		}
	})
	o := <-ch
	return o.resp, o.err
}
