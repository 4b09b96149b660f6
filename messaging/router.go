package messaging

import (
	"context"
	"errors"
	"sync"

	"github.com/npillmayer/blocker/result"
	"github.com/npillmayer/blocker/rule"
)

// ErrUnknownAction is the error of responses to messages with an action
// outside of Actions.
var ErrUnknownAction = errors.New("Unknown action")

// ErrUnsupportedAction answers a known action the receiving target does not
// handle, e.g. updateIcon sent to a page.
var ErrUnsupportedAction = errors.New("Unsupported action")

// Handler processes one message.
type Handler func(ctx context.Context, msg Message) Response

// Router dispatches messages to handlers by action.
type Router struct {
	mu       sync.RWMutex
	handlers map[Action]Handler
}

// NewRouter creates a router without handlers.
func NewRouter() *Router {
	return &Router{handlers: make(map[Action]Handler)}
}

// Handle installs h for action, replacing a previous handler.
func (r *Router) Handle(action Action, h Handler) *Router {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[action] = h
	return r
}

// Dispatch calls the handler for msg.Action.
func (r *Router) Dispatch(ctx context.Context, msg Message) Response {
	r.mu.RLock()
	h, ok := r.handlers[msg.Action]
	r.mu.RUnlock()
	if !ok {
		tracer().Debugf("messaging: no handler for action %q", msg.Action)
		if msg.Action.Known() {
			return Failed(ErrUnsupportedAction)
		}
		return Failed(ErrUnknownAction)
	}
	return h(ctx, msg)
}

// Port sends messages to named targets.
type Port interface {
	Send(ctx context.Context, target string, msg Message) result.Result[Response]
}

// Bus is an in-process Port. Targets register a router under a name, e.g.
// "background" or a tab ID.
type Bus struct {
	mu      sync.RWMutex
	targets map[string]*Router
}

var _ Port = (*Bus)(nil)

// Background is the target name of the background coordinator.
const Background = "background"

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{targets: make(map[string]*Router)}
}

// Register attaches a router under name. The returned function detaches it.
func (b *Bus) Register(name string, r *Router) (cancel func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.targets[name] = r
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if b.targets[name] == r {
			delete(b.targets, name)
		}
	}
}

// Send delivers msg to target and returns its response. An unregistered
// target yields a rule.MessagingUnavailableError.
func (b *Bus) Send(ctx context.Context, target string, msg Message) result.Result[Response] {
	if err := ctx.Err(); err != nil {
		return result.Err[Response](&rule.MessagingUnavailableError{Target: target, Err: err})
	}
	b.mu.RLock()
	r, ok := b.targets[target]
	b.mu.RUnlock()
	if !ok {
		return result.Err[Response](&rule.MessagingUnavailableError{Target: target})
	}
	return result.Ok(r.Dispatch(ctx, msg))
}

// Notify sends msg and ignores an unreachable target. Other failures are
// traced. The flag is false if no response was received.
func Notify(ctx context.Context, p Port, target string, msg Message) (Response, bool) {
	var resp Response
	var err error
	switch m := p.Send(ctx, target, msg).Match(); m {
	case m.Ok(&resp):
		if !resp.Success {
			tracer().Debugf("messaging: %s answered %s with %q", target, msg.Action, resp.Error)
		}
		return resp, true
	case m.Err(&err):
		if errors.Is(err, rule.ErrMessagingUnavailable) {
			tracer().Debugf("messaging: %v", err)
		} else {
			tracer().Errorf("messaging: sending %s to %s: %v", msg.Action, target, err)
		}
	}
	return Response{}, false
}
