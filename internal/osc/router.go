// Package osc carries control surface traffic over OSC/UDP.
package osc

import (
	"context"
	"errors"
	"fmt"
	"strings"

	pkglog "github.com/dunkelstern/obs-touchosc/pkg/log"
	goosc "github.com/hypebeast/go-osc/osc"
)

// ErrInvalidPattern is returned for patterns with more than one wildcard or
// without a leading slash.
var ErrInvalidPattern = errors.New("invalid address pattern")

const wildcard = "*"

// Message is one decoded control message. Wildcard holds the address segment
// matched by the route's "*", if any. Numeric payloads land in Value, string
// payloads in Text.
type Message struct {
	Address  string
	Wildcard string
	Value    float64
	Text     string
	IsText   bool
}

// HandlerFunc handles a routed message. A returned error is logged by the
// router; it never stops the transport.
type HandlerFunc func(ctx context.Context, msg Message) error

// Route binds a pattern to its handler.
type Route struct {
	Pattern string
	Handler HandlerFunc
}

type route struct {
	segments []string
	wildcard int // index of the "*" segment, -1 when none
	handler  HandlerFunc
	pattern  string
}

// Router dispatches OSC packets to handlers by address. It implements the
// go-osc Dispatcher interface. Routes are fixed after construction.
type Router struct {
	routes []route
}

// NewRouter builds a router from a static routing table.
func NewRouter(routes ...Route) (*Router, error) {
	r := &Router{}
	for _, rt := range routes {
		compiled, err := compile(rt)
		if err != nil {
			return nil, err
		}
		r.routes = append(r.routes, compiled)
	}
	return r, nil
}

func compile(rt Route) (route, error) {
	if !strings.HasPrefix(rt.Pattern, "/") || rt.Handler == nil {
		return route{}, fmt.Errorf("%w: %q", ErrInvalidPattern, rt.Pattern)
	}

	segments := strings.Split(rt.Pattern[1:], "/")
	wc := -1
	for i, seg := range segments {
		if seg != wildcard {
			if strings.Contains(seg, wildcard) {
				return route{}, fmt.Errorf("%w: partial wildcard in %q", ErrInvalidPattern, rt.Pattern)
			}
			continue
		}
		if wc >= 0 {
			return route{}, fmt.Errorf("%w: more than one wildcard in %q", ErrInvalidPattern, rt.Pattern)
		}
		wc = i
	}

	return route{segments: segments, wildcard: wc, handler: rt.Handler, pattern: rt.Pattern}, nil
}

// Match finds the handler for an address and the value of its wildcard.
// Literal routes win over wildcard routes; otherwise the first match wins.
func (r *Router) Match(address string) (HandlerFunc, string, bool) {
	if !strings.HasPrefix(address, "/") {
		return nil, "", false
	}
	segments := strings.Split(address[1:], "/")

	var (
		best  HandlerFunc
		value string
		found bool
	)
	for _, rt := range r.routes {
		v, ok := rt.match(segments)
		if !ok {
			continue
		}
		if rt.wildcard < 0 {
			return rt.handler, "", true
		}
		if !found {
			best, value, found = rt.handler, v, true
		}
	}
	return best, value, found
}

func (rt route) match(segments []string) (string, bool) {
	if len(segments) != len(rt.segments) {
		return "", false
	}
	var value string
	for i, seg := range rt.segments {
		if i == rt.wildcard {
			if segments[i] == "" {
				return "", false
			}
			value = segments[i]
			continue
		}
		if seg != segments[i] {
			return "", false
		}
	}
	return value, true
}

// Route delivers a decoded message to its handler. Unknown addresses are
// ignored.
func (r *Router) Route(ctx context.Context, msg Message) error {
	h, wc, ok := r.Match(msg.Address)
	if !ok {
		return nil
	}
	msg.Wildcard = wc
	return h(ctx, msg)
}

// Dispatch implements the go-osc Dispatcher interface. Bundles are
// flattened.
func (r *Router) Dispatch(packet goosc.Packet) {
	switch p := packet.(type) {
	case *goosc.Message:
		r.dispatchMessage(p)
	case *goosc.Bundle:
		for _, m := range p.Messages {
			r.dispatchMessage(m)
		}
		for _, b := range p.Bundles {
			r.Dispatch(b)
		}
	}
}

func (r *Router) dispatchMessage(m *goosc.Message) {
	l := pkglog.Component("osc")

	msg, ok := Decode(m)
	if !ok {
		l.Debug().Str(pkglog.FieldAddress, m.Address).Msg("ignoring message without usable argument")
		return
	}

	if err := r.Route(context.Background(), msg); err != nil {
		l.Error().Err(err).Str(pkglog.FieldAddress, msg.Address).Float64(pkglog.FieldValue, msg.Value).Msg("control handler failed")
	}
}

// Decode converts the first argument of an OSC message.
func Decode(m *goosc.Message) (Message, bool) {
	msg := Message{Address: m.Address}
	if len(m.Arguments) == 0 {
		return msg, false
	}

	switch v := m.Arguments[0].(type) {
	case float32:
		msg.Value = float64(v)
	case float64:
		msg.Value = v
	case int32:
		msg.Value = float64(v)
	case int64:
		msg.Value = float64(v)
	case bool:
		if v {
			msg.Value = 1
		}
	case string:
		msg.Text = v
		msg.IsText = true
	default:
		return msg, false
	}
	return msg, true
}
