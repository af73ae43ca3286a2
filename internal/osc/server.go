package osc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"

	pkglog "github.com/dunkelstern/obs-touchosc/pkg/log"
	goosc "github.com/hypebeast/go-osc/osc"
)

// Server listens for OSC packets on UDP and hands them to a dispatcher.
type Server struct {
	conn net.PacketConn
	srv  *goosc.Server
}

// Listen binds the UDP socket. Port 0 picks a free port.
func Listen(host string, port int, d goosc.Dispatcher) (*Server, error) {
	addr := net.JoinHostPort(host, strconv.Itoa(port))
	conn, err := net.ListenPacket("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	return &Server{
		conn: conn,
		srv:  &goosc.Server{Addr: addr, Dispatcher: d},
	}, nil
}

// Port returns the bound UDP port.
func (s *Server) Port() int {
	if a, ok := s.conn.LocalAddr().(*net.UDPAddr); ok {
		return a.Port
	}
	return 0
}

// Serve reads and dispatches packets one at a time until ctx is done or
// the socket fails.
func (s *Server) Serve(ctx context.Context) error {
	l := pkglog.Component("osc")
	l.Info().Str("addr", s.conn.LocalAddr().String()).Msg("osc server listening")

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			s.conn.Close()
		case <-stop:
		}
	}()

	// Packets are dispatched on this goroutine so handlers see them in
	// arrival order.
	for {
		packet, err := s.srv.ReceivePacket(s.conn)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			var ne net.Error
			if errors.As(err, &ne) {
				return err
			}
			l.Debug().Err(err).Msg("dropping malformed osc packet")
			continue
		}
		if packet != nil {
			s.srv.Dispatcher.Dispatch(packet)
		}
	}
}

// Close releases the socket.
func (s *Server) Close() error {
	return s.conn.Close()
}
