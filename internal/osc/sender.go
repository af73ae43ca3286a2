package osc

import (
	"context"

	pkglog "github.com/dunkelstern/obs-touchosc/pkg/log"
	goosc "github.com/hypebeast/go-osc/osc"
)

// PacketSender writes one OSC packet. The go-osc client satisfies it.
type PacketSender interface {
	Send(packet goosc.Packet) error
}

// Sender queues outbound messages to the panel and writes them from a single
// goroutine. Send never blocks: when the queue is full the message is dropped.
type Sender struct {
	client PacketSender
	queue  chan *goosc.Message
}

// NewSender creates a sender for the panel at host:port.
func NewSender(host string, port, buffer int) *Sender {
	return NewSenderWithClient(goosc.NewClient(host, port), buffer)
}

// NewSenderWithClient creates a sender on top of any packet writer.
func NewSenderWithClient(client PacketSender, buffer int) *Sender {
	if buffer <= 0 {
		buffer = 256
	}
	return &Sender{
		client: client,
		queue:  make(chan *goosc.Message, buffer),
	}
}

// SendFloat queues a numeric message.
func (s *Sender) SendFloat(address string, value float32) {
	s.enqueue(goosc.NewMessage(address, value))
}

// SendString queues a string message.
func (s *Sender) SendString(address, value string) {
	s.enqueue(goosc.NewMessage(address, value))
}

func (s *Sender) enqueue(m *goosc.Message) {
	select {
	case s.queue <- m:
	default:
		l := pkglog.Component("osc")
		l.Warn().Str(pkglog.FieldAddress, m.Address).Msg("send queue full, dropping message")
	}
}

// Run drains the queue until ctx is done. Remaining messages are written
// before it returns.
func (s *Sender) Run(ctx context.Context) error {
	for {
		select {
		case m := <-s.queue:
			s.write(m)
		case <-ctx.Done():
			for {
				select {
				case m := <-s.queue:
					s.write(m)
				default:
					return nil
				}
			}
		}
	}
}

func (s *Sender) write(m *goosc.Message) {
	if err := s.client.Send(m); err != nil {
		l := pkglog.Component("osc")
		l.Warn().Err(err).Str(pkglog.FieldAddress, m.Address).Msg("failed to send osc message")
	}
}
