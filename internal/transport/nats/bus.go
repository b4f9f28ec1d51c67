package nats

import (
	"github.com/nats-io/nats.go"

	"tally/internal/ledger"
)

// Bus publishes ledger events over NATS.
type Bus struct {
	nc *nats.Conn
}

var _ ledger.MessageBus = (*Bus)(nil)

func NewBus(nc *nats.Conn) *Bus {
	return &Bus{nc: nc}
}

func (b *Bus) Publish(subject string, data []byte) error {
	return b.nc.Publish(subject, data)
}
