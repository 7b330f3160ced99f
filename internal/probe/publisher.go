package probe

import (
	"encoding/json"
	"log"

	"github.com/nats-io/nats.go"

	"NetSentry/internal/model"
)

// Publisher is responsible for publishing parsed packet records to a NATS
// subject so capture can run on a different host than the engine.
type Publisher struct {
	nc      *nats.Conn
	subject string
}

// NewPublisher creates a new NATS publisher.
func NewPublisher(url, subject string) (*Publisher, error) {
	nc, err := nats.Connect(url)
	if err != nil {
		return nil, err
	}
	log.Printf("Connected to NATS server at %s", url)
	return &Publisher{nc: nc, subject: subject}, nil
}

// Publish serializes a PacketRecord and publishes it to the configured
// subject.
func (p *Publisher) Publish(rec *model.PacketRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return p.nc.Publish(p.subject, data)
}

// Close drains and closes the NATS connection.
func (p *Publisher) Close() {
	if p.nc != nil {
		p.nc.Drain()
		log.Println("NATS connection drained and closed.")
	}
}
