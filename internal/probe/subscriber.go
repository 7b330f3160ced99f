package probe

import (
	"encoding/json"
	"log"

	"github.com/nats-io/nats.go"

	"NetSentry/internal/model"
)

// PacketHandler is a function that processes a received PacketRecord.
type PacketHandler func(rec *model.PacketRecord)

// Subscriber is responsible for subscribing to a NATS subject and decoding
// packet records published by a probe.
type Subscriber struct {
	nc  *nats.Conn
	sub *nats.Subscription
}

// NewSubscriber creates a new NATS subscriber.
func NewSubscriber(url string) (*Subscriber, error) {
	nc, err := nats.Connect(url)
	if err != nil {
		return nil, err
	}
	log.Printf("Connected to NATS server at %s", url)
	return &Subscriber{nc: nc}, nil
}

// Start subscribes to the given subject and processes messages with the
// provided handler. Undecodable messages are skipped and logged.
func (s *Subscriber) Start(subject string, handler PacketHandler) error {
	sub, err := s.nc.Subscribe(subject, func(msg *nats.Msg) {
		var rec model.PacketRecord
		if err := json.Unmarshal(msg.Data, &rec); err != nil {
			log.Printf("Error unmarshalling packet record: %v", err)
			return
		}
		handler(&rec)
	})
	if err != nil {
		return err
	}
	s.sub = sub
	log.Printf("Subscribed to '%s'. Waiting for messages...", subject)
	return nil
}

// Close unsubscribes and closes the NATS connection.
func (s *Subscriber) Close() {
	if s.sub != nil {
		s.sub.Unsubscribe()
	}
	if s.nc != nil {
		s.nc.Close()
		log.Println("NATS connection closed.")
	}
}
