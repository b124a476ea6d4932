package pubsub

import (
	"github.com/ThreeDotsLabs/watermill/message"
)

// PubSub is the transport carrying reconciliation requests between the
// webhook ingestor and the consumer. Both the gochannel and the Kafka
// implementation satisfy watermill's publisher and subscriber contracts,
// so the router can consume from either.
type PubSub interface {
	message.Publisher
	message.Subscriber
}
