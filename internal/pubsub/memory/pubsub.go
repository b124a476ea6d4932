package memory

import (
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/flexprice/tiersync/internal/logger"
	"github.com/flexprice/tiersync/internal/pubsub"
)

// NewPubSub creates a process local pubsub. Messages do not survive a
// restart, so this is only meant for local mode and tests.
func NewPubSub(log *logger.Logger) pubsub.PubSub {
	return gochannel.NewGoChannel(
		gochannel.Config{
			Persistent:                     false,
			BlockPublishUntilSubscriberAck: false,
			OutputChannelBuffer:            100,
		},
		logger.NewWatermillAdapter(log),
	)
}
