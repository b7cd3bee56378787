package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
)

const (
	// TopicPrefix is prepended to the channel to form the topic name.
	TopicPrefix = "requests.notifications."

	ChannelMetadataKey   = "channel"
	RequestIDMetadataKey = "request_id"
)

// WatermillNotifier publishes notifications as JSON messages, one topic per
// channel. Works over Kafka in production and GoChannel locally.
type WatermillNotifier struct {
	publisher message.Publisher
	routes    Routes
}

func NewWatermillNotifier(publisher message.Publisher, routes Routes) *WatermillNotifier {
	return &WatermillNotifier{publisher: publisher, routes: routes}
}

func (n *WatermillNotifier) Send(ctx context.Context, msg Message) error {
	if msg.Channel == "" {
		return ErrUnknownChannel
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode notification: %w", err)
	}

	uuid := msg.Key
	if uuid == "" {
		uuid = watermill.NewULID()
	}

	out := message.NewMessage(uuid, payload)
	out.SetContext(ctx)
	out.Metadata.Set(ChannelMetadataKey, msg.Channel)
	out.Metadata.Set(RequestIDMetadataKey, msg.RequestID)

	return n.publisher.Publish(TopicPrefix+n.routes.Resolve(msg.Channel), out)
}

func (n *WatermillNotifier) Close() error {
	return n.publisher.Close()
}
