package notify

import (
	"context"

	"github.com/ably/ably-go/ably"
)

// Event published when a ticket is checked in
const CheckInEvent = "ticket.checked_in"

// Real-time publisher for host dashboards
type Publisher interface {
	Publish(ctx context.Context, channelName, eventName string, data any) error
}

// Channel the check-ins of an event or activity are published on
func CheckInChannel(subjectID string) string {
	return "checkins:" + subjectID
}

// Ably implementation
type AblyService struct {
	client *ably.REST
}

// Ably constructor
func NewAblyService(apiKey string) (*AblyService, error) {
	client, err := ably.NewREST(ably.WithKey(apiKey))
	if err != nil {
		return nil, err
	}

	return &AblyService{client: client}, nil
}

// Publish a message to a channel.
// data should be structured: dashboards decode it as JSON
func (service *AblyService) Publish(ctx context.Context, channelName, eventName string, data any) error {
	channel := service.client.Channels.Get(channelName)
	return channel.Publish(ctx, eventName, data)
}

// Latest messages of a channel. Dashboards fetch this themselves, it's used by the integration test
func (service *AblyService) history(ctx context.Context, channelName string) ([]*ably.Message, error) {
	channel := service.client.Channels.Get(channelName)

	pages, err := channel.History().Pages(ctx)
	if err != nil {
		return nil, err
	}

	if !pages.Next(ctx) {
		return nil, pages.Err()
	}
	return pages.Items(), nil
}

// Publisher for local runs without Ably: nothing is sent
type NopPublisher struct{}

func (NopPublisher) Publish(ctx context.Context, channelName, eventName string, data any) error {
	return nil
}
