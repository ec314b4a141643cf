package pubsub

import (
	"context"

	"cloud.google.com/go/pubsub"

	"prism-connector/infrastructure/logger"
)

// NewPubSub creates the Google Pub/Sub client for renewal alerts. A nil
// client means the channel is skipped.
func NewPubSub(ctx context.Context, projectID string) (*pubsub.Client, error) {
	return pubsub.NewClient(ctx, projectID)
}

// AlertPubSub fans credential-renewal alerts out to a Pub/Sub topic. It
// implements the alert publisher contract of the connect lifecycle.
type AlertPubSub struct {
	client    *pubsub.Client
	topicName string
}

func NewAlertPubSub(client *pubsub.Client, topicName string) *AlertPubSub {
	return &AlertPubSub{client: client, topicName: topicName}
}

func (a *AlertPubSub) Publish(ctx context.Context, payload []byte) error {
	topic := a.client.Topic(a.topicName)

	// Create the topic if it doesn't exist.
	exists, err := topic.Exists(ctx)
	if err != nil {
		return err
	}
	if !exists {
		logger.GetLogger().WithField("topic", a.topicName).Info("Topic doesn't exist - creating it")
		if _, err := a.client.CreateTopic(ctx, a.topicName); err != nil {
			return err
		}
	}

	serverID, err := topic.Publish(ctx, &pubsub.Message{Data: payload}).Get(ctx)
	if err != nil {
		return err
	}
	logger.GetLogger().WithField("server ID", serverID).Info("Alert published")
	return nil
}
