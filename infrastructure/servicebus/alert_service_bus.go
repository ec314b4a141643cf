package servicebus

import (
	"context"

	"github.com/Azure/azure-sdk-for-go/sdk/messaging/azservicebus"

	"prism-connector/infrastructure/logger"
)

// NewServiceBus creates the Azure Service Bus client for renewal alerts from
// a connection string. A nil client means the channel is skipped.
func NewServiceBus(connStr string) (*azservicebus.Client, error) {
	return azservicebus.NewClientFromConnectionString(connStr, nil)
}

// AlertServiceBus fans credential-renewal alerts out to a Service Bus queue.
type AlertServiceBus struct {
	client *azservicebus.Client
	queue  string
}

func NewAlertServiceBus(client *azservicebus.Client, queue string) *AlertServiceBus {
	return &AlertServiceBus{client: client, queue: queue}
}

func (a *AlertServiceBus) Publish(ctx context.Context, payload []byte) error {
	sender, err := a.client.NewSender(a.queue, nil)
	if err != nil {
		logger.GetLogger().
			WithField("error", err).
			Error("Error while making new sender service bus.")
		return err
	}
	defer func(sender *azservicebus.Sender, ctx context.Context) {
		if err := sender.Close(ctx); err != nil {
			logger.GetLogger().
				WithField("error", err).
				Error("Error while closing sender.")
		}
	}(sender, ctx)

	if err := sender.SendMessage(ctx, &azservicebus.Message{Body: payload}, nil); err != nil {
		logger.GetLogger().WithField("error", err).Error("Error while sending alert.")
		return err
	}
	return nil
}
