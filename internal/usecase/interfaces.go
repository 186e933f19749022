package usecase

import (
	"context"

	"github.com/xavierca1/lead-webhooks/internal/infra/queue"
)

type QueueProducerInterface interface {
	PublishNotification(ctx context.Context, payload queue.NotificationPayload) error
}
