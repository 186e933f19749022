package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/xavierca1/lead-webhooks/internal/entity"
	"github.com/xavierca1/lead-webhooks/internal/infra/queue"
	"github.com/xavierca1/lead-webhooks/internal/webhook"
)

// ProcessWebhookEventOutput carries what the success envelope needs.
type ProcessWebhookEventOutput struct {
	IDField string
	ID      string
	Email   string
	Event   string
}

type ProcessWebhookEventUseCase struct {
	Leads    entity.LeadRepositoryInterface
	Producer QueueProducerInterface // nil disables alerts
	Options  webhook.Options
	Logger   zerolog.Logger
}

func NewProcessWebhookEventUseCase(
	leads entity.LeadRepositoryInterface,
	producer QueueProducerInterface,
	options webhook.Options,
	logger zerolog.Logger,
) *ProcessWebhookEventUseCase {
	return &ProcessWebhookEventUseCase{
		Leads:    leads,
		Producer: producer,
		Options:  options,
		Logger:   logger,
	}
}

// Execute applies a decoded event to the lead it addresses. The caller has
// already authenticated the payload. Repository errors pass through untouched
// so the handler can map them; alert publishing is fire-and-forget and never
// changes the outcome.
func (uc *ProcessWebhookEventUseCase) Execute(ctx context.Context, ev *webhook.Event) (*ProcessWebhookEventOutput, error) {
	desc, ok := webhook.Kinds[ev.Kind]
	if !ok {
		return nil, fmt.Errorf("unknown event kind: %s", ev.Kind)
	}

	lead, err := uc.Leads.Apply(ctx, ev.Recipient, func(l *entity.Lead) {
		desc.Mutate(l, ev, uc.Options)
	})
	if err != nil {
		return nil, err
	}

	uc.Logger.Info().
		Str("event", ev.Event).
		Str("recipient", ev.Recipient).
		Str("lead_id", lead.ID).
		Msg("webhook event applied")

	if desc.Notify && uc.Producer != nil {
		payload := queue.NotificationPayload{
			MessageID:  uuid.New().String(),
			LeadID:     lead.ID,
			Recipient:  lead.EmailAddr,
			Event:      ev.Event,
			Detail:     eventDetail(ev),
			OccurredAt: time.Now(),
		}

		if err := uc.Producer.PublishNotification(ctx, payload); err != nil {
			// Alerting must never affect the webhook response.
			uc.Logger.Warn().Err(err).
				Str("event", ev.Event).
				Str("lead_id", lead.ID).
				Msg("alert publish failed")
		}
	}

	id := lead.ID
	if desc.ResponseIDField == "v_id" {
		id = lead.AppendedVisitorID
	}

	return &ProcessWebhookEventOutput{
		IDField: desc.ResponseIDField,
		ID:      id,
		Email:   lead.EmailAddr,
		Event:   ev.Event,
	}, nil
}

func eventDetail(ev *webhook.Event) string {
	switch ev.Kind {
	case webhook.KindDropped:
		return fmt.Sprintf("code=%s reason=%s %s", ev.Code, ev.Reason, ev.Description)
	case webhook.KindBounced:
		return fmt.Sprintf("code=%s error=%s", ev.Code, ev.Error)
	default:
		return ""
	}
}
