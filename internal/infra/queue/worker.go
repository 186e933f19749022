package queue

import (
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

// AlertSender is the outbound mail contract the worker needs.
type AlertSender interface {
	SendAlert(to, subject, body string) error
}

// Worker consumes lead alert notifications and emails them to operations.
// It never talks to the database; everything it needs rides in the payload.
type Worker struct {
	Channel    *amqp.Channel
	Sender     AlertSender
	AlertEmail string
	Logger     zerolog.Logger
}

func NewWorker(ch *amqp.Channel, sender AlertSender, alertEmail string, logger zerolog.Logger) *Worker {
	return &Worker{
		Channel:    ch,
		Sender:     sender,
		AlertEmail: alertEmail,
		Logger:     logger,
	}
}

func (w *Worker) Start(queueName string) {
	msgs, err := w.Channel.Consume(
		queueName,
		"",    // consumer
		false, // auto-ack (manual is safer)
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,   // args
	)
	if err != nil {
		w.Logger.Fatal().Err(err).Msg("failed to register RabbitMQ consumer")
	}

	forever := make(chan bool)

	go func() {
		for d := range msgs {
			var payload NotificationPayload
			if err := json.Unmarshal(d.Body, &payload); err != nil {
				w.Logger.Error().Err(err).Msg("malformed alert message, dropping")
				// Poison message. Reject without requeue so the queue keeps moving.
				d.Nack(false, false)
				continue
			}

			if err := w.process(payload); err != nil {
				w.Logger.Error().Err(err).
					Str("event", payload.Event).
					Str("recipient", payload.Recipient).
					Msg("alert delivery failed")
				d.Nack(false, false)
			} else {
				d.Ack(false)
			}
		}
	}()

	w.Logger.Info().Str("queue", queueName).Msg("alert worker waiting for messages")
	<-forever
}

func (w *Worker) process(payload NotificationPayload) error {
	if w.AlertEmail == "" {
		// Nowhere to send it. Ack and move on rather than clog the queue.
		w.Logger.Warn().Str("event", payload.Event).Msg("no alert email configured, dropping alert")
		return nil
	}

	subject := fmt.Sprintf("Lead email %s: %s", payload.Event, payload.Recipient)
	body := fmt.Sprintf(
		"Lead %s (%s) reported %q at %s.\n%s",
		payload.LeadID,
		payload.Recipient,
		payload.Event,
		payload.OccurredAt.Format("2006-01-02 15:04:05"),
		payload.Detail,
	)

	return w.Sender.SendAlert(w.AlertEmail, subject, body)
}
