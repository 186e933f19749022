package queue

import (
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockAlertSender struct {
	mock.Mock
}

func (m *MockAlertSender) SendAlert(to, subject, body string) error {
	args := m.Called(to, subject, body)
	return args.Error(0)
}

func alertPayload() NotificationPayload {
	return NotificationPayload{
		MessageID:  "msg-1",
		LeadID:     "lead-1",
		Recipient:  "a@b.com",
		Event:      "bounce",
		Detail:     "code=550 error=mailbox unavailable",
		OccurredAt: time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC),
	}
}

func TestWorkerProcessSendsAlert(t *testing.T) {
	sender := new(MockAlertSender)
	sender.On("SendAlert", "ops@example.com", mock.Anything, mock.Anything).Return(nil)

	w := NewWorker(nil, sender, "ops@example.com", zerolog.Nop())

	err := w.process(alertPayload())

	assert.NoError(t, err)
	sender.AssertCalled(t, "SendAlert", "ops@example.com", "Lead email bounce: a@b.com", mock.MatchedBy(func(body string) bool {
		return len(body) > 0
	}))
}

func TestWorkerProcessSenderFailure(t *testing.T) {
	sender := new(MockAlertSender)
	sender.On("SendAlert", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("smtp down"))

	w := NewWorker(nil, sender, "ops@example.com", zerolog.Nop())

	err := w.process(alertPayload())

	assert.Error(t, err)
}

func TestWorkerProcessWithoutAlertEmailDrops(t *testing.T) {
	sender := new(MockAlertSender)

	w := NewWorker(nil, sender, "", zerolog.Nop())

	err := w.process(alertPayload())

	assert.NoError(t, err)
	sender.AssertNotCalled(t, "SendAlert", mock.Anything, mock.Anything, mock.Anything)
}
