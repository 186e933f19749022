package entity

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// StatusEmailNotSent is the status a lead carries before any webhook arrives.
const StatusEmailNotSent = "EMAILNOTSENT"

var (
	ErrLeadNotFound  = errors.New("no lead matches the recipient email address")
	ErrAmbiguousLead = errors.New("multiple leads match the recipient email address")
)

// Lead is one tracked recipient. Created by the capture flow, mutated only by
// webhook handlers afterwards, never deleted here.
type Lead struct {
	ID                string     `json:"id"`
	EmailAddr         string     `json:"email_addr"`
	AppendedVisitorID string     `json:"appended_visitor_id,omitempty"`
	Status            string     `json:"followup_email_status"`
	Delivered         bool       `json:"followup_email_delivered"`
	Bounced           bool       `json:"followup_email_bounced"`
	Spam              bool       `json:"followup_email_spam"`
	Unsub             bool       `json:"followup_email_unsub"`
	Dropped           bool       `json:"followup_email_dropped"`
	Opens             int        `json:"followup_email_opens"`
	Clicks            int        `json:"followup_email_clicks"`
	DroppedCode       string     `json:"dropped_code,omitempty"`
	DroppedReason     string     `json:"dropped_reason,omitempty"`
	DroppedDesc       string     `json:"dropped_description,omitempty"`
	BounceError       string     `json:"bounce_error,omitempty"`
	ClickIP           string     `json:"followup_email_click_ip,omitempty"`
	ClickDevice       string     `json:"followup_email_click_device,omitempty"`
	OpenIP            string     `json:"followup_email_open_ip,omitempty"`
	OpenDevice        string     `json:"followup_email_open_device,omitempty"`
	WebhookUpdatedAt  *time.Time `json:"webhook_last_updated,omitempty"`
}

// Factory
func NewLead(email string) *Lead {
	return &Lead{
		ID:        uuid.New().String(),
		EmailAddr: email,
		Status:    StatusEmailNotSent,
	}
}

type LeadRepositoryInterface interface {
	// FindByRecipient is an exact match on email_addr. Zero rows is
	// ErrLeadNotFound, more than one is ErrAmbiguousLead.
	FindByRecipient(ctx context.Context, email string) (*Lead, error)

	// Apply re-reads the lead under a row lock, runs mutate against it and
	// commits every field plus webhook_last_updated in one transaction.
	Apply(ctx context.Context, email string, mutate func(*Lead)) (*Lead, error)

	Upsert(ctx context.Context, lead *Lead) error
}
