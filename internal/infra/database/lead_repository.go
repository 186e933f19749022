package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/xavierca1/lead-webhooks/internal/entity"
)

const leadColumns = `
	id, email_addr, appended_visitor_id, followup_email_status,
	followup_email_delivered, followup_email_bounced, followup_email_spam,
	followup_email_unsub, followup_email_dropped,
	followup_email_opens, followup_email_clicks,
	dropped_code, dropped_reason, dropped_description, bounce_error,
	followup_email_click_ip, followup_email_click_device,
	followup_email_open_ip, followup_email_open_device,
	webhook_last_updated`

// maxApplyRetries bounds the deadlock retry loop in Apply.
const maxApplyRetries = 3

type LeadRepository struct {
	DB      *sql.DB
	Timeout time.Duration
}

func NewLeadRepository(db *sql.DB, timeout time.Duration) *LeadRepository {
	return &LeadRepository{DB: db, Timeout: timeout}
}

func (r *LeadRepository) FindByRecipient(ctx context.Context, email string) (*entity.Lead, error) {
	ctx, cancel := context.WithTimeout(ctx, r.Timeout)
	defer cancel()

	query := `SELECT ` + leadColumns + ` FROM leads WHERE email_addr = $1 LIMIT 2`

	rows, err := r.DB.QueryContext(ctx, query, email)
	if err != nil {
		return nil, fmt.Errorf("query lead: %w", err)
	}
	defer rows.Close()

	return exactlyOne(rows)
}

// Apply runs the read-modify-write inside one transaction with the lead row
// locked, so concurrent webhooks for the same recipient serialize instead of
// losing counter updates. Deadlocks get a bounded retry.
func (r *LeadRepository) Apply(ctx context.Context, email string, mutate func(*entity.Lead)) (*entity.Lead, error) {
	var lead *entity.Lead
	var err error

	for attempt := 0; attempt <= maxApplyRetries; attempt++ {
		lead, err = r.applyOnce(ctx, email, mutate)
		if err == nil || !isRetryable(err) {
			return lead, err
		}
	}

	return nil, fmt.Errorf("apply lead mutation: retries exhausted: %w", err)
}

func (r *LeadRepository) applyOnce(ctx context.Context, email string, mutate func(*entity.Lead)) (*entity.Lead, error) {
	ctx, cancel := context.WithTimeout(ctx, r.Timeout)
	defer cancel()

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	query := `SELECT ` + leadColumns + ` FROM leads WHERE email_addr = $1 LIMIT 2 FOR UPDATE`

	rows, err := tx.QueryContext(ctx, query, email)
	if err != nil {
		return nil, fmt.Errorf("lock lead: %w", err)
	}

	lead, err := exactlyOne(rows)
	rows.Close()
	if err != nil {
		return nil, err
	}

	mutate(lead)

	now := time.Now()
	lead.WebhookUpdatedAt = &now

	update := `
		UPDATE leads SET
			followup_email_status = $1,
			followup_email_delivered = $2,
			followup_email_bounced = $3,
			followup_email_spam = $4,
			followup_email_unsub = $5,
			followup_email_dropped = $6,
			followup_email_opens = $7,
			followup_email_clicks = $8,
			dropped_code = $9,
			dropped_reason = $10,
			dropped_description = $11,
			bounce_error = $12,
			followup_email_click_ip = $13,
			followup_email_click_device = $14,
			followup_email_open_ip = $15,
			followup_email_open_device = $16,
			webhook_last_updated = $17
		WHERE id = $18`

	_, err = tx.ExecContext(ctx, update,
		lead.Status,
		lead.Delivered,
		lead.Bounced,
		lead.Spam,
		lead.Unsub,
		lead.Dropped,
		lead.Opens,
		lead.Clicks,
		nullString(lead.DroppedCode),
		nullString(lead.DroppedReason),
		nullString(lead.DroppedDesc),
		nullString(lead.BounceError),
		nullString(lead.ClickIP),
		nullString(lead.ClickDevice),
		nullString(lead.OpenIP),
		nullString(lead.OpenDevice),
		now,
		lead.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("update lead: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit lead update: %w", err)
	}

	return lead, nil
}

// Upsert creates the lead when the recipient is new and leaves an existing row
// untouched. email_addr carries no unique constraint, so the check runs under
// the same transaction rules as Apply instead of ON CONFLICT.
func (r *LeadRepository) Upsert(ctx context.Context, lead *entity.Lead) error {
	ctx, cancel := context.WithTimeout(ctx, r.Timeout)
	defer cancel()

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var existingID string
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM leads WHERE email_addr = $1 LIMIT 1`,
		lead.EmailAddr,
	).Scan(&existingID)

	switch {
	case err == nil:
		lead.ID = existingID
		return tx.Commit()
	case !errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("check existing lead: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO leads (id, email_addr, followup_email_status, followup_email_opens, followup_email_clicks)
		VALUES ($1, $2, $3, 0, 0)`,
		lead.ID,
		lead.EmailAddr,
		lead.Status,
	)
	if err != nil {
		return fmt.Errorf("insert lead: %w", err)
	}

	return tx.Commit()
}

// exactlyOne enforces the lookup contract: zero rows is not found, more than
// one is ambiguous. The old tolerance on delivered events is gone on purpose.
func exactlyOne(rows *sql.Rows) (*entity.Lead, error) {
	var lead *entity.Lead

	for rows.Next() {
		if lead != nil {
			return nil, entity.ErrAmbiguousLead
		}

		l, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		lead = l
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read lead rows: %w", err)
	}

	if lead == nil {
		return nil, entity.ErrLeadNotFound
	}

	return lead, nil
}

func scanLead(rows *sql.Rows) (*entity.Lead, error) {
	var lead entity.Lead
	var visitorID, droppedCode, droppedReason, droppedDesc sql.NullString
	var bounceError, clickIP, clickDevice, openIP, openDevice sql.NullString
	var updatedAt sql.NullTime

	err := rows.Scan(
		&lead.ID,
		&lead.EmailAddr,
		&visitorID,
		&lead.Status,
		&lead.Delivered,
		&lead.Bounced,
		&lead.Spam,
		&lead.Unsub,
		&lead.Dropped,
		&lead.Opens,
		&lead.Clicks,
		&droppedCode,
		&droppedReason,
		&droppedDesc,
		&bounceError,
		&clickIP,
		&clickDevice,
		&openIP,
		&openDevice,
		&updatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("scan lead: %w", err)
	}

	lead.AppendedVisitorID = visitorID.String
	lead.DroppedCode = droppedCode.String
	lead.DroppedReason = droppedReason.String
	lead.DroppedDesc = droppedDesc.String
	lead.BounceError = bounceError.String
	lead.ClickIP = clickIP.String
	lead.ClickDevice = clickDevice.String
	lead.OpenIP = openIP.String
	lead.OpenDevice = openDevice.String
	if updatedAt.Valid {
		t := updatedAt.Time
		lead.WebhookUpdatedAt = &t
	}

	return &lead, nil
}

// isRetryable matches deadlock and serialization failures worth another pass.
func isRetryable(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	return pqErr.Code == "40P01" || pqErr.Code == "40001"
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
