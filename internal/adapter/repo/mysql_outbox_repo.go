package repo

import (
	"context"
	"time"

	"github.com/aq2208/storefront-api/internal/usecase"
)

// Rows that failed this many relay attempts stay PENDING for manual replay.
const maxOutboxRetries = 10

type MySQLOutboxRepo struct{ db DBTX }

func NewMySQLOutboxRepo(db DBTX) *MySQLOutboxRepo { return &MySQLOutboxRepo{db: db} }

func (r *MySQLOutboxRepo) Insert(ctx context.Context, m usecase.OutboxMessage) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO outbox (id,channel,payload,status,retry_count,next_attempt_at,created_at)
VALUES (?, ?, ?, 'PENDING', 0, NOW(6), NOW(6))
`, m.ID, m.Channel, m.Payload)
	return err
}

func (r *MySQLOutboxRepo) MarkSent(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `
UPDATE outbox SET status='SENT', sent_at=NOW(6)
WHERE id=? AND status='PENDING'`, id)
	return err
}

func (r *MySQLOutboxRepo) ListPending(ctx context.Context, limit int) ([]usecase.OutboxMessage, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id,channel,payload FROM outbox
WHERE status='PENDING' AND retry_count<? AND next_attempt_at<=NOW(6)
ORDER BY created_at LIMIT ?`, maxOutboxRetries, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []usecase.OutboxMessage
	for rows.Next() {
		var m usecase.OutboxMessage
		if err := rows.Scan(&m.ID, &m.Channel, &m.Payload); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *MySQLOutboxRepo) Retry(ctx context.Context, id string, next time.Time) error {
	_, err := r.db.ExecContext(ctx, `
UPDATE outbox SET retry_count=retry_count+1, next_attempt_at=?
WHERE id=? AND status='PENDING'`, next, id)
	return err
}

var _ usecase.OutboxRepo = (*MySQLOutboxRepo)(nil)

type MySQLIncidentRepo struct{ db DBTX }

func NewMySQLIncidentRepo(db DBTX) *MySQLIncidentRepo { return &MySQLIncidentRepo{db: db} }

func (r *MySQLIncidentRepo) Record(ctx context.Context, in usecase.Incident) error {
	at := in.CreatedAt
	if at.IsZero() {
		at = time.Now()
	}
	_, err := r.db.ExecContext(ctx, `
INSERT INTO checkout_incidents (id,order_id,user_id,step,detail,created_at)
VALUES (?,?,?,?,?,?)`,
		in.ID, in.OrderID, in.UserID, in.Step, in.Detail, at)
	return err
}

var _ usecase.IncidentRepo = (*MySQLIncidentRepo)(nil)
