package postgres

import (
	"context"

	"github.com/google/uuid"

	"github.com/namma-finance/ledger-core/internal/domain"
)

type AuditRepo struct {
	db *DB
}

func NewAuditRepo(db *DB) *AuditRepo { return &AuditRepo{db: db} }

// Append writes one immutable entry. The audit service (not this repo)
// owns the warn-log-never-propagate failure policy of §4.7.
func (r *AuditRepo) Append(ctx context.Context, e *domain.AuditEntry) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	const q = `
		INSERT INTO audit_entries (id, actor_id, action, entity_type, entity_id, before, after, ip, user_agent, remarks, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, now())
		RETURNING created_at`
	row := r.db.exec(ctx).QueryRow(ctx, q, e.ID, e.ActorID, e.Action, e.EntityType, e.EntityID, e.Before, e.After, pgText(e.IP), pgText(e.UserAgent), pgText(e.Remarks))
	return row.Scan(&e.CreatedAt)
}
