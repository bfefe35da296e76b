package service

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/namma-finance/ledger-core/internal/domain"
)

// AuditService appends an audit entry inside the caller's transaction.
// Marshal/append failures are logged at warn and never propagate, per §4.7 —
// an audit trail gap must never roll back or fail the business operation it
// describes.
type AuditService struct {
	audit domain.AuditRepository
}

func NewAuditService(audit domain.AuditRepository) *AuditService {
	return &AuditService{audit: audit}
}

func (s *AuditService) Record(ctx context.Context, actorID uuid.UUID, action domain.AuditAction, entityType string, entityID uuid.UUID, before, after interface{}) {
	entry := &domain.AuditEntry{
		ActorID:    actorID,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
	}
	if before != nil {
		if b, err := json.Marshal(before); err == nil {
			entry.Before = b
		} else {
			log.Warn().Err(err).Str("entity_type", entityType).Msg("audit: marshal before state failed")
		}
	}
	if after != nil {
		if a, err := json.Marshal(after); err == nil {
			entry.After = a
		} else {
			log.Warn().Err(err).Str("entity_type", entityType).Msg("audit: marshal after state failed")
		}
	}
	if err := s.audit.Append(ctx, entry); err != nil {
		log.Warn().Err(err).Str("action", string(action)).Str("entity_id", entityID.String()).Msg("audit append failed")
	}
}
