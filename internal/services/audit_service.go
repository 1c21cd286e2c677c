package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	apperrors "trustledger/internal/errors"
	"trustledger/internal/events"
	"trustledger/internal/integrity"
	"trustledger/internal/logger"
	"trustledger/internal/metrics"
	"trustledger/internal/models"
	"trustledger/internal/pagination"
)

const publishTimeout = 10 * time.Second

// auditService records and verifies the audit trail.
type auditService struct {
	db        *gorm.DB
	publisher events.Publisher
	now       func() time.Time
}

// NewAuditService creates a new AuditServicer. A nil publisher disables
// export of committed records.
func NewAuditService(db *gorm.DB, publisher events.Publisher) AuditServicer {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &auditService{db: db, publisher: publisher, now: time.Now}
}

// Record canonicalizes the diff, stamps the time, hashes and persists one
// record. It is best-effort: a failure is logged, counted and returned in
// the result, and never turns the audited operation into a failure.
func (s *auditService) Record(entry AuditEntry) RecordResult {
	record, err := s.build(entry)
	if err == nil {
		err = s.db.Create(record).Error
	}
	if err != nil {
		metrics.AuditWriteFailuresTotal.WithLabelValues(string(entry.EntityType), string(entry.Action)).Inc()
		logger.Named("audit").Errorw("failed to write audit record",
			"error", err,
			"entity_type", entry.EntityType,
			"entity_id", entry.EntityID,
			"action", entry.Action,
			"actor_id", entry.ActorID,
		)
		return RecordResult{Err: err}
	}

	metrics.AuditRecordsTotal.WithLabelValues(string(record.EntityType), string(record.Action)).Inc()
	go s.publish(*record)

	return RecordResult{Record: record}
}

func (s *auditService) build(entry AuditEntry) (*models.AuditRecord, error) {
	diff, err := integrity.CanonicalDiff(entry.Diff)
	if err != nil {
		return nil, fmt.Errorf("canonicalize diff: %w", err)
	}

	record := &models.AuditRecord{
		EntityType: entry.EntityType,
		EntityID:   entry.EntityID,
		Action:     entry.Action,
		ActorID:    entry.ActorID,
		Diff:       models.CanonicalJSON(diff),
		IPAddress:  entry.IPAddress,
		UserAgent:  entry.UserAgent,
		CreatedAt:  integrity.NormalizeTimestamp(s.now()),
	}

	record.RecordHash, err = integrity.RecordHash(recordFields(record))
	if err != nil {
		return nil, err
	}
	return record, nil
}

func (s *auditService) publish(record models.AuditRecord) {
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	if err := s.publisher.PublishAuditRecord(ctx, &record); err != nil {
		metrics.AuditPublishFailuresTotal.Inc()
		logger.Named("audit").Warnw("failed to publish audit record",
			"error", err,
			"record_id", record.ID,
		)
	}
}

func recordFields(r *models.AuditRecord) integrity.RecordFields {
	return integrity.RecordFields{
		EntityType: string(r.EntityType),
		EntityID:   r.EntityID,
		Action:     string(r.Action),
		ActorID:    r.ActorID,
		Diff:       []byte(r.Diff),
		CreatedAt:  r.CreatedAt,
	}
}

// GetAuditRecords returns a paginated, filtered list of records, newest first.
func (s *auditService) GetAuditRecords(page pagination.PageRequest, filter AuditFilter) (*pagination.PageResponse[models.AuditRecord], error) {
	base := s.db.Model(&models.AuditRecord{})
	if filter.EntityID != nil {
		base = base.Where("entity_id = ?", *filter.EntityID)
	}
	if filter.EntityType != nil {
		base = base.Where("entity_type = ?", *filter.EntityType)
	}
	if filter.Action != nil {
		base = base.Where("action = ?", *filter.Action)
	}
	if filter.ActorID != nil {
		base = base.Where("actor_id = ?", *filter.ActorID)
	}
	if filter.FromDate != nil {
		base = base.Where("created_at >= ?", filter.FromDate.UTC())
	}
	if filter.ToDate != nil {
		base = base.Where("created_at <= ?", filter.ToDate.UTC())
	}

	result, err := pagination.List[models.AuditRecord](base, page, "created_at DESC, id DESC")
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return result, nil
}

// GetEntityAuditRecords returns the trail of a single entity, newest first.
func (s *auditService) GetEntityAuditRecords(entityID string, page pagination.PageRequest) (*pagination.PageResponse[models.AuditRecord], error) {
	return s.GetAuditRecords(page, AuditFilter{EntityID: &entityID})
}

// VerifyRecord recomputes a record's hash from its stored fields. A stored
// diff that no longer parses, or whose text differs from its canonical form,
// counts as a mismatch.
func (s *auditService) VerifyRecord(recordID string) (*RecordVerification, error) {
	var record models.AuditRecord
	if err := s.db.Where("id = ?", recordID).First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrAuditRecordNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := &RecordVerification{
		RecordID:   record.ID,
		StoredHash: record.RecordHash,
	}

	computed, err := integrity.RecordHash(recordFields(&record))
	if err != nil {
		logger.Named("audit").Warnw("audit record diff cannot be rehashed",
			"record_id", record.ID,
			"error", err,
		)
	} else {
		result.ComputedHash = computed
		result.IsValid = computed == record.RecordHash
	}

	metrics.IntegrityChecksTotal.WithLabelValues("audit_record", metrics.Result(result.IsValid)).Inc()
	return result, nil
}
