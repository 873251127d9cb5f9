package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/lms-api/internal/models"
	"github.com/noah-isme/lms-api/pkg/jobs"
)

const auditJobType = "audit_log"

type auditRepository interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type auditQueue interface {
	TryEnqueue(job jobs.Job) error
}

// AuditEntry describes one audited action.
type AuditEntry struct {
	Actor      *models.Actor
	Action     string
	Resource   string
	ResourceID string
	Before     interface{}
	After      interface{}
	Meta       models.RequestMeta
}

// AuditService records audit trail entries, off the request path when a
// queue is attached.
type AuditService struct {
	repo   auditRepository
	queue  auditQueue
	logger *zap.Logger
}

// NewAuditService constructs an AuditService writing synchronously until a
// queue is attached.
func NewAuditService(repo auditRepository, logger *zap.Logger) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditService{repo: repo, logger: logger}
}

// AttachQueue routes subsequent entries through the queue.
func (s *AuditService) AttachQueue(queue auditQueue) {
	if s == nil {
		return
	}
	s.queue = queue
}

// Record stores an audit entry. Failures are logged and never surface to callers.
func (s *AuditService) Record(ctx context.Context, entry AuditEntry) {
	if s == nil || s.repo == nil {
		return
	}
	log := s.build(entry)
	if s.queue != nil {
		err := s.queue.TryEnqueue(jobs.Job{ID: log.ID, Type: auditJobType, Payload: log})
		if err == nil {
			return
		}
		s.logger.Warn("audit queue rejected entry, writing inline", zap.String("action", log.Action), zap.Error(err))
	}
	if err := s.repo.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to record audit log", zap.String("action", log.Action), zap.String("resource", log.Resource), zap.Error(err))
	}
}

// Handle is the job handler that persists queued entries.
func (s *AuditService) Handle(ctx context.Context, job jobs.Job) error {
	log, ok := job.Payload.(*models.AuditLog)
	if !ok {
		return fmt.Errorf("unexpected audit payload %T", job.Payload)
	}
	return s.repo.CreateAuditLog(ctx, log)
}

func (s *AuditService) build(entry AuditEntry) *models.AuditLog {
	log := &models.AuditLog{
		ID:        uuid.NewString(),
		Action:    entry.Action,
		Resource:  entry.Resource,
		IPAddress: entry.Meta.IP,
		UserAgent: entry.Meta.UserAgent,
		CreatedAt: time.Now().UTC(),
	}
	if entry.Actor != nil && entry.Actor.ID != "" {
		id := entry.Actor.ID
		log.UserID = &id
	}
	if entry.ResourceID != "" {
		id := entry.ResourceID
		log.ResourceID = &id
	}
	log.OldValues = marshalAudit(entry.Before)
	log.NewValues = marshalAudit(entry.After)
	return log
}

func marshalAudit(v interface{}) []byte {
	if v == nil {
		return nil
	}
	payload, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return payload
}
