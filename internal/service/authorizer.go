package service

import (
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/noah-isme/lms-api/internal/models"
	"github.com/noah-isme/lms-api/internal/policy"
	"github.com/noah-isme/lms-api/internal/repository"
	appErrors "github.com/noah-isme/lms-api/pkg/errors"
)

// authorizer runs policy checks and records every verdict.
type authorizer struct {
	metrics *MetricsService
	logger  *zap.Logger
}

func newAuthorizer(metrics *MetricsService, logger *zap.Logger) authorizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return authorizer{metrics: metrics, logger: logger}
}

// gate rejects role-level denials before any record is loaded.
func (a authorizer) gate(actor *models.Actor, action policy.Action, resource policy.Resource) error {
	decision := policy.Gate(actor, action, resource)
	if decision.Allowed {
		return nil
	}
	a.record(actor, action, resource, decision)
	return decision.Err()
}

// check evaluates the full rule table against a resolved target.
func (a authorizer) check(actor *models.Actor, action policy.Action, target policy.Target) error {
	decision := policy.Authorize(actor, action, target)
	a.record(actor, action, target.Resource, decision)
	return decision.Err()
}

// scope authorizes a list action and returns its narrowing filter.
func (a authorizer) scope(actor *models.Actor, resource policy.Resource) (policy.Scope, error) {
	scope, decision := policy.ListScope(actor, resource)
	a.record(actor, policy.ActionList, resource, decision)
	return scope, decision.Err()
}

func (a authorizer) record(actor *models.Actor, action policy.Action, resource policy.Resource, decision policy.Decision) {
	a.metrics.RecordPolicyDecision(resource, action, decision)
	if decision.Allowed {
		return
	}
	fields := []zap.Field{
		zap.String("resource", string(resource)),
		zap.String("action", string(action)),
		zap.String("reason", string(decision.Reason)),
	}
	if actor != nil {
		fields = append(fields, zap.String("actor_id", actor.ID), zap.String("actor_role", string(actor.Role)))
	}
	a.logger.Debug("policy denied", fields...)
}

// notFoundOr maps a missing row to NotFound and anything else to Internal.
func notFoundOr(err error, entity string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, entity+" not found")
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load "+entity)
}

// writeError maps repository write failures onto the error taxonomy.
func writeError(err error, op, conflictMsg string) error {
	switch {
	case errors.Is(err, repository.ErrDuplicate):
		return appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, conflictMsg)
	case errors.Is(err, repository.ErrInvalidReference):
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "referenced record does not exist")
	case errors.Is(err, sql.ErrNoRows):
		return appErrors.Clone(appErrors.ErrNotFound, "resource not found")
	default:
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to "+op)
	}
}
