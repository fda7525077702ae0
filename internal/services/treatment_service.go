// Package services provides internal service implementations for the vtrack backend.
package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/vulntrack/vtrack-backend/historic"
	"github.com/vulntrack/vtrack-backend/model"
	"github.com/vulntrack/vtrack-backend/policy"
	"github.com/vulntrack/vtrack-backend/treatment"
)

// TreatmentService orchestrates a treatment change: policy fetch,
// transition validation, then the historic append. Validation failures
// and missing entities are business outcomes returned to the caller;
// only store failures are logged as errors further down.
type TreatmentService struct {
	repo     *historic.Repository
	writer   *historic.Writer
	policies policy.Provider
	log      *zap.SugaredLogger
}

// NewTreatmentService wires the service dependencies.
func NewTreatmentService(repo *historic.Repository, writer *historic.Writer, policies policy.Provider, log *zap.Logger) *TreatmentService {
	return &TreatmentService{repo: repo, writer: writer, policies: policies, log: log.Sugar()}
}

// RequestTreatmentChange validates and appends a new treatment record
// for a vulnerability. On rejection the returned error carries the
// specific violated rule.
func (s *TreatmentService) RequestTreatmentChange(
	ctx context.Context,
	groupName string,
	vulnerabilityID string,
	req treatment.ChangeRequest,
	actor string,
) error {
	entity, err := s.repo.GetEntity(ctx, groupName, vulnerabilityID)
	if err != nil {
		return err
	}
	vuln, ok := entity.(model.Vulnerability)
	if !ok {
		return fmt.Errorf("%w: %s is not a vulnerability", model.ErrEntityNotFound, vulnerabilityID)
	}

	history, err := s.repo.TreatmentHistory(ctx, vulnerabilityID)
	if err != nil {
		return err
	}

	orgPolicy, err := s.policies.PolicyForOrganization(ctx, vuln.OrganizationID)
	if err != nil {
		return err
	}

	entry, err := treatment.Validate(orgPolicy, vuln.SeverityScore, history, req, actor, time.Now())
	if err != nil {
		return err
	}

	if err := s.writer.AppendTreatment(ctx, model.VulnerabilityKeys, vulnerabilityID, entry); err != nil {
		return err
	}
	s.log.Infow("treatment appended", "group", groupName, "vulnerability", vulnerabilityID,
		"status", entry.Status, "actor", actor)
	return nil
}
