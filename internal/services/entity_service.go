package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vulntrack/vtrack-backend/historic"
	"github.com/vulntrack/vtrack-backend/model"
	"github.com/vulntrack/vtrack-backend/util"
)

// EntityService creates entities and records lifecycle transitions on
// their historic series.
type EntityService struct {
	repo   *historic.Repository
	writer *historic.Writer
	log    *zap.SugaredLogger
}

// NewEntityService wires the service dependencies.
func NewEntityService(repo *historic.Repository, writer *historic.Writer, log *zap.Logger) *EntityService {
	return &EntityService{repo: repo, writer: writer, log: log.Sugar()}
}

// VulnerabilityInput is the caller-supplied shape of a new
// vulnerability.
type VulnerabilityInput struct {
	GroupName      string `json:"group_name"`
	OrganizationID string `json:"organization_id"`
	VulnType       string `json:"vuln_type"`
	Where          string `json:"where"`
	Specific       string `json:"specific"`
	Source         string `json:"source"`
	CVSSVector     string `json:"cvss_vector"`
}

// CreateVulnerability writes a new vulnerability entity: metadata plus
// the initial open STATE and untreated TREATMENT records. Returns the
// assigned id.
func (s *EntityService) CreateVulnerability(ctx context.Context, input VulnerabilityInput, actor string) (string, error) {
	for field, value := range map[string]string{
		"group_name": input.GroupName,
		"vuln_type":  input.VulnType,
		"where":      input.Where,
	} {
		if util.IsEmpty(value) {
			return "", fmt.Errorf("%w: %s is required", model.ErrInvalidInput, field)
		}
	}

	now := time.Now().UTC().Truncate(time.Second)
	score := util.CalculateCVSSScore(input.CVSSVector)
	v := model.Vulnerability{
		ID:             uuid.New().String(),
		GroupName:      input.GroupName,
		OrganizationID: input.OrganizationID,
		VulnType:       input.VulnType,
		Where:          input.Where,
		Specific:       input.Specific,
		Source:         input.Source,
		CVSSVector:     input.CVSSVector,
		SeverityScore:  score,
		Severity:       util.GetSeverityRating(score),
		CreatedBy:      actor,
		CreatedDate:    now,
		State: model.StateEntry{
			Entry:  model.Entry{ModifiedBy: actor, ModifiedDate: now},
			Status: model.StateOpen,
		},
		Treatment: model.TreatmentEntry{
			Entry:  model.Entry{ModifiedBy: actor, ModifiedDate: now},
			Status: model.TreatmentNew,
		},
	}
	if err := s.writer.CreateVulnerability(ctx, v); err != nil {
		return "", err
	}
	s.log.Infow("vulnerability created", "group", v.GroupName, "id", v.ID, "severity", v.SeverityScore)
	return v.ID, nil
}

// GitRootInput is the caller-supplied shape of a new git root.
type GitRootInput struct {
	GroupName      string `json:"group_name"`
	OrganizationID string `json:"organization_id"`
	URL            string `json:"url"`
	Branch         string `json:"branch"`
	Nickname       string `json:"nickname"`
}

// CreateGitRoot writes a new git root entity with its initial STATE
// and CLON records.
func (s *EntityService) CreateGitRoot(ctx context.Context, input GitRootInput, actor string) (string, error) {
	for field, value := range map[string]string{
		"group_name": input.GroupName,
		"url":        input.URL,
		"branch":     input.Branch,
	} {
		if util.IsEmpty(value) {
			return "", fmt.Errorf("%w: %s is required", model.ErrInvalidInput, field)
		}
	}

	now := time.Now().UTC().Truncate(time.Second)
	r := model.GitRoot{
		ID:             uuid.New().String(),
		GroupName:      input.GroupName,
		OrganizationID: input.OrganizationID,
		URL:            input.URL,
		Branch:         input.Branch,
		Nickname:       input.Nickname,
		CreatedBy:      actor,
		CreatedDate:    now,
		State: model.StateEntry{
			Entry:  model.Entry{ModifiedBy: actor, ModifiedDate: now},
			Status: model.StateOpen,
		},
		Cloning: model.CloneEntry{
			Entry:  model.Entry{ModifiedBy: actor, ModifiedDate: now},
			Status: model.CloningQueued,
		},
	}
	if err := s.writer.CreateGitRoot(ctx, r); err != nil {
		return "", err
	}
	s.log.Infow("git root created", "group", r.GroupName, "id", r.ID, "url", r.URL)
	return r.ID, nil
}

// cloningStatuses are the values the CLON series accepts.
var cloningStatuses = []string{model.CloningQueued, model.CloningCloning, model.CloningOK, model.CloningFailed}

// RecordCloning appends a CLON record on a git root, tracking the
// progress of repository synchronization.
func (s *EntityService) RecordCloning(ctx context.Context, rootID, status, message, actor string) error {
	if !util.Contains(cloningStatuses, status) {
		return fmt.Errorf("%w: cloning status %q", model.ErrInvalidInput, status)
	}
	entry := model.CloneEntry{
		Entry:   model.Entry{ModifiedBy: actor, ModifiedDate: time.Now().UTC().Truncate(time.Second)},
		Status:  status,
		Message: message,
	}
	return s.writer.AppendCloning(ctx, rootID, entry)
}

// ResourceInput is the caller-supplied shape of a new resource.
type ResourceInput struct {
	RootID string `json:"root_id"`
	Kind   string `json:"kind"`
	Value  string `json:"value"`
}

// CreateResource writes a new resource entity under a root with its
// initial STATE record.
func (s *EntityService) CreateResource(ctx context.Context, input ResourceInput, actor string) (string, error) {
	for field, value := range map[string]string{
		"root_id": input.RootID,
		"kind":    input.Kind,
		"value":   input.Value,
	} {
		if util.IsEmpty(value) {
			return "", fmt.Errorf("%w: %s is required", model.ErrInvalidInput, field)
		}
	}

	now := time.Now().UTC().Truncate(time.Second)
	r := model.Resource{
		ID:          uuid.New().String(),
		RootID:      input.RootID,
		Kind:        input.Kind,
		Value:       input.Value,
		CreatedBy:   actor,
		CreatedDate: now,
		State: model.StateEntry{
			Entry:  model.Entry{ModifiedBy: actor, ModifiedDate: now},
			Status: model.StateOpen,
		},
	}
	if err := s.writer.CreateResource(ctx, r); err != nil {
		return "", err
	}
	s.log.Infow("resource created", "root", r.RootID, "id", r.ID, "kind", r.Kind)
	return r.ID, nil
}

var (
	verificationStatuses = []string{model.VerificationRequested, model.VerificationVerified}
	zeroRiskStatuses     = []string{model.ZeroRiskRequested, model.ZeroRiskConfirmed, model.ZeroRiskRejected}
)

// RecordVerification appends a VERIFICATION record on a vulnerability.
func (s *EntityService) RecordVerification(ctx context.Context, vulnerabilityID, status string, vulnerabilityIDs []string, actor string) error {
	if !util.Contains(verificationStatuses, status) {
		return fmt.Errorf("%w: verification status %q", model.ErrInvalidInput, status)
	}
	entry := model.VerificationEntry{
		Entry:            model.Entry{ModifiedBy: actor, ModifiedDate: time.Now().UTC().Truncate(time.Second)},
		Status:           status,
		VulnerabilityIDs: vulnerabilityIDs,
	}
	return s.writer.AppendVerification(ctx, model.VulnerabilityKeys, vulnerabilityID, entry)
}

// RecordZeroRisk appends a ZERORISK record on a vulnerability.
func (s *EntityService) RecordZeroRisk(ctx context.Context, vulnerabilityID, status, justification, actor string) error {
	if !util.Contains(zeroRiskStatuses, status) {
		return fmt.Errorf("%w: zero risk status %q", model.ErrInvalidInput, status)
	}
	entry := model.ZeroRiskEntry{
		Entry:         model.Entry{ModifiedBy: actor, ModifiedDate: time.Now().UTC().Truncate(time.Second)},
		Status:        status,
		Justification: justification,
	}
	return s.writer.AppendZeroRisk(ctx, model.VulnerabilityKeys, vulnerabilityID, entry)
}

// DeleteEntity records the terminal DELETED state. Historic rows stay
// in place; only callers of the aggregation see the entity leave the
// live totals.
func (s *EntityService) DeleteEntity(ctx context.Context, parentID, entityID, actor string) error {
	entity, err := s.repo.GetEntity(ctx, parentID, entityID)
	if err != nil {
		return err
	}
	keys, err := model.KeysForType(entity.Type())
	if err != nil {
		return err
	}
	entry := model.StateEntry{
		Entry:  model.Entry{ModifiedBy: actor, ModifiedDate: time.Now().UTC().Truncate(time.Second)},
		Status: model.StateDeleted,
	}
	if err := s.writer.AppendState(ctx, keys, entityID, entry); err != nil {
		return err
	}
	s.log.Infow("entity deleted", "parent", parentID, "id", entityID, "actor", actor)
	return nil
}
