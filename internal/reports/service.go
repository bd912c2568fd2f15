package reports

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"certshield/coi-backend/internal/compliance"
	"certshield/coi-backend/internal/verification"
)

// Row is one line of the compliance report: the assignment joined with its
// parties and the latest verdict.
type Row struct {
	ProjectName       string
	SubcontractorName string
	BrokerName        string
	Status            compliance.Status
	OnSiteDate        *time.Time
	VerdictStatus     string
	Deficiencies      string
	VerifiedAt        *time.Time
}

type Service interface {
	// ComplianceRows assembles the report body for a company, optionally
	// restricted to a status subset.
	ComplianceRows(ctx context.Context, companyID uuid.UUID, statuses []compliance.Status) ([]Row, error)
}

type service struct {
	assignments compliance.Repository
	verdicts    verification.Repository
	logger      *zap.Logger
}

func NewService(assignments compliance.Repository, verdicts verification.Repository, logger *zap.Logger) Service {
	return &service{assignments: assignments, verdicts: verdicts, logger: logger}
}

func (s *service) ComplianceRows(ctx context.Context, companyID uuid.UUID, statuses []compliance.Status) ([]Row, error) {
	var (
		assignments []compliance.Assignment
		err         error
	)
	if len(statuses) > 0 {
		assignments, err = s.assignments.ListAssignmentsByStatus(ctx, companyID, statuses)
	} else {
		assignments, err = s.assignments.ListAssignments(ctx, companyID)
	}
	if err != nil {
		return nil, err
	}

	rows := make([]Row, 0, len(assignments))
	for i := range assignments {
		assignment := &assignments[i]

		row, err := s.buildRow(ctx, assignment)
		if err != nil {
			s.logger.Warn("skipping assignment in compliance report",
				zap.String("assignment_id", assignment.ID.String()),
				zap.Error(err))
			continue
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (s *service) buildRow(ctx context.Context, assignment *compliance.Assignment) (Row, error) {
	sub, err := s.assignments.GetSubcontractor(ctx, assignment.SubcontractorID)
	if err != nil {
		return Row{}, err
	}
	project, err := s.assignments.GetProject(ctx, assignment.ProjectID)
	if err != nil {
		return Row{}, err
	}

	row := Row{
		ProjectName:       project.Name,
		SubcontractorName: sub.Name,
		BrokerName:        sub.BrokerName,
		Status:            assignment.Status,
		OnSiteDate:        assignment.OnSiteDate,
	}

	verdict, err := s.verdicts.Latest(ctx, assignment.ProjectID, assignment.SubcontractorID)
	if err != nil {
		return Row{}, err
	}
	if verdict != nil {
		row.VerdictStatus = string(verdict.Status)
		verifiedAt := verdict.VerifiedAt
		row.VerifiedAt = &verifiedAt

		types := make([]string, 0, 4)
		for _, d := range verdict.Deficiencies() {
			types = append(types, d.Type)
		}
		row.Deficiencies = strings.Join(types, ", ")
	}
	return row, nil
}
