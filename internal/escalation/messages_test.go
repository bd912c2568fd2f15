package escalation

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"certshield/coi-backend/internal/compliance"
	"certshield/coi-backend/internal/verification"
)

func messageFixture(stage int, urgent bool) messageInput {
	data, _ := verification.EncodeDeficiencies([]verification.Deficiency{
		{Type: "gl_limit_below_requirement", Description: "GL limit is 500k, 1M required"},
	})
	return messageInput{
		project:       &compliance.Project{Name: "Tower West"},
		subcontractor: &compliance.Subcontractor{Name: "Apex Electrical"},
		verdict: &verification.Verdict{
			ID:              uuid.New(),
			ProjectID:       uuid.New(),
			SubcontractorID: uuid.New(),
			DeficiencyData:  data,
		},
		stage:         stage,
		urgent:        urgent,
		portalBaseURL: "https://portal.certshield.example",
	}
}

func TestBuildStageMessageDeficiencyNotice(t *testing.T) {
	subject, body, smsBody := buildStageMessage(messageFixture(0, false))

	assert.True(t, strings.HasPrefix(subject, "Insurance Deficiency Notice"))
	assert.Contains(t, body, "gl_limit_below_requirement")
	assert.Contains(t, body, "https://portal.certshield.example/projects/")
	assert.NotContains(t, subject, "URGENT")
	assert.Contains(t, smsBody, "Apex Electrical")
}

func TestBuildStageMessageUrgentPrefix(t *testing.T) {
	subject, _, smsBody := buildStageMessage(messageFixture(2, true))

	assert.True(t, strings.HasPrefix(subject, "URGENT - "))
	assert.True(t, strings.HasPrefix(smsBody, "URGENT - "))
	assert.Contains(t, subject, "Follow-Up Reminder #2")
}

func TestBuildStageMessageFinalNotice(t *testing.T) {
	subject, body, _ := buildStageMessage(messageFixture(FinalStage, false))

	assert.Contains(t, subject, "Final Notice")
	assert.Contains(t, body, "stop-work order")
}

func TestBuildCriticalAlertMessage(t *testing.T) {
	in := messageFixture(0, false)

	subject, body, smsBody := buildCriticalAlertMessage(in)

	assert.True(t, strings.HasPrefix(subject, "STOP WORK"))
	assert.Contains(t, body, "must not proceed")
	assert.True(t, strings.HasPrefix(smsBody, "STOP WORK"))
	// The linked notice must match the route the API serves.
	assert.Contains(t, body,
		"https://portal.certshield.example/api/v1/notices/stop-work.pdf?project_id="+in.verdict.ProjectID.String()+
			"&subcontractor_id="+in.verdict.SubcontractorID.String())
}

func TestWriteDeficienciesFallsBackForReview(t *testing.T) {
	in := messageFixture(0, false)
	in.verdict.DeficiencyData = nil

	_, body, _ := buildStageMessage(in)

	assert.Contains(t, body, "pending manual review")
}
