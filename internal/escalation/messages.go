package escalation

import (
	"fmt"
	"strings"

	"certshield/coi-backend/internal/compliance"
	"certshield/coi-backend/internal/verification"
)

// stageLabel names each step of the reminder sequence.
func stageLabel(stage int) string {
	switch stage {
	case 0:
		return "Insurance Deficiency Notice"
	case FinalStage:
		return "Final Notice"
	default:
		return fmt.Sprintf("Follow-Up Reminder #%d", stage)
	}
}

type messageInput struct {
	project       *compliance.Project
	subcontractor *compliance.Subcontractor
	verdict       *verification.Verdict
	stage         int
	urgent        bool
	portalBaseURL string
}

func buildStageMessage(in messageInput) (subject, body, smsBody string) {
	subject = fmt.Sprintf("%s: %s on %s", stageLabel(in.stage), in.subcontractor.Name, in.project.Name)
	if in.urgent {
		subject = "URGENT - " + subject
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Certificate of insurance for %s on project %s does not meet requirements.\n\n", in.subcontractor.Name, in.project.Name)
	writeDeficiencies(&b, in.verdict)
	if in.stage == FinalStage {
		b.WriteString("\nThis is the final automated notice. Continued non-compliance may result in a stop-work order.\n")
	} else {
		b.WriteString("\nPlease submit a corrected certificate of insurance.\n")
	}
	if in.portalBaseURL != "" {
		fmt.Fprintf(&b, "\nUpload a corrected certificate: %s/projects/%s/subcontractors/%s\n", in.portalBaseURL, in.verdict.ProjectID, in.verdict.SubcontractorID)
	}
	body = b.String()

	smsBody = fmt.Sprintf("%s: insurance certificate for %s on %s needs correction. Check your email for details.",
		stageLabel(in.stage), in.subcontractor.Name, in.project.Name)
	if in.urgent {
		smsBody = "URGENT - " + smsBody
	}
	return subject, body, smsBody
}

func buildCriticalAlertMessage(in messageInput) (subject, body, smsBody string) {
	subject = fmt.Sprintf("STOP WORK - %s is not compliant and scheduled on site (%s)", in.subcontractor.Name, in.project.Name)

	var b strings.Builder
	fmt.Fprintf(&b, "%s is scheduled on site for project %s without compliant insurance coverage.\n\n", in.subcontractor.Name, in.project.Name)
	b.WriteString("Work must not proceed until a compliant certificate of insurance is on file.\n\n")
	writeDeficiencies(&b, in.verdict)
	if in.portalBaseURL != "" {
		fmt.Fprintf(&b, "\nStop-work notice: %s/api/v1/notices/stop-work.pdf?project_id=%s&subcontractor_id=%s\n", in.portalBaseURL, in.verdict.ProjectID, in.verdict.SubcontractorID)
	}
	body = b.String()

	smsBody = fmt.Sprintf("STOP WORK: %s on %s has no compliant insurance on file. Do not allow site access.", in.subcontractor.Name, in.project.Name)
	return subject, body, smsBody
}

func writeDeficiencies(b *strings.Builder, verdict *verification.Verdict) {
	deficiencies := verdict.Deficiencies()
	if len(deficiencies) == 0 {
		b.WriteString("The certificate is pending manual review.\n")
		return
	}
	b.WriteString("Deficiencies found:\n")
	for _, d := range deficiencies {
		fmt.Fprintf(b, "  - %s: %s\n", d.Type, d.Description)
	}
}
