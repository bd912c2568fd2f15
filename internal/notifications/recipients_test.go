package notifications

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"certshield/coi-backend/internal/compliance"
)

func testSubcontractor() *compliance.Subcontractor {
	return &compliance.Subcontractor{
		Name:         "Apex Electrical",
		ContactEmail: "office@apexelectrical.example",
		ContactPhone: "+15551230001",
		BrokerName:   "Hartley Insurance",
		BrokerEmail:  "certs@hartley.example",
	}
}

func TestResolveRecipientsBrokerPrecedenceForDeficiency(t *testing.T) {
	sub := testSubcontractor()

	recipients := ResolveRecipients(sub, nil, nil, TypeDeficiency)

	require.Len(t, recipients, 2)
	assert.Equal(t, KindBroker, recipients[0].Kind)
	assert.Equal(t, "certs@hartley.example", recipients[0].Email)
	// Subcontractor still gets the SMS nudge, not a duplicate email.
	assert.Equal(t, KindSubcontractor, recipients[1].Kind)
	assert.Empty(t, recipients[1].Email)
	assert.Equal(t, "+15551230001", recipients[1].Phone)
}

func TestResolveRecipientsFallsBackWithoutBroker(t *testing.T) {
	sub := testSubcontractor()
	sub.BrokerEmail = ""

	recipients := ResolveRecipients(sub, nil, nil, TypeFollowUp)

	require.Len(t, recipients, 1)
	assert.Equal(t, KindSubcontractor, recipients[0].Kind)
	assert.Equal(t, "office@apexelectrical.example", recipients[0].Email)
	assert.Equal(t, "+15551230001", recipients[0].Phone)
}

func TestResolveRecipientsCriticalAlertGoesWide(t *testing.T) {
	sub := testSubcontractor()
	project := &compliance.Project{Name: "Tower West", ManagerEmail: "pm@gc.example"}

	recipients := ResolveRecipients(sub, project, []string{"safety@gc.example"}, TypeCriticalAlert)

	require.Len(t, recipients, 4)
	kinds := make([]RecipientKind, 0, len(recipients))
	for _, r := range recipients {
		kinds = append(kinds, r.Kind)
	}
	assert.Equal(t, []RecipientKind{KindSubcontractor, KindBroker, KindProjectManager, KindAdmin}, kinds)
}

func TestResolveRecipientsDropsUnreachableContacts(t *testing.T) {
	sub := &compliance.Subcontractor{Name: "No Contact LLC"}

	recipients := ResolveRecipients(sub, nil, nil, TypeDeficiency)

	assert.Empty(t, recipients)
}
