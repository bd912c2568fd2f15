package notifications

import "certshield/coi-backend/internal/compliance"

// ResolveRecipients builds the destination list for one communication.
//
// Broker email takes precedence over the subcontractor's own contact email
// for deficiency and follow-up traffic when a broker contact exists; the
// subcontractor still receives SMS when a phone number is on file. Critical
// alerts go wide: subcontractor, broker, project manager and company admins.
func ResolveRecipients(sub *compliance.Subcontractor, project *compliance.Project, adminEmails []string, commType CommType) []Recipient {
	var recipients []Recipient

	switch commType {
	case TypeDeficiency, TypeFollowUp:
		if sub.BrokerEmail != "" {
			recipients = append(recipients, Recipient{
				Kind:  KindBroker,
				Name:  sub.BrokerName,
				Email: sub.BrokerEmail,
			})
			if sub.ContactPhone != "" {
				recipients = append(recipients, Recipient{
					Kind:  KindSubcontractor,
					Name:  sub.Name,
					Phone: sub.ContactPhone,
				})
			}
		} else {
			recipients = append(recipients, Recipient{
				Kind:  KindSubcontractor,
				Name:  sub.Name,
				Email: sub.ContactEmail,
				Phone: sub.ContactPhone,
			})
		}

	case TypeCriticalAlert:
		recipients = append(recipients, Recipient{
			Kind:  KindSubcontractor,
			Name:  sub.Name,
			Email: sub.ContactEmail,
			Phone: sub.ContactPhone,
		})
		if sub.BrokerEmail != "" {
			recipients = append(recipients, Recipient{
				Kind:  KindBroker,
				Name:  sub.BrokerName,
				Email: sub.BrokerEmail,
			})
		}
		if project != nil && project.ManagerEmail != "" {
			recipients = append(recipients, Recipient{
				Kind:  KindProjectManager,
				Email: project.ManagerEmail,
			})
		}
		for _, email := range adminEmails {
			recipients = append(recipients, Recipient{
				Kind:  KindAdmin,
				Email: email,
			})
		}

	default:
		recipients = append(recipients, Recipient{
			Kind:  KindSubcontractor,
			Name:  sub.Name,
			Email: sub.ContactEmail,
			Phone: sub.ContactPhone,
		})
	}

	return dropEmpty(recipients)
}

func dropEmpty(recipients []Recipient) []Recipient {
	out := recipients[:0]
	for _, r := range recipients {
		if r.Email != "" || r.Phone != "" {
			out = append(out, r)
		}
	}
	return out
}
