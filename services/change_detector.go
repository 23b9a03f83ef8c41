package services

import (
	"case_track_app_go/models"
)

// Tracked field names reported by the change detector. Only status and
// notes mutations are notification-relevant.
const (
	CaseFieldStatus = "case_status"
	CaseFieldNotes  = "notes"
)

// ChangedCaseFields compares a case's previously committed state with its
// pending state and returns which tracked fields differ. A case being
// created for the first time has no previous state, so callers skip the
// comparison entirely and no notification fires.
func ChangedCaseFields(previous, pending *models.Case) []string {
	var changed []string
	if previous.CaseStatus != pending.CaseStatus {
		changed = append(changed, CaseFieldStatus)
	}
	if previous.Notes != pending.Notes {
		changed = append(changed, CaseFieldNotes)
	}
	return changed
}

func containsField(fields []string, field string) bool {
	for _, f := range fields {
		if f == field {
			return true
		}
	}
	return false
}
