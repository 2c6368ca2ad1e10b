package notification

import (
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/arrivapp-go-api/pkg/mailer"
)

// Kind identifies what an intent notifies about and which record flag its
// delivery outcome is written to.
type Kind string

const (
	KindCheckin                Kind = "checkin"
	KindCheckout               Kind = "checkout"
	KindAbsenceParent          Kind = "absence_parent"
	KindAbsenceSchool          Kind = "absence_school"
	KindAbsenceAdmin           Kind = "absence_admin"
	KindJustificationSubmitted Kind = "justification_submitted"
	KindJustificationReviewed  Kind = "justification_reviewed"
)

// Intent is a queued request to deliver one e-mail. RefID points at the
// attendance record or absence notification whose sent flag reflects the
// delivery, and is zero for kinds without a flag.
type Intent struct {
	ID        string         `json:"id"`
	Kind      Kind           `json:"kind"`
	RefID     uint           `json:"ref_id,omitempty"`
	Message   mailer.Message `json:"message"`
	CreatedAt time.Time      `json:"created_at"`
}

// NewIntent builds an intent with a fresh identifier.
func NewIntent(kind Kind, refID uint, msg mailer.Message, now time.Time) Intent {
	return Intent{
		ID:        uuid.NewString(),
		Kind:      kind,
		RefID:     refID,
		Message:   msg,
		CreatedAt: now.UTC(),
	}
}
