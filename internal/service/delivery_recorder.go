package service

import (
	"context"
	"time"

	"github.com/noah-isme/arrivapp-go-api/internal/notification"
	"github.com/noah-isme/arrivapp-go-api/internal/repository"
)

// DeliveryRecorder writes notification outcomes back to the attendance and
// absence flags.
type DeliveryRecorder struct {
	records  repository.AttendanceRepository
	absences repository.AbsenceRepository
}

// NewDeliveryRecorder constructs a recorder.
func NewDeliveryRecorder(records repository.AttendanceRepository, absences repository.AbsenceRepository) *DeliveryRecorder {
	return &DeliveryRecorder{records: records, absences: absences}
}

// RecordOutcome implements notification.OutcomeRecorder. Kinds without a
// persisted flag are ignored.
func (r *DeliveryRecorder) RecordOutcome(ctx context.Context, intent notification.Intent, sent bool, at time.Time) error {
	if intent.RefID == 0 {
		return nil
	}

	switch intent.Kind {
	case notification.KindCheckin:
		return r.records.MarkCheckinEmail(ctx, intent.RefID, sent)
	case notification.KindCheckout:
		return r.records.MarkCheckoutEmail(ctx, intent.RefID, sent)
	case notification.KindAbsenceParent:
		return r.absences.MarkEmail(ctx, intent.RefID, sent, at.UTC())
	default:
		return nil
	}
}
