package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/arrivapp-go-api/internal/models"
	"github.com/noah-isme/arrivapp-go-api/internal/notification"
	"github.com/noah-isme/arrivapp-go-api/pkg/mailer"
)

func TestDeliveryRecorderWritesFlags(t *testing.T) {
	f := newAttendanceFixture(t)
	student := f.addStudent(t, "S1", "1A")
	ctx := context.Background()
	now := f.at(t, "2025-03-10", "09:15:00")

	record := &models.AttendanceRecord{StudentID: student.ID, SchoolID: f.school.ID, AttendanceDate: "2025-03-10", CheckinAt: now}
	require.NoError(t, f.records.Create(ctx, record))
	absence := &models.AbsenceNotification{StudentID: student.ID, SchoolID: f.school.ID, AbsenceDate: "2025-03-11"}
	_, err := f.absences.CreateIfAbsent(ctx, absence)
	require.NoError(t, err)

	recorder := NewDeliveryRecorder(f.records, f.absences)
	msg := mailer.Message{To: student.ParentEmail}
	require.NoError(t, recorder.RecordOutcome(ctx, notification.NewIntent(notification.KindCheckin, record.ID, msg, now), true, now))
	require.NoError(t, recorder.RecordOutcome(ctx, notification.NewIntent(notification.KindCheckout, record.ID, msg, now), false, now))
	require.NoError(t, recorder.RecordOutcome(ctx, notification.NewIntent(notification.KindAbsenceParent, absence.ID, msg, now), true, now.Add(time.Hour)))
	require.NoError(t, recorder.RecordOutcome(ctx, notification.NewIntent(notification.KindAbsenceAdmin, 0, msg, now), true, now))

	stored, err := f.records.FindByStudentAndDay(ctx, student.ID, "2025-03-10")
	require.NoError(t, err)
	require.True(t, stored.CheckinEmailSent)
	require.False(t, stored.CheckoutEmailSent)

	notices, err := f.absences.ListBySchoolAndDay(ctx, f.school.ID, "2025-03-11")
	require.NoError(t, err)
	require.Len(t, notices, 1)
	require.True(t, notices[0].EmailSent)
	require.NotNil(t, notices[0].EmailSentAt)
}
