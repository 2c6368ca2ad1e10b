package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/arrivapp-go-api/internal/attendance"
	"github.com/noah-isme/arrivapp-go-api/internal/dto"
	"github.com/noah-isme/arrivapp-go-api/internal/models"
	"github.com/noah-isme/arrivapp-go-api/internal/notification"
)

func studentCodes(students []dto.StudentSummary) []string {
	out := make([]string, 0, len(students))
	for _, student := range students {
		out = append(out, student.Code)
	}
	return out
}

func TestAbsenceServiceBeforeCutoffReportsPending(t *testing.T) {
	f := newAttendanceFixture(t)
	f.addStudent(t, "S1", "1A")
	f.addStudent(t, "S2", "1A")
	scan := f.scanService(attendance.DefaultPolicy())
	absence := f.absenceService(attendance.DefaultPolicy())
	ctx := context.Background()

	f.clock.Set(f.at(t, "2025-03-10", "08:50:00"))
	_, err := scan.Scan(ctx, "S1")
	require.NoError(t, err)

	f.clock.Set(f.at(t, "2025-03-10", "09:09:59"))
	result, err := absence.ClassifyDay(ctx, f.school.ID, "2025-03-10")
	require.NoError(t, err)
	require.False(t, result.CutoffPassed)
	require.Equal(t, []string{"S1"}, studentCodes(result.Present))
	require.Empty(t, result.Absent)
	require.Equal(t, []string{"S2"}, studentCodes(result.Pending))
	require.Empty(t, f.notifier.byKind(notification.KindAbsenceParent))
}

func TestAbsenceServiceClassifyIsIdempotent(t *testing.T) {
	f := newAttendanceFixture(t)
	f.addStudent(t, "S2", "1A")
	absence := f.absenceService(attendance.DefaultPolicy())
	ctx := context.Background()

	f.clock.Set(f.at(t, "2025-03-10", "09:10:00"))
	first, err := absence.ClassifyDay(ctx, f.school.ID, "2025-03-10")
	require.NoError(t, err)
	require.True(t, first.CutoffPassed)
	require.Equal(t, []string{"S2"}, studentCodes(first.Absent))
	require.Equal(t, 1, first.NewlyAbsent)

	second, err := absence.ClassifyDay(ctx, f.school.ID, "2025-03-10")
	require.NoError(t, err)
	require.Equal(t, []string{"S2"}, studentCodes(second.Absent))
	require.Zero(t, second.NewlyAbsent)

	require.Len(t, f.notifier.byKind(notification.KindAbsenceParent), 1)
	require.Len(t, f.notifier.byKind(notification.KindAbsenceSchool), 1)
	require.Len(t, f.notifier.byKind(notification.KindAbsenceAdmin), 1)

	var count int64
	require.NoError(t, f.db.Model(&models.AbsenceNotification{}).Count(&count).Error)
	require.Equal(t, int64(1), count)
}

func TestAbsenceServiceLateArrivalLeavesAbsentSet(t *testing.T) {
	f := newAttendanceFixture(t)
	f.addStudent(t, "S1", "1A")
	scan := f.scanService(attendance.DefaultPolicy())
	absence := f.absenceService(attendance.DefaultPolicy())
	ctx := context.Background()

	f.clock.Set(f.at(t, "2025-03-10", "09:15:00"))
	first, err := absence.ClassifyDay(ctx, f.school.ID, "")
	require.NoError(t, err)
	require.Equal(t, []string{"S1"}, studentCodes(first.Absent))

	f.clock.Set(f.at(t, "2025-03-10", "09:40:00"))
	checkin, err := scan.Scan(ctx, "S1")
	require.NoError(t, err)
	require.True(t, checkin.Checkin.IsLate)

	second, err := absence.ClassifyDay(ctx, f.school.ID, "")
	require.NoError(t, err)
	require.Empty(t, second.Absent)
	require.Equal(t, []string{"S1"}, studentCodes(second.Present))
	require.Equal(t, []string{"S1"}, studentCodes(second.Late))
	require.Len(t, f.notifier.byKind(notification.KindAbsenceParent), 1)
}

func TestAbsenceServiceMarksApprovedJustificationsExcused(t *testing.T) {
	f := newAttendanceFixture(t)
	excused := f.addStudent(t, "S1", "1A")
	f.addStudent(t, "S2", "1A")
	absence := f.absenceService(attendance.DefaultPolicy())
	ctx := context.Background()

	require.NoError(t, f.justifications.Create(ctx, &models.Justification{
		StudentID:   excused.ID,
		SchoolID:    f.school.ID,
		Type:        models.JustificationAbsence,
		Date:        "2025-03-10",
		Reason:      "Doctor",
		Status:      models.JustificationApproved,
		SubmittedBy: excused.ParentEmail,
	}))

	f.clock.Set(f.at(t, "2025-03-10", "12:00:00"))
	result, err := absence.Summarize(ctx, f.school.ID, "2025-03-10")
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"S1", "S2"}, studentCodes(result.Absent))
	require.Equal(t, []string{"S1"}, studentCodes(result.Excused))
	require.Empty(t, f.notifier.intents, "summarize has no side effects")
}

func TestAbsenceServiceSchoolCutoffOverride(t *testing.T) {
	f := newAttendanceFixture(t)
	f.addStudent(t, "S1", "1A")
	require.NoError(t, f.db.Model(&models.School{}).Where("id = ?", f.school.ID).Update("absence_cutoff", "10:30").Error)
	absence := f.absenceService(attendance.DefaultPolicy())

	f.clock.Set(f.at(t, "2025-03-10", "10:00:00"))
	result, err := absence.Summarize(context.Background(), f.school.ID, "")
	require.NoError(t, err)
	require.False(t, result.CutoffPassed)
	require.Equal(t, []string{"S1"}, studentCodes(result.Pending))
}

func TestAbsenceServiceFutureDayHasNoAbsences(t *testing.T) {
	f := newAttendanceFixture(t)
	f.addStudent(t, "S1", "1A")
	absence := f.absenceService(attendance.DefaultPolicy())

	f.clock.Set(f.at(t, "2025-03-10", "12:00:00"))
	result, err := absence.ClassifyDay(context.Background(), f.school.ID, "2025-03-11")
	require.NoError(t, err)
	require.False(t, result.CutoffPassed)
	require.Empty(t, result.Absent)
}

func TestAbsenceServiceRejectsUnknownSchoolAndBadDate(t *testing.T) {
	f := newAttendanceFixture(t)
	absence := f.absenceService(attendance.DefaultPolicy())
	f.clock.Set(f.at(t, "2025-03-10", "12:00:00"))

	_, err := absence.ClassifyDay(context.Background(), 999, "")
	require.ErrorIs(t, err, ErrSchoolNotFound)

	_, err = absence.Summarize(context.Background(), f.school.ID, "10/03/2025")
	require.ErrorIs(t, err, ErrInvalidDay)
}

func TestAbsenceServiceDashboard(t *testing.T) {
	f := newAttendanceFixture(t)
	f.addStudent(t, "S1", "1A")
	f.addStudent(t, "S2", "1A")
	f.addStudent(t, "S3", "1B")
	scan := f.scanService(attendance.DefaultPolicy())
	absence := f.absenceService(attendance.DefaultPolicy())
	ctx := context.Background()

	f.clock.Set(f.at(t, "2025-03-10", "08:45:00"))
	_, err := scan.Scan(ctx, "S1")
	require.NoError(t, err)
	f.clock.Set(f.at(t, "2025-03-10", "09:05:00"))
	_, err = scan.Scan(ctx, "S2")
	require.NoError(t, err)

	f.clock.Set(f.at(t, "2025-03-10", "09:30:00"))
	_, err = absence.ClassifyDay(ctx, f.school.ID, "")
	require.NoError(t, err)

	dashboard, err := absence.Dashboard(ctx, f.school.ID, "", "")
	require.NoError(t, err)
	require.Equal(t, "2025-03-10", dashboard.Date)
	require.Equal(t, 3, dashboard.Summary.TotalStudents)
	require.Equal(t, 2, dashboard.Summary.CheckedIn)
	require.Equal(t, 1, dashboard.Summary.Late)
	require.Equal(t, 1, dashboard.Summary.Absent)
	require.True(t, dashboard.Summary.CutoffPassed)
	require.Len(t, dashboard.Checkins, 2)
	require.Equal(t, "S1", dashboard.Checkins[0].StudentCode)
	require.Equal(t, "08:45", dashboard.Checkins[0].CheckinAt.Format("15:04"))
	require.Len(t, dashboard.Late, 1)
	require.Equal(t, "S2", dashboard.Late[0].StudentCode)
	require.Len(t, dashboard.Absent, 1)
	require.Equal(t, "S3", dashboard.Absent[0].Code)
	require.False(t, dashboard.Absent[0].EmailSent)

	logs, err := absence.Records(ctx, f.school.ID, "2025-03-10", "")
	require.NoError(t, err)
	require.Len(t, logs, 2)
}

func TestAbsenceServiceDashboardClassFilter(t *testing.T) {
	f := newAttendanceFixture(t)
	f.addStudent(t, "S1", "1A")
	f.addStudent(t, "S2", "1A")
	f.addStudent(t, "S3", "1B")
	f.addStudent(t, "S4", "1B")
	scan := f.scanService(attendance.DefaultPolicy())
	absence := f.absenceService(attendance.DefaultPolicy())
	ctx := context.Background()

	f.clock.Set(f.at(t, "2025-03-10", "08:45:00"))
	_, err := scan.Scan(ctx, "S1")
	require.NoError(t, err)
	f.clock.Set(f.at(t, "2025-03-10", "09:10:00"))
	_, err = scan.Scan(ctx, "S3")
	require.NoError(t, err)

	f.clock.Set(f.at(t, "2025-03-10", "09:30:00"))
	dashboard, err := absence.Dashboard(ctx, f.school.ID, "", " 1B ")
	require.NoError(t, err)
	require.Equal(t, "1B", dashboard.ClassName)
	require.Equal(t, 2, dashboard.Summary.TotalStudents)
	require.Equal(t, 1, dashboard.Summary.CheckedIn)
	require.Equal(t, 1, dashboard.Summary.Late)
	require.Equal(t, 1, dashboard.Summary.Absent)
	require.Len(t, dashboard.Checkins, 1)
	require.Equal(t, "S3", dashboard.Checkins[0].StudentCode)
	require.Len(t, dashboard.Absent, 1)
	require.Equal(t, "S4", dashboard.Absent[0].Code)

	empty, err := absence.Dashboard(ctx, f.school.ID, "", "9Z")
	require.NoError(t, err)
	require.Zero(t, empty.Summary.TotalStudents)
	require.Empty(t, empty.Checkins)

	logs, err := absence.Records(ctx, f.school.ID, "", "1A")
	require.NoError(t, err)
	require.Len(t, logs, 1)
	require.Equal(t, "S1", logs[0].StudentCode)

	classes, err := absence.Classes(ctx, f.school.ID)
	require.NoError(t, err)
	require.Equal(t, []string{"1A", "1B"}, classes)

	_, err = absence.Classes(ctx, 999)
	require.ErrorIs(t, err, ErrSchoolNotFound)
}

func TestAbsenceServiceRunAllCoversActiveSchools(t *testing.T) {
	f := newAttendanceFixture(t)
	f.addStudent(t, "S1", "1A")

	other := models.School{Name: "Colegio Sur", Timezone: "Europe/Madrid", Active: true}
	require.NoError(t, f.db.Create(&other).Error)
	require.NoError(t, f.db.Create(&models.Student{
		Code: "O1", Name: "Other", ClassName: "2A", ParentEmail: "o1@parents.test", SchoolID: other.ID, Status: models.StudentStatusActive,
	}).Error)

	absence := f.absenceService(attendance.DefaultPolicy())
	f.clock.Set(f.at(t, "2025-03-10", "09:30:00"))
	require.NoError(t, absence.RunAll(context.Background()))

	require.Len(t, f.notifier.byKind(notification.KindAbsenceParent), 2)
	// Colegio Sur has no contact address, so only one school summary.
	require.Len(t, f.notifier.byKind(notification.KindAbsenceSchool), 1)
}
