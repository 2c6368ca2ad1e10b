package service

import (
	"context"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/arrivapp-go-api/internal/attendance"
	"github.com/noah-isme/arrivapp-go-api/internal/dto"
	"github.com/noah-isme/arrivapp-go-api/internal/models"
	"github.com/noah-isme/arrivapp-go-api/internal/notification"
)

func newJustificationService(f *attendanceFixture) JustificationService {
	return NewJustificationService(f.justifications, f.students, validator.New(), f.settings(attendance.DefaultPolicy()), f.notifier, testLogger())
}

func TestJustificationServiceSubmitAndReview(t *testing.T) {
	f := newAttendanceFixture(t)
	student := f.addStudent(t, "S1", "1A")
	svc := newJustificationService(f)
	ctx := context.Background()
	f.clock.Set(f.at(t, "2025-03-10", "10:00:00"))

	created, err := svc.Submit(ctx, dto.JustificationCreateRequest{
		StudentID:   student.ID,
		Type:        "absence",
		Date:        "2025-03-10",
		Reason:      "<b>Fever</b> since last night",
		SubmittedBy: "S1@PARENTS.test",
	})
	require.NoError(t, err)
	require.Equal(t, "pending", created.Status)
	require.Equal(t, "Fever since last night", created.Reason)
	require.Equal(t, "s1@parents.test", created.SubmittedBy)
	require.Len(t, f.notifier.byKind(notification.KindJustificationSubmitted), 1)

	reviewed, err := svc.Review(ctx, created.ID, 42, f.school.ID, dto.JustificationReviewRequest{Status: "approved", Notes: "ok"})
	require.NoError(t, err)
	require.Equal(t, "approved", reviewed.Status)
	require.NotNil(t, reviewed.ReviewedBy)
	require.Equal(t, uint(42), *reviewed.ReviewedBy)
	require.Len(t, f.notifier.byKind(notification.KindJustificationReviewed), 1)

	_, err = svc.Review(ctx, created.ID, 42, f.school.ID, dto.JustificationReviewRequest{Status: "rejected"})
	require.ErrorIs(t, err, ErrJustificationReviewed)

	ids, err := svc.ApprovedAbsences(ctx, []uint{student.ID}, "2025-03-10")
	require.NoError(t, err)
	require.Equal(t, []uint{student.ID}, ids)
}

func TestJustificationServiceSubmitRejections(t *testing.T) {
	f := newAttendanceFixture(t)
	student := f.addStudent(t, "S1", "1A")
	svc := newJustificationService(f)
	ctx := context.Background()

	_, err := svc.Submit(ctx, dto.JustificationCreateRequest{StudentID: student.ID, Type: "absence", Date: "2025-03-10", Reason: "x", SubmittedBy: "stranger@example.com"})
	require.ErrorIs(t, err, ErrJustificationForbidden)

	_, err = svc.Submit(ctx, dto.JustificationCreateRequest{StudentID: 999, Type: "absence", Date: "2025-03-10", Reason: "x", SubmittedBy: "a@example.com"})
	require.ErrorIs(t, err, ErrStudentNotFound)

	_, err = svc.Submit(ctx, dto.JustificationCreateRequest{StudentID: student.ID, Type: "holiday", Date: "2025-03-10", Reason: "x", SubmittedBy: student.ParentEmail})
	var validationErrs validator.ValidationErrors
	require.ErrorAs(t, err, &validationErrs)

	_, err = svc.Submit(ctx, dto.JustificationCreateRequest{StudentID: student.ID, Type: "absence", Date: "2025-03-10", Reason: "<script></script>", SubmittedBy: student.ParentEmail})
	require.ErrorIs(t, err, ErrJustificationEmpty)
}

func TestJustificationServiceReviewScope(t *testing.T) {
	f := newAttendanceFixture(t)
	student := f.addStudent(t, "S1", "1A")
	svc := newJustificationService(f)
	ctx := context.Background()

	created, err := svc.Submit(ctx, dto.JustificationCreateRequest{StudentID: student.ID, Type: "tardiness", Date: "2025-03-10", Reason: "Bus", SubmittedBy: student.ParentEmail})
	require.NoError(t, err)

	_, err = svc.Review(ctx, created.ID, 1, f.school.ID+1, dto.JustificationReviewRequest{Status: "approved"})
	require.ErrorIs(t, err, ErrJustificationForbidden)

	_, err = svc.Review(ctx, 999, 1, 0, dto.JustificationReviewRequest{Status: "approved"})
	require.ErrorIs(t, err, ErrJustificationNotFound)

	list, err := svc.List(ctx, dto.JustificationListQuery{SchoolID: f.school.ID, Status: string(models.JustificationPending)})
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, "Student S1", list[0].StudentName)
}

func TestJustificationServiceParentStudents(t *testing.T) {
	f := newAttendanceFixture(t)
	first := f.addStudent(t, "S1", "1A")
	second := f.addStudent(t, "S2", "2B")
	f.addStudent(t, "S3", "2B")
	require.NoError(t, f.db.Model(&models.Student{}).
		Where("id IN ?", []uint{first.ID, second.ID}).
		Update("parent_email", "garcia@parents.test").Error)
	svc := newJustificationService(f)
	ctx := context.Background()

	resp, err := svc.ParentStudents(ctx, " Garcia@Parents.TEST ")
	require.NoError(t, err)
	require.Equal(t, "garcia@parents.test", resp.Email)
	require.Len(t, resp.Students, 2)
	require.Equal(t, "2B", resp.Students[1].ClassName)

	_, err = svc.ParentStudents(ctx, "nobody@parents.test")
	require.ErrorIs(t, err, ErrStudentNotFound)

	_, err = svc.ParentStudents(ctx, "not-an-email")
	var validationErrs validator.ValidationErrors
	require.ErrorAs(t, err, &validationErrs)
}

func TestJustificationServicePendingForStudent(t *testing.T) {
	f := newAttendanceFixture(t)
	student := f.addStudent(t, "S1", "1A")
	svc := newJustificationService(f)
	ctx := context.Background()

	pending, err := svc.Submit(ctx, dto.JustificationCreateRequest{StudentID: student.ID, Type: "absence", Date: "2025-03-10", Reason: "Fever", SubmittedBy: student.ParentEmail})
	require.NoError(t, err)
	decided, err := svc.Submit(ctx, dto.JustificationCreateRequest{StudentID: student.ID, Type: "tardiness", Date: "2025-03-11", Reason: "Bus", SubmittedBy: student.ParentEmail})
	require.NoError(t, err)
	_, err = svc.Review(ctx, decided.ID, 1, 0, dto.JustificationReviewRequest{Status: "rejected"})
	require.NoError(t, err)

	items, err := svc.PendingForStudent(ctx, student.ID, "S1@Parents.test")
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, pending.ID, items[0].ID)

	_, err = svc.PendingForStudent(ctx, student.ID, "stranger@example.com")
	require.ErrorIs(t, err, ErrJustificationForbidden)

	_, err = svc.PendingForStudent(ctx, 999, student.ParentEmail)
	require.ErrorIs(t, err, ErrStudentNotFound)
}

func TestJustificationServiceGetAndDeleteScope(t *testing.T) {
	f := newAttendanceFixture(t)
	student := f.addStudent(t, "S1", "1A")
	svc := newJustificationService(f)
	ctx := context.Background()

	created, err := svc.Submit(ctx, dto.JustificationCreateRequest{StudentID: student.ID, Type: "absence", Date: "2025-03-10", Reason: "Fever", SubmittedBy: student.ParentEmail})
	require.NoError(t, err)

	got, err := svc.Get(ctx, created.ID, f.school.ID)
	require.NoError(t, err)
	require.Equal(t, "Student S1", got.StudentName)

	_, err = svc.Get(ctx, created.ID, f.school.ID+1)
	require.ErrorIs(t, err, ErrJustificationForbidden)
	require.ErrorIs(t, svc.Delete(ctx, created.ID, f.school.ID+1), ErrJustificationForbidden)

	require.NoError(t, svc.Delete(ctx, created.ID, 0))
	_, err = svc.Get(ctx, created.ID, 0)
	require.ErrorIs(t, err, ErrJustificationNotFound)
	require.ErrorIs(t, svc.Delete(ctx, created.ID, 0), ErrJustificationNotFound)
}
