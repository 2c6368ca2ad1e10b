package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/arrivapp-go-api/internal/models"
)

func TestJustificationRepositoryReviewOnlyPending(t *testing.T) {
	db := newTestDB(t)
	repo := NewJustificationRepository(db)
	student := seedStudent(t, db, 1, "S-200", "4A")
	ctx := context.Background()

	justification := &models.Justification{
		StudentID:   student.ID,
		SchoolID:    1,
		Type:        models.JustificationAbsence,
		Date:        "2025-03-10",
		Reason:      "Medical appointment",
		Status:      models.JustificationPending,
		SubmittedBy: student.ParentEmail,
	}
	require.NoError(t, repo.Create(ctx, justification))

	at := time.Date(2025, 3, 11, 10, 0, 0, 0, time.UTC)
	ok, err := repo.Review(ctx, justification.ID, models.JustificationApproved, 7, "ok", at)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = repo.Review(ctx, justification.ID, models.JustificationRejected, 8, "", at)
	require.NoError(t, err)
	require.False(t, ok)

	stored, err := repo.GetByID(ctx, justification.ID)
	require.NoError(t, err)
	require.Equal(t, models.JustificationApproved, stored.Status)
	require.NotNil(t, stored.ReviewedBy)
	require.Equal(t, uint(7), *stored.ReviewedBy)
	require.NotNil(t, stored.Student)
}

func TestJustificationRepositoryListAndApprovedIDs(t *testing.T) {
	db := newTestDB(t)
	repo := NewJustificationRepository(db)
	a := seedStudent(t, db, 1, "S-201", "4A")
	b := seedStudent(t, db, 1, "S-202", "4A")
	ctx := context.Background()

	rows := []models.Justification{
		{StudentID: a.ID, SchoolID: 1, Type: models.JustificationAbsence, Date: "2025-03-10", Reason: "flu", Status: models.JustificationApproved, SubmittedBy: a.ParentEmail},
		{StudentID: b.ID, SchoolID: 1, Type: models.JustificationAbsence, Date: "2025-03-10", Reason: "trip", Status: models.JustificationPending, SubmittedBy: b.ParentEmail},
		{StudentID: b.ID, SchoolID: 1, Type: models.JustificationTardiness, Date: "2025-03-12", Reason: "bus", Status: models.JustificationApproved, SubmittedBy: b.ParentEmail},
	}
	for i := range rows {
		require.NoError(t, repo.Create(ctx, &rows[i]))
	}

	ids, err := repo.ApprovedStudentIDs(ctx, []uint{a.ID, b.ID}, models.JustificationAbsence, "2025-03-10")
	require.NoError(t, err)
	require.Equal(t, []uint{a.ID}, ids)

	pending, err := repo.List(ctx, JustificationFilter{SchoolID: 1, Status: models.JustificationPending})
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, b.ID, pending[0].StudentID)

	ranged, err := repo.List(ctx, JustificationFilter{StudentID: b.ID, From: "2025-03-11", To: "2025-03-31"})
	require.NoError(t, err)
	require.Len(t, ranged, 1)
	require.Equal(t, models.JustificationTardiness, ranged[0].Type)
}

func TestJustificationRepositoryDelete(t *testing.T) {
	db := newTestDB(t)
	repo := NewJustificationRepository(db)
	student := seedStudent(t, db, 1, "S-210", "4A")
	ctx := context.Background()

	justification := &models.Justification{
		StudentID: student.ID, SchoolID: 1, Type: models.JustificationAbsence, Date: "2025-03-10",
		Reason: "flu", Status: models.JustificationPending, SubmittedBy: student.ParentEmail,
	}
	require.NoError(t, repo.Create(ctx, justification))

	require.NoError(t, repo.Delete(ctx, justification.ID))
	_, err := repo.GetByID(ctx, justification.ID)
	require.True(t, IsNotFound(err))

	require.True(t, IsNotFound(repo.Delete(ctx, justification.ID)))
}
