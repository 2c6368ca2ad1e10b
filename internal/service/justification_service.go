package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/arrivapp-go-api/internal/dto"
	"github.com/noah-isme/arrivapp-go-api/internal/models"
	"github.com/noah-isme/arrivapp-go-api/internal/notification"
	"github.com/noah-isme/arrivapp-go-api/internal/repository"
	"github.com/noah-isme/arrivapp-go-api/pkg/mailer"
)

var (
	// ErrStudentNotFound indicates the referenced student does not exist.
	ErrStudentNotFound = errors.New("student not found")
	// ErrJustificationNotFound indicates the justification does not exist.
	ErrJustificationNotFound = errors.New("justification not found")
	// ErrJustificationForbidden indicates the caller may not act on the justification.
	ErrJustificationForbidden = errors.New("not allowed to act on this justification")
	// ErrJustificationReviewed indicates the justification is no longer pending.
	ErrJustificationReviewed = errors.New("justification already reviewed")
	// ErrJustificationEmpty indicates the reason was empty after sanitisation.
	ErrJustificationEmpty = errors.New("justification reason is empty")
)

// JustificationService manages parent justifications and their review.
type JustificationService interface {
	Submit(ctx context.Context, req dto.JustificationCreateRequest) (dto.JustificationResponse, error)
	List(ctx context.Context, query dto.JustificationListQuery) ([]dto.JustificationResponse, error)
	Review(ctx context.Context, id uint, reviewerID uint, schoolScope uint, req dto.JustificationReviewRequest) (dto.JustificationResponse, error)
	Get(ctx context.Context, id uint, schoolScope uint) (dto.JustificationResponse, error)
	Delete(ctx context.Context, id uint, schoolScope uint) error
	ParentStudents(ctx context.Context, email string) (dto.ParentStudentsResponse, error)
	PendingForStudent(ctx context.Context, studentID uint, email string) ([]dto.JustificationResponse, error)
	ExcusalLookup
}

type justificationService struct {
	repo      repository.JustificationRepository
	students  repository.StudentRepository
	validator *validator.Validate
	sanitizer *bluemonday.Policy
	settings  Settings
	notifier  notification.Enqueuer
	logger    zerolog.Logger
	tracer    trace.Tracer
}

// NewJustificationService constructs a justification service.
func NewJustificationService(repo repository.JustificationRepository, students repository.StudentRepository, validate *validator.Validate, settings Settings, notifier notification.Enqueuer, logger zerolog.Logger) JustificationService {
	if notifier == nil {
		notifier = noopEnqueuer{}
	}
	return &justificationService{
		repo:      repo,
		students:  students,
		validator: validate,
		sanitizer: bluemonday.StrictPolicy(),
		settings:  settings.withDefaults(),
		notifier:  notifier,
		logger:    logger.With().Str("component", "justification_service").Logger(),
		tracer:    otel.Tracer("github.com/noah-isme/arrivapp-go-api/internal/service/justification"),
	}
}

func (s *justificationService) Submit(ctx context.Context, req dto.JustificationCreateRequest) (dto.JustificationResponse, error) {
	ctx, span := s.tracer.Start(ctx, "justifications.submit", trace.WithAttributes(
		attribute.Int64("student.id", int64(req.StudentID)),
		attribute.String("justification.type", req.Type),
	))
	defer span.End()

	if err := s.validator.Struct(req); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "validation failed")
		return dto.JustificationResponse{}, err
	}

	student, err := s.students.GetByID(ctx, req.StudentID)
	if err != nil {
		if repository.IsNotFound(err) {
			return dto.JustificationResponse{}, ErrStudentNotFound
		}
		span.RecordError(err)
		return dto.JustificationResponse{}, fmt.Errorf("load student: %w", err)
	}

	submittedBy := strings.TrimSpace(req.SubmittedBy)
	if !strings.EqualFold(submittedBy, strings.TrimSpace(student.ParentEmail)) {
		span.SetStatus(codes.Error, "submitter mismatch")
		return dto.JustificationResponse{}, ErrJustificationForbidden
	}

	reason := strings.TrimSpace(s.sanitizer.Sanitize(req.Reason))
	if reason == "" {
		return dto.JustificationResponse{}, ErrJustificationEmpty
	}

	justification := models.Justification{
		StudentID:   student.ID,
		SchoolID:    student.SchoolID,
		Type:        models.JustificationType(req.Type),
		Date:        req.Date,
		Reason:      reason,
		Status:      models.JustificationPending,
		SubmittedBy: strings.ToLower(submittedBy),
	}
	if err := s.repo.Create(ctx, &justification); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "persistence failed")
		return dto.JustificationResponse{}, fmt.Errorf("create justification: %w", err)
	}
	justification.Student = &student

	msg := notification.JustificationSubmittedMessage(student, justification)
	s.notifier.Enqueue(ctx, notification.NewIntent(notification.KindJustificationSubmitted, justification.ID, msg, s.settings.Clock.Now()))

	s.logger.Info().
		Uint("justification_id", justification.ID).
		Uint("student_id", student.ID).
		Str("submitted_by", mailer.MaskAddress(justification.SubmittedBy)).
		Msg("justification submitted")

	return dto.NewJustificationResponse(justification), nil
}

func (s *justificationService) List(ctx context.Context, query dto.JustificationListQuery) ([]dto.JustificationResponse, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, err
	}

	justifications, err := s.repo.List(ctx, repository.JustificationFilter{
		SchoolID:  query.SchoolID,
		StudentID: query.StudentID,
		Status:    models.JustificationStatus(query.Status),
		From:      query.From,
		To:        query.To,
	})
	if err != nil {
		return nil, err
	}
	return dto.NewJustificationResponses(justifications), nil
}

// Review decides a pending justification. A non-zero schoolScope restricts
// the reviewer to justifications of that school.
func (s *justificationService) Review(ctx context.Context, id uint, reviewerID uint, schoolScope uint, req dto.JustificationReviewRequest) (dto.JustificationResponse, error) {
	ctx, span := s.tracer.Start(ctx, "justifications.review", trace.WithAttributes(
		attribute.Int64("justification.id", int64(id)),
		attribute.String("justification.status", req.Status),
	))
	defer span.End()

	if err := s.validator.Struct(req); err != nil {
		span.RecordError(err)
		return dto.JustificationResponse{}, err
	}

	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return dto.JustificationResponse{}, ErrJustificationNotFound
		}
		span.RecordError(err)
		return dto.JustificationResponse{}, err
	}
	if schoolScope != 0 && existing.SchoolID != schoolScope {
		return dto.JustificationResponse{}, ErrJustificationForbidden
	}
	if existing.Status != models.JustificationPending {
		return dto.JustificationResponse{}, ErrJustificationReviewed
	}

	notes := strings.TrimSpace(s.sanitizer.Sanitize(req.Notes))
	status := models.JustificationStatus(req.Status)
	reviewedAt := s.settings.Clock.Now().UTC()

	updated, err := s.repo.Review(ctx, id, status, reviewerID, notes, reviewedAt)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "review failed")
		return dto.JustificationResponse{}, err
	}
	if !updated {
		return dto.JustificationResponse{}, ErrJustificationReviewed
	}

	reviewed, err := s.repo.GetByID(ctx, id)
	if err != nil {
		span.RecordError(err)
		return dto.JustificationResponse{}, err
	}

	if reviewed.Student != nil {
		msg := notification.JustificationReviewedMessage(*reviewed.Student, reviewed)
		s.notifier.Enqueue(ctx, notification.NewIntent(notification.KindJustificationReviewed, reviewed.ID, msg, reviewedAt))
	}

	s.logger.Info().
		Uint("justification_id", id).
		Uint("reviewer_id", reviewerID).
		Str("status", string(status)).
		Msg("justification reviewed")

	return dto.NewJustificationResponse(reviewed), nil
}

// Get returns one justification. A non-zero schoolScope hides other schools.
func (s *justificationService) Get(ctx context.Context, id uint, schoolScope uint) (dto.JustificationResponse, error) {
	justification, err := s.scoped(ctx, id, schoolScope)
	if err != nil {
		return dto.JustificationResponse{}, err
	}
	return dto.NewJustificationResponse(justification), nil
}

func (s *justificationService) Delete(ctx context.Context, id uint, schoolScope uint) error {
	if _, err := s.scoped(ctx, id, schoolScope); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if repository.IsNotFound(err) {
			return ErrJustificationNotFound
		}
		return fmt.Errorf("delete justification: %w", err)
	}

	s.logger.Info().Uint("justification_id", id).Msg("justification deleted")
	return nil
}

// ParentStudents lists the active students whose parent address is email.
func (s *justificationService) ParentStudents(ctx context.Context, email string) (dto.ParentStudentsResponse, error) {
	email = strings.TrimSpace(email)
	if err := s.validator.Var(email, "required,email"); err != nil {
		return dto.ParentStudentsResponse{}, err
	}

	students, err := s.students.ListByParentEmail(ctx, email)
	if err != nil {
		return dto.ParentStudentsResponse{}, fmt.Errorf("lookup parent students: %w", err)
	}
	if len(students) == 0 {
		return dto.ParentStudentsResponse{}, ErrStudentNotFound
	}
	return dto.NewParentStudentsResponse(strings.ToLower(email), students), nil
}

// PendingForStudent lists a student's pending justifications for the parent
// registered on the student.
func (s *justificationService) PendingForStudent(ctx context.Context, studentID uint, email string) ([]dto.JustificationResponse, error) {
	student, err := s.students.GetByID(ctx, studentID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrStudentNotFound
		}
		return nil, fmt.Errorf("load student: %w", err)
	}
	if !strings.EqualFold(strings.TrimSpace(email), strings.TrimSpace(student.ParentEmail)) {
		return nil, ErrJustificationForbidden
	}

	justifications, err := s.repo.List(ctx, repository.JustificationFilter{
		StudentID: student.ID,
		Status:    models.JustificationPending,
	})
	if err != nil {
		return nil, fmt.Errorf("list pending justifications: %w", err)
	}
	return dto.NewJustificationResponses(justifications), nil
}

func (s *justificationService) scoped(ctx context.Context, id uint, schoolScope uint) (models.Justification, error) {
	justification, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return models.Justification{}, ErrJustificationNotFound
		}
		return models.Justification{}, fmt.Errorf("load justification: %w", err)
	}
	if schoolScope != 0 && justification.SchoolID != schoolScope {
		return models.Justification{}, ErrJustificationForbidden
	}
	return justification, nil
}

func (s *justificationService) ApprovedAbsences(ctx context.Context, studentIDs []uint, day string) ([]uint, error) {
	return s.repo.ApprovedStudentIDs(ctx, studentIDs, models.JustificationAbsence, day)
}
