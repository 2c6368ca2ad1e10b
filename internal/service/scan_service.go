package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/arrivapp-go-api/internal/attendance"
	"github.com/noah-isme/arrivapp-go-api/internal/dto"
	"github.com/noah-isme/arrivapp-go-api/internal/models"
	"github.com/noah-isme/arrivapp-go-api/internal/notification"
	"github.com/noah-isme/arrivapp-go-api/internal/observability"
	"github.com/noah-isme/arrivapp-go-api/internal/repository"
)

const maxScanCodeLength = 64

var (
	// ErrInvalidScanCode indicates an empty or malformed scanned code.
	ErrInvalidScanCode = errors.New("invalid student code")
	// ErrScanContention indicates the scan lost two consecutive races against
	// concurrent scans of the same student.
	ErrScanContention = errors.New("concurrent scans for the same student, retry")
)

// ScanOutcome tags the variant carried by a ScanResult.
type ScanOutcome string

const (
	OutcomeCheckin          ScanOutcome = "checkin"
	OutcomeCheckout         ScanOutcome = "checkout"
	OutcomeDuplicate        ScanOutcome = "duplicate_scan"
	OutcomeTooEarly         ScanOutcome = "too_early_checkout"
	OutcomeAlreadyCompleted ScanOutcome = "already_completed"
	OutcomeStudentNotFound  ScanOutcome = "student_not_found"
)

// CheckinResult describes a newly opened attendance record.
type CheckinResult struct {
	RecordID  uint
	CheckinAt time.Time
	IsLate    bool
	EmailSent bool
}

// CheckoutResult describes a completed attendance record.
type CheckoutResult struct {
	RecordID         uint
	CheckinAt        time.Time
	CheckoutAt       time.Time
	DurationMinutes  int
	IsEarlyDismissal bool
	EmailSent        bool
}

// DuplicateResult rejects a repeat scan inside the duplicate window.
type DuplicateResult struct {
	CheckinAt  time.Time
	MinutesAgo int
}

// TooEarlyResult rejects a checkout before the minimum stay.
type TooEarlyResult struct {
	CheckinAt           time.Time
	MinutesSinceCheckin int
	MinutesRemaining    int
}

// CompletedResult rejects any scan after checkout.
type CompletedResult struct {
	CheckinAt  time.Time
	CheckoutAt time.Time
}

// ScanResult is the outcome of a scan. Exactly one variant pointer matching
// Outcome is set; Student is nil only for OutcomeStudentNotFound. Times are
// in the school's location.
type ScanResult struct {
	Outcome   ScanOutcome
	Code      string
	Student   *models.Student
	ScannedAt time.Time
	Checkin   *CheckinResult
	Checkout  *CheckoutResult
	Duplicate *DuplicateResult
	TooEarly  *TooEarlyResult
	Completed *CompletedResult
}

// FeedPublisher receives successful scans for the live dashboard feed.
type FeedPublisher interface {
	Publish(ctx context.Context, event dto.FeedEvent)
}

// ScanService turns QR scans into attendance transitions.
type ScanService interface {
	Scan(ctx context.Context, code string) (ScanResult, error)
}

type scanService struct {
	students repository.StudentRepository
	records  repository.AttendanceRepository
	resolver schoolResolver
	settings Settings
	notifier notification.Enqueuer
	feed     FeedPublisher
	logger   zerolog.Logger
	tracer   trace.Tracer
}

// NewScanService constructs the scan service. notifier and feed may be nil.
func NewScanService(students repository.StudentRepository, schools repository.SchoolRepository, records repository.AttendanceRepository, settings Settings, notifier notification.Enqueuer, feed FeedPublisher, logger zerolog.Logger) ScanService {
	settings = settings.withDefaults()
	if notifier == nil {
		notifier = noopEnqueuer{}
	}
	return &scanService{
		students: students,
		records:  records,
		resolver: schoolResolver{schools: schools, settings: settings},
		settings: settings,
		notifier: notifier,
		feed:     feed,
		logger:   logger.With().Str("component", "scan_service").Logger(),
		tracer:   otel.Tracer("github.com/noah-isme/arrivapp-go-api/internal/service/scan"),
	}
}

func (s *scanService) Scan(ctx context.Context, code string) (ScanResult, error) {
	code = strings.TrimSpace(code)
	if code == "" || len(code) > maxScanCodeLength {
		return ScanResult{}, ErrInvalidScanCode
	}

	ctx, span := s.tracer.Start(ctx, "attendance.scan", trace.WithAttributes(attribute.String("student.code", code)))
	defer span.End()

	now := s.settings.Clock.Now()

	student, err := s.students.FindActiveByCode(ctx, code)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "student lookup failed")
		return ScanResult{}, fmt.Errorf("find student: %w", err)
	}
	if student == nil {
		observability.ScansTotal().WithLabelValues(string(OutcomeStudentNotFound)).Inc()
		return ScanResult{Outcome: OutcomeStudentNotFound, Code: code, ScannedAt: now}, nil
	}

	loc := s.locationFor(ctx, student.SchoolID)
	day := attendance.DayOf(now, loc).String()
	span.SetAttributes(attribute.Int64("student.id", int64(student.ID)), attribute.String("attendance.day", day))

	for attempt := 0; attempt < 2; attempt++ {
		result, lost, err := s.apply(ctx, *student, day, now, loc)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "scan failed")
			return ScanResult{}, err
		}
		if lost {
			s.logger.Debug().Uint("student_id", student.ID).Int("attempt", attempt+1).Msg("scan lost a concurrent write, re-reading")
			continue
		}

		result.Code = code
		observability.ScansTotal().WithLabelValues(string(result.Outcome)).Inc()
		span.SetAttributes(attribute.String("scan.outcome", string(result.Outcome)))
		s.publish(ctx, result)
		return result, nil
	}

	span.SetStatus(codes.Error, "contention")
	observability.ScansTotal().WithLabelValues("contention").Inc()
	return ScanResult{}, ErrScanContention
}

// apply reads the day's record, decides, and performs at most one write. lost
// reports that a concurrent writer won and the caller should re-read.
func (s *scanService) apply(ctx context.Context, student models.Student, day string, now time.Time, loc *time.Location) (ScanResult, bool, error) {
	record, err := s.records.FindByStudentAndDay(ctx, student.ID, day)
	if err != nil {
		return ScanResult{}, false, fmt.Errorf("find attendance record: %w", err)
	}

	var state *attendance.RecordState
	if record != nil {
		state = &attendance.RecordState{CheckinAt: record.CheckinAt, CheckoutAt: record.CheckoutAt}
	}
	decision := s.settings.Policy.Decide(state, now, loc)

	result := ScanResult{
		Outcome:   ScanOutcome(decision.Action),
		Student:   &student,
		ScannedAt: now.In(loc),
	}

	switch decision.Action {
	case attendance.ActionCheckin:
		created := models.AttendanceRecord{
			StudentID:      student.ID,
			SchoolID:       student.SchoolID,
			AttendanceDate: day,
			CheckinAt:      now.UTC(),
			IsLate:         decision.IsLate,
		}
		if err := s.records.Create(ctx, &created); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				return ScanResult{}, true, nil
			}
			return ScanResult{}, false, fmt.Errorf("create attendance record: %w", err)
		}

		msg := notification.CheckinMessage(student, now.In(loc), decision.IsLate, s.settings.Policy.LateThreshold)
		sent := s.notifier.Enqueue(ctx, notification.NewIntent(notification.KindCheckin, created.ID, msg, now))
		result.Checkin = &CheckinResult{
			RecordID:  created.ID,
			CheckinAt: now.In(loc),
			IsLate:    decision.IsLate,
			EmailSent: sent,
		}

	case attendance.ActionCheckout:
		updated, err := s.records.SetCheckout(ctx, record.ID, now.UTC())
		if err != nil {
			return ScanResult{}, false, fmt.Errorf("set checkout: %w", err)
		}
		if !updated {
			return ScanResult{}, true, nil
		}

		checkin := record.CheckinAt.In(loc)
		msg := notification.CheckoutMessage(student, checkin, now.In(loc), decision.ElapsedMinutes, decision.IsEarlyDismissal)
		sent := s.notifier.Enqueue(ctx, notification.NewIntent(notification.KindCheckout, record.ID, msg, now))
		result.Checkout = &CheckoutResult{
			RecordID:         record.ID,
			CheckinAt:        checkin,
			CheckoutAt:       now.In(loc),
			DurationMinutes:  decision.ElapsedMinutes,
			IsEarlyDismissal: decision.IsEarlyDismissal,
			EmailSent:        sent,
		}

	case attendance.ActionRejectedDuplicate:
		result.Duplicate = &DuplicateResult{CheckinAt: record.CheckinAt.In(loc), MinutesAgo: decision.ElapsedMinutes}

	case attendance.ActionRejectedTooEarly:
		result.TooEarly = &TooEarlyResult{
			CheckinAt:           record.CheckinAt.In(loc),
			MinutesSinceCheckin: decision.ElapsedMinutes,
			MinutesRemaining:    decision.MinutesRemaining,
		}

	case attendance.ActionRejectedAlreadyComplete:
		result.Completed = &CompletedResult{CheckinAt: record.CheckinAt.In(loc), CheckoutAt: record.CheckoutAt.In(loc)}
	}

	return result, false, nil
}

// locationFor falls back to the default timezone when the school cannot be
// read; a scan is never refused over school settings.
func (s *scanService) locationFor(ctx context.Context, schoolID uint) *time.Location {
	sc, err := s.resolver.resolve(ctx, schoolID)
	if err != nil {
		s.logger.Warn().Err(err).Uint("school_id", schoolID).Msg("using default timezone for scan")
		return s.settings.Location
	}
	return sc.Location
}

func (s *scanService) publish(ctx context.Context, result ScanResult) {
	if s.feed == nil || result.Student == nil {
		return
	}

	event := dto.FeedEvent{
		SchoolID:    result.Student.SchoolID,
		Action:      string(result.Outcome),
		StudentID:   result.Student.ID,
		StudentName: result.Student.Name,
		ClassName:   result.Student.ClassName,
		At:          result.ScannedAt,
	}
	switch {
	case result.Checkin != nil:
		event.IsLate = result.Checkin.IsLate
	case result.Checkout != nil:
		event.IsEarlyDismissal = result.Checkout.IsEarlyDismissal
		event.DurationMinutes = result.Checkout.DurationMinutes
	default:
		return
	}

	s.feed.Publish(ctx, event)
}
