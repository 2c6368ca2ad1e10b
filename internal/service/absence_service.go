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

// ExcusalLookup reports which of studentIDs hold an approved absence
// justification for day.
type ExcusalLookup interface {
	ApprovedAbsences(ctx context.Context, studentIDs []uint, day string) ([]uint, error)
}

// AbsenceService classifies a school day and confirms absences after the cutoff.
type AbsenceService interface {
	Summarize(ctx context.Context, schoolID uint, date string) (dto.ClassificationResponse, error)
	ClassifyDay(ctx context.Context, schoolID uint, date string) (dto.ClassificationResponse, error)
	RunAll(ctx context.Context) error
	Dashboard(ctx context.Context, schoolID uint, date, className string) (dto.DashboardResponse, error)
	Records(ctx context.Context, schoolID uint, date, className string) ([]dto.AttendanceLog, error)
	Classes(ctx context.Context, schoolID uint) ([]string, error)
}

type absenceService struct {
	students       repository.StudentRepository
	schools        repository.SchoolRepository
	records        repository.AttendanceRepository
	absences       repository.AbsenceRepository
	excusals       ExcusalLookup
	users          repository.UserRepository
	resolver       schoolResolver
	settings       Settings
	notifier       notification.Enqueuer
	logger         zerolog.Logger
	tracer         trace.Tracer
}

// partition is the roster of one school day split by attendance state.
type partition struct {
	school       schoolContext
	day          attendance.Day
	now          time.Time
	cutoffPassed bool
	records      []models.AttendanceRecord
	present      []models.Student
	late         []models.Student
	absent       []models.Student
	excused      []models.Student
	pending      []models.Student
	roster       int
	className    string
}

// NewAbsenceService constructs the absence classifier.
func NewAbsenceService(
	students repository.StudentRepository,
	schools repository.SchoolRepository,
	records repository.AttendanceRepository,
	absences repository.AbsenceRepository,
	excusals ExcusalLookup,
	users repository.UserRepository,
	settings Settings,
	notifier notification.Enqueuer,
	logger zerolog.Logger,
) AbsenceService {
	settings = settings.withDefaults()
	if notifier == nil {
		notifier = noopEnqueuer{}
	}
	return &absenceService{
		students:       students,
		schools:        schools,
		records:        records,
		absences:       absences,
		excusals:       excusals,
		users:          users,
		resolver:       schoolResolver{schools: schools, settings: settings},
		settings:       settings,
		notifier:       notifier,
		logger:         logger.With().Str("component", "absence_service").Logger(),
		tracer:         otel.Tracer("github.com/noah-isme/arrivapp-go-api/internal/service/absence"),
	}
}

func (s *absenceService) Summarize(ctx context.Context, schoolID uint, date string) (dto.ClassificationResponse, error) {
	ctx, span := s.tracer.Start(ctx, "attendance.summarize", trace.WithAttributes(attribute.Int64("school.id", int64(schoolID))))
	defer span.End()

	p, err := s.partition(ctx, schoolID, date, "")
	if err != nil {
		span.RecordError(err)
		return dto.ClassificationResponse{}, err
	}
	return p.response(0), nil
}

func (s *absenceService) ClassifyDay(ctx context.Context, schoolID uint, date string) (dto.ClassificationResponse, error) {
	ctx, span := s.tracer.Start(ctx, "attendance.classify_day", trace.WithAttributes(attribute.Int64("school.id", int64(schoolID))))
	defer span.End()

	p, err := s.partition(ctx, schoolID, date, "")
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "partition failed")
		return dto.ClassificationResponse{}, err
	}
	span.SetAttributes(attribute.String("attendance.day", p.day.String()), attribute.Bool("attendance.cutoff_passed", p.cutoffPassed))

	if !p.cutoffPassed {
		return p.response(0), nil
	}

	var newlyAbsent []models.Student
	for _, student := range p.absent {
		record := models.AbsenceNotification{
			StudentID:   student.ID,
			SchoolID:    student.SchoolID,
			AbsenceDate: p.day.String(),
		}
		created, err := s.absences.CreateIfAbsent(ctx, &record)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "absence insert failed")
			return dto.ClassificationResponse{}, fmt.Errorf("record absence for student %d: %w", student.ID, err)
		}
		if !created {
			continue
		}

		newlyAbsent = append(newlyAbsent, student)
		msg := notification.AbsenceParentMessage(student, p.school.School, p.now.In(p.school.Location))
		s.notifier.Enqueue(ctx, notification.NewIntent(notification.KindAbsenceParent, record.ID, msg, p.now))
	}

	if len(newlyAbsent) > 0 {
		observability.AbsencesCreated().Add(float64(len(newlyAbsent)))
		s.sendSummaries(ctx, p, newlyAbsent)
	}

	s.logger.Info().
		Uint("school_id", schoolID).
		Str("day", p.day.String()).
		Int("absent", len(p.absent)).
		Int("newly_absent", len(newlyAbsent)).
		Msg("absence check completed")

	return p.response(len(newlyAbsent)), nil
}

// RunAll classifies today for every active school, each in its own timezone.
func (s *absenceService) RunAll(ctx context.Context) error {
	schools, err := s.schools.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("list schools: %w", err)
	}

	var errs []error
	for _, school := range schools {
		if _, err := s.ClassifyDay(ctx, school.ID, ""); err != nil {
			s.logger.Error().Err(err).Uint("school_id", school.ID).Msg("absence check failed")
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Dashboard narrows every list and counter to className when it is set.
func (s *absenceService) Dashboard(ctx context.Context, schoolID uint, date, className string) (dto.DashboardResponse, error) {
	p, err := s.partition(ctx, schoolID, date, className)
	if err != nil {
		return dto.DashboardResponse{}, err
	}

	notices, err := s.absences.ListBySchoolAndDay(ctx, schoolID, p.day.String())
	if err != nil {
		return dto.DashboardResponse{}, fmt.Errorf("list absences: %w", err)
	}
	noticeByStudent := make(map[uint]models.AbsenceNotification, len(notices))
	for _, notice := range notices {
		noticeByStudent[notice.StudentID] = notice
	}
	excused := studentSet(p.excused)

	resp := dto.DashboardResponse{
		SchoolID:  schoolID,
		Date:      p.day.String(),
		ClassName: p.className,
		Checkins: make([]dto.AttendanceLog, 0, len(p.records)),
		Late:     []dto.AttendanceLog{},
		Absent:   make([]dto.AbsentEntry, 0, len(p.absent)),
	}

	checkedOut := 0
	for _, record := range p.records {
		log := dto.NewAttendanceLog(record, p.school.Location)
		resp.Checkins = append(resp.Checkins, log)
		if record.IsLate {
			resp.Late = append(resp.Late, log)
		}
		if record.CheckoutAt != nil {
			checkedOut++
		}
	}

	for _, student := range p.absent {
		entry := dto.AbsentEntry{StudentSummary: dto.NewStudentSummary(student)}
		_, entry.Excused = excused[student.ID]
		if notice, ok := noticeByStudent[student.ID]; ok {
			entry.EmailSent = notice.EmailSent
			entry.EmailSentAt = notice.EmailSentAt
		}
		resp.Absent = append(resp.Absent, entry)
	}

	resp.Summary = dto.DashboardSummary{
		TotalStudents: p.roster,
		CheckedIn:     len(p.present),
		CheckedOut:    checkedOut,
		Late:          len(p.late),
		Absent:        len(p.absent),
		Excused:       len(p.excused),
		Pending:       len(p.pending),
		CutoffPassed:  p.cutoffPassed,
	}

	return resp, nil
}

func (s *absenceService) Records(ctx context.Context, schoolID uint, date, className string) ([]dto.AttendanceLog, error) {
	sc, err := s.resolver.resolve(ctx, schoolID)
	if err != nil {
		return nil, err
	}
	day, err := dayFor(date, s.settings.Clock.Now(), sc.Location)
	if err != nil {
		return nil, err
	}

	records, err := s.records.ListBySchoolAndDay(ctx, schoolID, day.String())
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	records = filterRecordsByClass(records, strings.TrimSpace(className))
	logs := make([]dto.AttendanceLog, 0, len(records))
	for _, record := range records {
		logs = append(logs, dto.NewAttendanceLog(record, sc.Location))
	}
	return logs, nil
}

func (s *absenceService) Classes(ctx context.Context, schoolID uint) ([]string, error) {
	if _, err := s.resolver.resolve(ctx, schoolID); err != nil {
		return nil, err
	}
	classes, err := s.students.ListClasses(ctx, schoolID)
	if err != nil {
		return nil, fmt.Errorf("list classes: %w", err)
	}
	if classes == nil {
		classes = []string{}
	}
	return classes, nil
}

func (s *absenceService) partition(ctx context.Context, schoolID uint, date, className string) (partition, error) {
	sc, err := s.resolver.resolve(ctx, schoolID)
	if err != nil {
		return partition{}, err
	}

	now := s.settings.Clock.Now()
	day, err := dayFor(date, now, sc.Location)
	if err != nil {
		return partition{}, err
	}

	roster, err := s.students.ListActiveBySchool(ctx, schoolID)
	if err != nil {
		return partition{}, fmt.Errorf("list roster: %w", err)
	}
	records, err := s.records.ListBySchoolAndDay(ctx, schoolID, day.String())
	if err != nil {
		return partition{}, fmt.Errorf("list records: %w", err)
	}

	className = strings.TrimSpace(className)
	if className != "" {
		roster = filterStudentsByClass(roster, className)
		records = filterRecordsByClass(records, className)
	}

	recorded := make(map[uint]models.AttendanceRecord, len(records))
	for _, record := range records {
		recorded[record.StudentID] = record
	}

	p := partition{
		school:       sc,
		day:          day,
		now:          now,
		cutoffPassed: s.settings.Policy.CutoffPassed(day, sc.Cutoff, now, sc.Location),
		records:      records,
		roster:       len(roster),
		className:    className,
	}

	var missing []models.Student
	for _, student := range roster {
		record, ok := recorded[student.ID]
		if !ok {
			missing = append(missing, student)
			continue
		}
		p.present = append(p.present, student)
		if record.IsLate {
			p.late = append(p.late, student)
		}
	}

	if !p.cutoffPassed {
		p.pending = missing
		return p, nil
	}
	p.absent = missing

	if len(missing) > 0 && s.excusals != nil {
		ids := make([]uint, 0, len(missing))
		for _, student := range missing {
			ids = append(ids, student.ID)
		}
		approved, err := s.excusals.ApprovedAbsences(ctx, ids, day.String())
		if err != nil {
			return partition{}, fmt.Errorf("load approved justifications: %w", err)
		}
		approvedSet := make(map[uint]struct{}, len(approved))
		for _, id := range approved {
			approvedSet[id] = struct{}{}
		}
		for _, student := range missing {
			if _, ok := approvedSet[student.ID]; ok {
				p.excused = append(p.excused, student)
			}
		}
	}

	return p, nil
}

func (s *absenceService) sendSummaries(ctx context.Context, p partition, newlyAbsent []models.Student) {
	reportedAt := p.now.In(p.school.Location)

	if p.school.School.ContactEmail != "" {
		msg := notification.AbsenceSchoolSummary(p.school.School, newlyAbsent, reportedAt)
		s.notifier.Enqueue(ctx, notification.NewIntent(notification.KindAbsenceSchool, 0, msg, p.now))
	}

	for _, address := range s.adminRecipients(ctx) {
		msg := notification.AbsenceAdminSummary(address, p.school.School, newlyAbsent, reportedAt)
		s.notifier.Enqueue(ctx, notification.NewIntent(notification.KindAbsenceAdmin, 0, msg, p.now))
	}
}

// adminRecipients merges the configured admin address with active admin
// accounts, deduplicated case-insensitively.
func (s *absenceService) adminRecipients(ctx context.Context) []string {
	seen := map[string]struct{}{}
	var out []string
	add := func(address string) {
		address = strings.TrimSpace(address)
		key := strings.ToLower(address)
		if address == "" {
			return
		}
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		out = append(out, address)
	}

	add(s.settings.AdminEmail)
	if s.users != nil {
		admins, err := s.users.ListActiveAdmins(ctx)
		if err != nil {
			s.logger.Warn().Err(err).Msg("failed to list admins for absence summary")
		}
		for _, admin := range admins {
			add(admin.Email)
		}
	}
	return out
}

func (p partition) response(newlyAbsent int) dto.ClassificationResponse {
	return dto.ClassificationResponse{
		SchoolID:     p.school.School.ID,
		Date:         p.day.String(),
		CutoffPassed: p.cutoffPassed,
		Present:      dto.NewStudentSummaries(p.present),
		Late:         dto.NewStudentSummaries(p.late),
		Absent:       dto.NewStudentSummaries(p.absent),
		Excused:      dto.NewStudentSummaries(p.excused),
		Pending:      dto.NewStudentSummaries(p.pending),
		NewlyAbsent:  newlyAbsent,
	}
}

func filterStudentsByClass(students []models.Student, className string) []models.Student {
	out := students[:0:0]
	for _, student := range students {
		if student.ClassName == className {
			out = append(out, student)
		}
	}
	return out
}

func filterRecordsByClass(records []models.AttendanceRecord, className string) []models.AttendanceRecord {
	if className == "" {
		return records
	}
	out := records[:0:0]
	for _, record := range records {
		if record.Student != nil && record.Student.ClassName == className {
			out = append(out, record)
		}
	}
	return out
}

func studentSet(students []models.Student) map[uint]struct{} {
	set := make(map[uint]struct{}, len(students))
	for _, student := range students {
		set[student.ID] = struct{}{}
	}
	return set
}
