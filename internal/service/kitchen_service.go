package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/arrivapp-go-api/internal/dto"
	"github.com/noah-isme/arrivapp-go-api/internal/models"
	"github.com/noah-isme/arrivapp-go-api/internal/repository"
)

const (
	maxKitchenHistoryDays     = 90
	defaultKitchenHistoryDays = 7
)

// ErrInvalidHistoryRange indicates a history window outside 1..90 days.
var ErrInvalidHistoryRange = errors.New("history days must be between 1 and 90")

// KitchenService produces the meal-planning head counts.
type KitchenService interface {
	Snapshot(ctx context.Context, schoolID uint, date string) (dto.KitchenDayResponse, error)
	Today(ctx context.Context, schoolID uint) (dto.KitchenDayResponse, error)
	History(ctx context.Context, schoolID uint, days int) (dto.KitchenHistoryResponse, error)
	DietarySummary(ctx context.Context, schoolID uint) (dto.DietarySummaryResponse, error)
	RunAll(ctx context.Context) error
}

type kitchenService struct {
	kitchen  repository.KitchenRepository
	students repository.StudentRepository
	schools  repository.SchoolRepository
	records  repository.AttendanceRepository
	absences repository.AbsenceRepository
	resolver schoolResolver
	settings Settings
	logger   zerolog.Logger
	tracer   trace.Tracer
}

// NewKitchenService constructs a kitchen service.
func NewKitchenService(
	kitchen repository.KitchenRepository,
	students repository.StudentRepository,
	schools repository.SchoolRepository,
	records repository.AttendanceRepository,
	absences repository.AbsenceRepository,
	settings Settings,
	logger zerolog.Logger,
) KitchenService {
	settings = settings.withDefaults()
	return &kitchenService{
		kitchen:  kitchen,
		students: students,
		schools:  schools,
		records:  records,
		absences: absences,
		resolver: schoolResolver{schools: schools, settings: settings},
		settings: settings,
		logger:   logger.With().Str("component", "kitchen_service").Logger(),
		tracer:   otel.Tracer("github.com/noah-isme/arrivapp-go-api/internal/service/kitchen"),
	}
}

// Snapshot counts the roster per class and stores the result, replacing any
// earlier snapshot of the same day.
func (s *kitchenService) Snapshot(ctx context.Context, schoolID uint, date string) (dto.KitchenDayResponse, error) {
	ctx, span := s.tracer.Start(ctx, "kitchen.snapshot", trace.WithAttributes(attribute.Int64("school.id", int64(schoolID))))
	defer span.End()

	sc, err := s.resolver.resolve(ctx, schoolID)
	if err != nil {
		return dto.KitchenDayResponse{}, err
	}
	now := s.settings.Clock.Now()
	day, err := dayFor(date, now, sc.Location)
	if err != nil {
		return dto.KitchenDayResponse{}, err
	}

	roster, err := s.students.ListActiveBySchool(ctx, schoolID)
	if err != nil {
		span.RecordError(err)
		return dto.KitchenDayResponse{}, fmt.Errorf("list roster: %w", err)
	}
	records, err := s.records.ListBySchoolAndDay(ctx, schoolID, day.String())
	if err != nil {
		span.RecordError(err)
		return dto.KitchenDayResponse{}, fmt.Errorf("list records: %w", err)
	}
	notices, err := s.absences.ListBySchoolAndDay(ctx, schoolID, day.String())
	if err != nil {
		span.RecordError(err)
		return dto.KitchenDayResponse{}, fmt.Errorf("list absences: %w", err)
	}

	ids := make([]uint, 0, len(roster))
	for _, student := range roster {
		ids = append(ids, student.ID)
	}
	needs, err := s.kitchen.DietaryNeeds(ctx, ids)
	if err != nil {
		span.RecordError(err)
		return dto.KitchenDayResponse{}, fmt.Errorf("load dietary needs: %w", err)
	}

	present := make(map[uint]struct{}, len(records))
	for _, record := range records {
		present[record.StudentID] = struct{}{}
	}
	absent := make(map[uint]struct{}, len(notices))
	for _, notice := range notices {
		absent[notice.StudentID] = struct{}{}
	}
	needsByStudent := make(map[uint]models.StudentDietaryNeeds, len(needs))
	for _, need := range needs {
		needsByStudent[need.StudentID] = need
	}

	byClass := map[string]*models.KitchenSnapshot{}
	var classes []string
	for _, student := range roster {
		snapshot, ok := byClass[student.ClassName]
		if !ok {
			snapshot = &models.KitchenSnapshot{
				SchoolID:     schoolID,
				SnapshotDate: day.String(),
				ClassName:    student.ClassName,
				CapturedAt:   now.UTC(),
			}
			byClass[student.ClassName] = snapshot
			classes = append(classes, student.ClassName)
		}

		snapshot.TotalStudents++
		if _, ok := present[student.ID]; ok {
			snapshot.Present++
		} else if _, ok := absent[student.ID]; ok {
			snapshot.Absent++
		} else {
			snapshot.WillArriveLater++
		}
		if need, ok := needsByStudent[student.ID]; ok {
			if need.HasAllergies() {
				snapshot.WithAllergies++
			}
			if need.HasSpecialDiet() {
				snapshot.WithSpecialDiet++
			}
		}
	}

	sort.Strings(classes)
	snapshots := make([]models.KitchenSnapshot, 0, len(classes))
	for _, class := range classes {
		snapshots = append(snapshots, *byClass[class])
	}

	if err := s.kitchen.UpsertSnapshots(ctx, snapshots); err != nil {
		span.RecordError(err)
		return dto.KitchenDayResponse{}, fmt.Errorf("store snapshots: %w", err)
	}

	s.logger.Info().Uint("school_id", schoolID).Str("day", day.String()).Int("classes", len(snapshots)).Msg("kitchen snapshot captured")
	return dto.NewKitchenDayResponse(schoolID, day.String(), snapshots), nil
}

// Today returns the stored snapshot for today, capturing one if none exists.
func (s *kitchenService) Today(ctx context.Context, schoolID uint) (dto.KitchenDayResponse, error) {
	sc, err := s.resolver.resolve(ctx, schoolID)
	if err != nil {
		return dto.KitchenDayResponse{}, err
	}
	day, _ := dayFor("", s.settings.Clock.Now(), sc.Location)

	snapshots, err := s.kitchen.ListSnapshots(ctx, schoolID, day.String())
	if err != nil {
		return dto.KitchenDayResponse{}, err
	}
	if len(snapshots) == 0 {
		return s.Snapshot(ctx, schoolID, day.String())
	}
	return dto.NewKitchenDayResponse(schoolID, day.String(), snapshots), nil
}

// History groups snapshots of the last days days, today included.
func (s *kitchenService) History(ctx context.Context, schoolID uint, days int) (dto.KitchenHistoryResponse, error) {
	if days == 0 {
		days = defaultKitchenHistoryDays
	}
	if days < 1 || days > maxKitchenHistoryDays {
		return dto.KitchenHistoryResponse{}, ErrInvalidHistoryRange
	}

	sc, err := s.resolver.resolve(ctx, schoolID)
	if err != nil {
		return dto.KitchenHistoryResponse{}, err
	}
	today, _ := dayFor("", s.settings.Clock.Now(), sc.Location)
	from := today.AddDays(-(days - 1))

	snapshots, err := s.kitchen.ListSnapshotsSince(ctx, schoolID, from.String())
	if err != nil {
		return dto.KitchenHistoryResponse{}, err
	}

	resp := dto.KitchenHistoryResponse{SchoolID: schoolID, Days: days, History: []dto.KitchenDayResponse{}}
	var (
		current string
		batch   []models.KitchenSnapshot
	)
	flush := func() {
		if len(batch) > 0 {
			resp.History = append(resp.History, dto.NewKitchenDayResponse(schoolID, current, batch))
		}
		batch = nil
	}
	for _, snapshot := range snapshots {
		if snapshot.SnapshotDate != current {
			flush()
			current = snapshot.SnapshotDate
		}
		batch = append(batch, snapshot)
	}
	flush()

	return resp, nil
}

func (s *kitchenService) DietarySummary(ctx context.Context, schoolID uint) (dto.DietarySummaryResponse, error) {
	if _, err := s.resolver.resolve(ctx, schoolID); err != nil {
		return dto.DietarySummaryResponse{}, err
	}

	roster, err := s.students.ListActiveBySchool(ctx, schoolID)
	if err != nil {
		return dto.DietarySummaryResponse{}, err
	}
	ids := make([]uint, 0, len(roster))
	for _, student := range roster {
		ids = append(ids, student.ID)
	}
	needs, err := s.kitchen.DietaryNeeds(ctx, ids)
	if err != nil {
		return dto.DietarySummaryResponse{}, err
	}

	allergies := map[string]int{}
	diets := map[string]int{}
	resp := dto.DietarySummaryResponse{SchoolID: schoolID, TotalStudents: len(roster)}
	for _, need := range needs {
		if need.HasAllergies() {
			resp.WithAllergies++
			countNames(allergies, need.Allergies)
		}
		if need.HasSpecialDiet() {
			resp.WithSpecialDiet++
			countNames(diets, need.SpecialDiets)
		}
	}

	resp.AllergyPercentage = percentage(resp.WithAllergies, resp.TotalStudents)
	resp.SpecialDietPercent = percentage(resp.WithSpecialDiet, resp.TotalStudents)
	resp.MostCommonAllergies = rankCounts(allergies)
	resp.MostCommonDiets = rankCounts(diets)
	return resp, nil
}

// RunAll snapshots today for every active school.
func (s *kitchenService) RunAll(ctx context.Context) error {
	schools, err := s.schools.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("list schools: %w", err)
	}

	var errs []error
	for _, school := range schools {
		if _, err := s.Snapshot(ctx, school.ID, ""); err != nil {
			s.logger.Error().Err(err).Uint("school_id", school.ID).Msg("kitchen snapshot failed")
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func countNames(counts map[string]int, names []string) {
	for _, name := range names {
		name = strings.ToLower(strings.TrimSpace(name))
		if name != "" {
			counts[name]++
		}
	}
}

func rankCounts(counts map[string]int) []dto.DietaryCount {
	out := make([]dto.DietaryCount, 0, len(counts))
	for name, count := range counts {
		out = append(out, dto.DietaryCount{Name: name, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	return out
}

func percentage(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(part)/float64(total)*1000) / 10
}
