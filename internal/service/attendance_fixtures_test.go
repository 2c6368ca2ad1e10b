package service

import (
	"context"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/arrivapp-go-api/internal/attendance"
	"github.com/noah-isme/arrivapp-go-api/internal/dto"
	"github.com/noah-isme/arrivapp-go-api/internal/models"
	"github.com/noah-isme/arrivapp-go-api/internal/notification"
	"github.com/noah-isme/arrivapp-go-api/internal/repository"
)

func testLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

func newAttendanceDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(models.All()...))
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func madridLocation(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Europe/Madrid")
	require.NoError(t, err)
	return loc
}

type mutableClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *mutableClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *mutableClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

type recordingEnqueuer struct {
	mu      sync.Mutex
	intents []notification.Intent
	refuse  bool
}

func (r *recordingEnqueuer) Enqueue(ctx context.Context, intent notification.Intent) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.refuse {
		return false
	}
	r.intents = append(r.intents, intent)
	return true
}

func (r *recordingEnqueuer) byKind(kind notification.Kind) []notification.Intent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []notification.Intent
	for _, intent := range r.intents {
		if intent.Kind == kind {
			out = append(out, intent)
		}
	}
	return out
}

type recordingFeed struct {
	mu     sync.Mutex
	events []dto.FeedEvent
}

func (f *recordingFeed) Publish(ctx context.Context, event dto.FeedEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
}

// attendanceFixture wires the real repositories over one sqlite database.
type attendanceFixture struct {
	db             *gorm.DB
	loc            *time.Location
	clock          *mutableClock
	notifier       *recordingEnqueuer
	feed           *recordingFeed
	school         models.School
	students       repository.StudentRepository
	schools        repository.SchoolRepository
	records        repository.AttendanceRepository
	absences       repository.AbsenceRepository
	justifications repository.JustificationRepository
	users          repository.UserRepository
	kitchen        repository.KitchenRepository
}

func newAttendanceFixture(t *testing.T) *attendanceFixture {
	t.Helper()
	db := newAttendanceDB(t)
	loc := madridLocation(t)

	school := models.School{Name: "Colegio Norte", ContactEmail: "office@norte.test", Timezone: "Europe/Madrid", Active: true}
	require.NoError(t, db.Create(&school).Error)

	return &attendanceFixture{
		db:             db,
		loc:            loc,
		clock:          &mutableClock{},
		notifier:       &recordingEnqueuer{},
		feed:           &recordingFeed{},
		school:         school,
		students:       repository.NewStudentRepository(db),
		schools:        repository.NewSchoolRepository(db),
		records:        repository.NewAttendanceRepository(db),
		absences:       repository.NewAbsenceRepository(db),
		justifications: repository.NewJustificationRepository(db),
		users:          repository.NewUserRepository(db),
		kitchen:        repository.NewKitchenRepository(db),
	}
}

func (f *attendanceFixture) settings(policy attendance.Policy) Settings {
	return Settings{Policy: policy, Location: f.loc, Clock: f.clock, AdminEmail: "admin@arrivapp.test"}
}

func (f *attendanceFixture) at(t *testing.T, day, clock string) time.Time {
	t.Helper()
	ts, err := time.ParseInLocation("2006-01-02 15:04:05", day+" "+clock, f.loc)
	require.NoError(t, err)
	return ts
}

func (f *attendanceFixture) addStudent(t *testing.T, code, class string) models.Student {
	t.Helper()
	student := models.Student{
		Code:        code,
		Name:        "Student " + code,
		ClassName:   class,
		ParentEmail: code + "@parents.test",
		SchoolID:    f.school.ID,
		Status:      models.StudentStatusActive,
	}
	require.NoError(t, f.db.Create(&student).Error)
	return student
}

func (f *attendanceFixture) scanService(policy attendance.Policy) ScanService {
	return NewScanService(f.students, f.schools, f.records, f.settings(policy), f.notifier, f.feed, testLogger())
}

func (f *attendanceFixture) absenceService(policy attendance.Policy) AbsenceService {
	return NewAbsenceService(f.students, f.schools, f.records, f.absences, newJustificationService(f), f.users, f.settings(policy), f.notifier, testLogger())
}
