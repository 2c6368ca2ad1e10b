package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/noah-isme/arrivapp-go-api/internal/attendance"
	"github.com/noah-isme/arrivapp-go-api/internal/models"
	"github.com/noah-isme/arrivapp-go-api/internal/notification"
	"github.com/noah-isme/arrivapp-go-api/internal/repository"
)

var (
	// ErrSchoolNotFound indicates the requested school does not exist.
	ErrSchoolNotFound = errors.New("school not found")
	// ErrInvalidDay indicates a malformed YYYY-MM-DD date.
	ErrInvalidDay = errors.New("invalid date, expected YYYY-MM-DD")
)

// Settings carries the attendance policy shared by the attendance services.
// Location is the timezone used for schools without their own.
type Settings struct {
	Policy     attendance.Policy
	Location   *time.Location
	Clock      attendance.Clock
	AdminEmail string
}

func (s Settings) withDefaults() Settings {
	if s.Location == nil {
		s.Location = time.UTC
	}
	if s.Clock == nil {
		s.Clock = attendance.SystemClock{}
	}
	if s.Policy == (attendance.Policy{}) {
		s.Policy = attendance.DefaultPolicy()
	}
	return s
}

// schoolContext is a school together with its resolved timezone and cutoff.
type schoolContext struct {
	School   models.School
	Location *time.Location
	Cutoff   attendance.ClockTime
}

type schoolResolver struct {
	schools  repository.SchoolRepository
	settings Settings
}

func (r schoolResolver) resolve(ctx context.Context, schoolID uint) (schoolContext, error) {
	school, err := r.schools.GetByID(ctx, schoolID)
	if err != nil {
		if repository.IsNotFound(err) {
			return schoolContext{}, ErrSchoolNotFound
		}
		return schoolContext{}, fmt.Errorf("load school %d: %w", schoolID, err)
	}
	return r.contextFor(school), nil
}

func (r schoolResolver) contextFor(school models.School) schoolContext {
	loc, err := attendance.LoadLocation(school.Timezone, r.settings.Location)
	if err != nil {
		loc = r.settings.Location
	}

	cutoff := r.settings.Policy.AbsenceCutoff
	if school.AbsenceCutoff != "" {
		if override, err := attendance.ParseClockTime(school.AbsenceCutoff); err == nil {
			cutoff = override
		}
	}

	return schoolContext{School: school, Location: loc, Cutoff: cutoff}
}

// dayFor parses value as a day or, when empty, returns today in loc.
func dayFor(value string, now time.Time, loc *time.Location) (attendance.Day, error) {
	if value == "" {
		return attendance.DayOf(now, loc), nil
	}
	day, err := attendance.ParseDay(value)
	if err != nil {
		return attendance.Day{}, ErrInvalidDay
	}
	return day, nil
}

type noopEnqueuer struct{}

func (noopEnqueuer) Enqueue(context.Context, notification.Intent) bool { return false }
