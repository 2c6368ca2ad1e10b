package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("ARRIVAPP_JWT_SECRET", "secret")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.HTTPAddress())
	require.Equal(t, DriverPostgres, cfg.DatabaseDriver)
	require.Equal(t, QueueMemory, cfg.Notification.Backend)
	require.Equal(t, 10*time.Second, cfg.Notification.MailTimeout)
	require.Equal(t, "Europe/Madrid", cfg.Location.String())
	require.Equal(t, "09:01", cfg.Policy.LateThreshold.String())
	require.Equal(t, "09:10", cfg.Policy.AbsenceCutoff.String())
	require.Equal(t, "10:00", cfg.KitchenSnapshotAt.String())
	require.Equal(t, 10, cfg.Policy.DuplicateWindowMinutes)
	require.Equal(t, 30, cfg.Policy.MinimumStayMinutes)
	require.Equal(t, 14, cfg.Policy.EarlyDismissalHour)
	require.Equal(t, 3, cfg.Notification.MaxAttempts)
	require.Equal(t, 500*time.Millisecond, cfg.Notification.RetryBackoff)
	require.Equal(t, 10, cfg.LookupRateLimit)
	require.Equal(t, time.Minute, cfg.LookupRateWindow)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("ARRIVAPP_JWT_SECRET", "secret")
	t.Setenv("ARRIVAPP_APP_PORT", ":9090")
	t.Setenv("ARRIVAPP_DATABASE_DRIVER", "SQLite")
	t.Setenv("ARRIVAPP_ATTENDANCE_LATE_THRESHOLD", "08:45")
	t.Setenv("ARRIVAPP_ATTENDANCE_MINIMUM_STAY_MINUTES", "45")
	t.Setenv("ARRIVAPP_TIMEZONE", "America/Mexico_City")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, ":9090", cfg.HTTPAddress())
	require.Equal(t, DriverSQLite, cfg.DatabaseDriver)
	require.Equal(t, "08:45", cfg.Policy.LateThreshold.String())
	require.Equal(t, 45, cfg.Policy.MinimumStayMinutes)
	require.Equal(t, "America/Mexico_City", cfg.DefaultTimezone)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]map[string]string{
		"missing secret":      {"ARRIVAPP_JWT_SECRET": ""},
		"bad clock":           {"ARRIVAPP_ATTENDANCE_ABSENCE_CUTOFF": "25:00"},
		"stay below window":   {"ARRIVAPP_ATTENDANCE_MINIMUM_STAY_MINUTES": "5"},
		"non-positive window": {"ARRIVAPP_ATTENDANCE_DUPLICATE_WINDOW_MINUTES": "0"},
		"unknown timezone":    {"ARRIVAPP_TIMEZONE": "Mars/Olympus"},
		"unknown driver":      {"ARRIVAPP_DATABASE_DRIVER": "mysql"},
		"redis without url":   {"ARRIVAPP_NOTIFICATION_BACKEND": "redis"},
		"bad mail timeout":    {"ARRIVAPP_NOTIFICATION_MAIL_TIMEOUT": "soon"},
	}

	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			t.Setenv("ARRIVAPP_JWT_SECRET", "secret")
			for key, value := range env {
				t.Setenv(key, value)
			}
			_, err := Load()
			require.Error(t, err)
		})
	}
}
