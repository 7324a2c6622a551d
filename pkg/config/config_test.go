package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadAppliesSchedulerDefaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/api/v1", cfg.APIPrefix)
	assert.Equal(t, 50, cfg.Scheduler.TutorialRoomCeiling)
	assert.Equal(t, 30, cfg.Scheduler.LabRoomCeiling)
	assert.Equal(t, 30*time.Minute, cfg.Scheduler.ResultCacheTTL)
	assert.Equal(t, "timetable.generated", cfg.Events.Queue)
	assert.False(t, cfg.Events.Enabled)
	assert.Equal(t, "migrations", cfg.Database.MigrationsDir)
	assert.Equal(t, ",", cfg.Exports.CSVDelimiter)
}

func TestLoadReadsEnvironmentOverrides(t *testing.T) {
	chdirTemp(t)
	t.Setenv("SCHEDULER_TUTORIAL_ROOM_CEILING", "40")
	t.Setenv("SCHEDULER_RESULT_CACHE_TTL", "not-a-duration")
	t.Setenv("ALLOWED_ORIGINS", "http://a.test, ,http://b.test")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 40, cfg.Scheduler.TutorialRoomCeiling)
	assert.Equal(t, 30*time.Minute, cfg.Scheduler.ResultCacheTTL)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORS.AllowedOrigins)
}

func TestPositiveOr(t *testing.T) {
	assert.Equal(t, 7, positiveOr(0, 7))
	assert.Equal(t, 7, positiveOr(-3, 7))
	assert.Equal(t, 2, positiveOr(2, 7))
}

func chdirTemp(t *testing.T) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}
