package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "jotaka.db", cfg.DBPath)
	assert.Equal(t, "status_labels.json", cfg.LabelsPath)
	assert.Equal(t, "America/Sao_Paulo", cfg.Timezone)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, ":8080", cfg.Addr())
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("JOTAKA_PORT", "9090")
	t.Setenv("JOTAKA_DB_PATH", "/tmp/x.db")
	t.Setenv("JOTAKA_ALLOWED_ORIGINS", "https://a.example,https://b.example")
	t.Setenv("JOTAKA_LOG_FORMAT", "json")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "/tmp/x.db", cfg.DBPath)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)

	log, err := cfg.NewLogger()
	require.NoError(t, err)
	assert.IsType(t, &logrus.JSONFormatter{}, log.Formatter)
}

func TestLoad_DotEnvFile(t *testing.T) {
	// GIVEN: A .env file setting the timezone
	// WHEN: Loading with the variable unset in the environment
	// THEN: The file value is used

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("JOTAKA_TIMEZONE=UTC\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("JOTAKA_TIMEZONE") })

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "UTC", cfg.Timezone)
}

func TestLoad_MissingDotEnvIsFine(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	assert.NoError(t, err)
}

func TestLoad_LeavesValidationToCaller(t *testing.T) {
	// GIVEN: An invalid port in the environment
	// WHEN: Loading, then overriding the port as a flag would
	// THEN: Load succeeds and only the overridden config validates

	t.Setenv("JOTAKA_PORT", "0")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Error(t, cfg.Validate())

	cfg.Port = 9090
	assert.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	base := Config{Port: 8080, DBPath: "x.db", Timezone: "UTC", LogLevel: "info", LogFormat: "text"}
	require.NoError(t, base.Validate())

	bad := base
	bad.Timezone = "Mars/Olympus"
	assert.Error(t, bad.Validate())

	bad = base
	bad.LogFormat = "xml"
	assert.Error(t, bad.Validate())

	bad = base
	bad.Port = 0
	assert.Error(t, bad.Validate())
}
