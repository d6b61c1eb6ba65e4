package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/BartekS5/crmmigrate/pkg/models"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate runs the test in an empty directory with no MIGRATE_ settings.
func isolate(t *testing.T) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	for _, key := range []string{
		"tenant_id", "source.uri", "source.database", "dest.driver", "dest.dsn",
		"batch.size", "batch.max_attempts", "log.level", "dry_run",
	} {
		t.Setenv(EnvName(key), "")
	}
}

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("MIGRATE_SOURCE_URI", "mongodb://localhost:27017")
	t.Setenv("MIGRATE_SOURCE_DATABASE", "crm")
	t.Setenv("MIGRATE_DEST_DSN", "postgres://migrator@localhost:5432/crm")
}

func TestEnvName(t *testing.T) {
	assert.Equal(t, "MIGRATE_SOURCE_URI", EnvName("source.uri"))
	assert.Equal(t, "MIGRATE_TENANT_ID", EnvName("tenant_id"))
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t)
	setRequired(t)

	cfg, err := Load(Options{})
	require.NoError(t, err)

	assert.Equal(t, "kanva-botanicals", cfg.TenantID)
	assert.Equal(t, "postgres", cfg.Dest.Driver)
	assert.Equal(t, 500, cfg.Source.PageSize)
	assert.Equal(t, 100, cfg.Batch.Size)
	assert.Equal(t, 5, cfg.Batch.MaxAttempts)
	assert.Equal(t, 500*time.Millisecond, cfg.Batch.InitialInterval)
	assert.Equal(t, 60*time.Second, cfg.Batch.Timeout)
	assert.False(t, cfg.Batch.RecordFallback)
	assert.Equal(t, 20, cfg.Report.RejectSample)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.False(t, cfg.DryRun)
}

func TestLoad_MissingSourceURI(t *testing.T) {
	isolate(t)
	setRequired(t)
	t.Setenv("MIGRATE_SOURCE_URI", "")

	_, err := Load(Options{})
	require.Error(t, err)

	var missing *MissingValueError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "MIGRATE_SOURCE_URI", missing.Key)
	assert.Equal(t, "missing configuration value MIGRATE_SOURCE_URI", err.Error())
}

func TestLoad_SkipSource(t *testing.T) {
	isolate(t)
	t.Setenv("MIGRATE_DEST_DSN", "sqlserver://sa@localhost:1433?database=crm")
	t.Setenv("MIGRATE_DEST_DRIVER", "SQLServer")

	cfg, err := Load(Options{SkipSource: true})
	require.NoError(t, err)
	assert.Equal(t, "sqlserver", cfg.Dest.Driver)

	_, err = Load(Options{})
	var missing *MissingValueError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "MIGRATE_SOURCE_URI", missing.Key)
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name string
		env  string
		val  string
		key  string
	}{
		{"batch size too large", "MIGRATE_BATCH_SIZE", "5000", "MIGRATE_BATCH_SIZE"},
		{"batch size zero", "MIGRATE_BATCH_SIZE", "0", "MIGRATE_BATCH_SIZE"},
		{"unknown driver", "MIGRATE_DEST_DRIVER", "oracle", "MIGRATE_DEST_DRIVER"},
		{"too many attempts", "MIGRATE_BATCH_MAX_ATTEMPTS", "50", "MIGRATE_BATCH_MAX_ATTEMPTS"},
		{"unknown log level", "MIGRATE_LOG_LEVEL", "verbose", "MIGRATE_LOG_LEVEL"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			setRequired(t)
			t.Setenv(tt.env, tt.val)

			_, err := Load(Options{})
			var invalid *InvalidValueError
			require.ErrorAs(t, err, &invalid)
			assert.Equal(t, tt.key, invalid.Key)
		})
	}
}

func TestLoad_FlagsOverrideEnvironment(t *testing.T) {
	isolate(t)
	setRequired(t)
	t.Setenv("MIGRATE_BATCH_SIZE", "200")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Int("batch-size", 100, "")
	flags.Bool("dry-run", false, "")
	flags.String("tenant", "", "")
	require.NoError(t, flags.Parse([]string{"--batch-size=250", "--dry-run"}))

	cfg, err := Load(Options{Flags: flags})
	require.NoError(t, err)
	assert.Equal(t, 250, cfg.Batch.Size)
	assert.True(t, cfg.DryRun)
	assert.Equal(t, "kanva-botanicals", cfg.TenantID, "unset flags do not override defaults")
}

func TestLoad_EnvironmentWithoutFlag(t *testing.T) {
	isolate(t)
	setRequired(t)
	t.Setenv("MIGRATE_BATCH_SIZE", "200")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Int("batch-size", 100, "")
	require.NoError(t, flags.Parse(nil))

	cfg, err := Load(Options{Flags: flags})
	require.NoError(t, err)
	assert.Equal(t, 200, cfg.Batch.Size)
}

func TestLoad_ConfigFile(t *testing.T) {
	isolate(t)
	t.Setenv("MIGRATE_DEST_DSN", "postgres://from-env")

	content := `
tenant_id: acme
source:
  uri: mongodb://mongo:27017
  database: copper
dest:
  dsn: postgres://from-file
batch:
  size: 50
  record_fallback: true
`
	require.NoError(t, os.WriteFile("crmmigrate.yaml", []byte(content), 0o600))

	cfg, err := Load(Options{})
	require.NoError(t, err)
	assert.Equal(t, "acme", cfg.TenantID)
	assert.Equal(t, "copper", cfg.Source.Database)
	assert.Equal(t, 50, cfg.Batch.Size)
	assert.True(t, cfg.Batch.RecordFallback)
	assert.Equal(t, "postgres://from-env", cfg.Dest.DSN, "environment wins over the file")
}

func TestLoad_ExplicitConfigFileMustExist(t *testing.T) {
	isolate(t)
	setRequired(t)

	_, err := Load(Options{ConfigFile: filepath.Join(t.TempDir(), "missing.yaml")})
	assert.ErrorContains(t, err, "error reading config file")
}

func TestLoadCatalog(t *testing.T) {
	c, err := LoadCatalog("")
	require.NoError(t, err)
	assert.Equal(t, models.DefaultCatalog(), c)

	path := filepath.Join(t.TempDir(), "catalog.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"tasks":[{"entity":"tasks","destTable":"crm_tasks"}]}`), 0o600))
	c, err = LoadCatalog(path)
	require.NoError(t, err)
	task, ok := c.Task(models.EntityTasks)
	require.True(t, ok)
	assert.Equal(t, "crm_tasks", task.DestTable)

	_, err = LoadCatalog(filepath.Join(t.TempDir(), "nope.json"))
	assert.ErrorContains(t, err, "failed to read catalog file")
}
