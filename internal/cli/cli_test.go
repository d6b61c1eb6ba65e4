package cli

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/BartekS5/crmmigrate/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

// isolate runs the test in an empty directory with no MIGRATE_ settings.
func isolate(t *testing.T) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	for _, key := range []string{"source.uri", "source.database", "dest.dsn", "dest.driver", "tenant_id"} {
		t.Setenv(config.EnvName(key), "")
	}
}

func TestEntitiesCommand(t *testing.T) {
	out, err := execute(t, "entities")
	require.NoError(t, err)

	assert.Contains(t, out, "ENTITY")
	assert.Contains(t, out, "copper_people")
	assert.Contains(t, out, "copper_opportunities")
	assert.Less(t, bytes.Index([]byte(out), []byte("people")), bytes.Index([]byte(out), []byte("leads")))
}

func TestEntitiesCommand_CustomCatalog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"tasks":[{"entity":"leads","sourceCollection":"copper_leads_v2"}]}`), 0o600))

	out, err := execute(t, "entities", "--catalog", path)
	require.NoError(t, err)
	assert.Contains(t, out, "copper_leads_v2")
}

func TestMigrateCommand_MissingConfigurationFailsBeforeConnecting(t *testing.T) {
	isolate(t)

	_, err := execute(t, "migrate")
	require.Error(t, err)

	var missing *config.MissingValueError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "MIGRATE_SOURCE_URI", missing.Key)
}

func TestMigrateCommand_InvalidBatchSizeFlag(t *testing.T) {
	isolate(t)
	t.Setenv("MIGRATE_SOURCE_URI", "mongodb://localhost:1")
	t.Setenv("MIGRATE_SOURCE_DATABASE", "crm")
	t.Setenv("MIGRATE_DEST_DSN", "postgres://localhost:1/crm")

	_, err := execute(t, "migrate", "--batch-size", "5000")

	var invalid *config.InvalidValueError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, "MIGRATE_BATCH_SIZE", invalid.Key)
}

func TestMigrateCommand_UnknownEntity(t *testing.T) {
	isolate(t)
	t.Setenv("MIGRATE_SOURCE_URI", "mongodb://localhost:1")
	t.Setenv("MIGRATE_SOURCE_DATABASE", "crm")
	t.Setenv("MIGRATE_DEST_DSN", "postgres://localhost:1/crm")

	_, err := execute(t, "migrate", "companies")
	assert.ErrorContains(t, err, `unknown entity "companies"`)
}

func TestVerifyCommand_NeedsOnlyDestination(t *testing.T) {
	isolate(t)

	_, err := execute(t, "verify")
	var missing *config.MissingValueError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "MIGRATE_DEST_DSN", missing.Key)
}

func TestRunFailedError(t *testing.T) {
	assert.Equal(t, "migration finished with failures", (&RunFailedError{ExitCode: 1}).Error())
	assert.Equal(t, "migration interrupted before completion", (&RunFailedError{ExitCode: 1, Aborted: true}).Error())
}
