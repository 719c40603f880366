package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"stockwatch/internal/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testListing = `{"data": [
  {"alias": "whey", "name": "Whey Protein", "available": 1, "price": 2199},
  {"alias": "lassi", "name": "Protein Lassi", "available": 0, "price": 25}
]}`

// setupWorkspace writes a config using the sqlite backend and a file source.
func setupWorkspace(t *testing.T, listing string) (configPath, listingPath string) {
	t.Helper()
	dir := t.TempDir()
	listingPath = filepath.Join(dir, "listing.json")
	require.NoError(t, os.WriteFile(listingPath, []byte(listing), 0o644))

	configPath = filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte(fmt.Sprintf(`
storage:
  driver: sqlite
sqlite:
  path: %s
source:
  driver: file
  file: %s
health:
  timestamp_file: %s
log:
  level: error
`, filepath.Join(dir, "state.db"), listingPath, filepath.Join(dir, "hb"))), 0o644))
	return configPath, listingPath
}

func execute(args ...string) (string, error) {
	var out bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRootCommand_Layout(t *testing.T) {
	cmd := NewRootCommand()
	assert.NotNil(t, cmd.PersistentFlags().Lookup("config"))
	assert.NotNil(t, cmd.PersistentFlags().Lookup("log-level"))

	run, _, err := cmd.Find([]string{"run"})
	require.NoError(t, err)
	assert.NotNil(t, run.Flags().Lookup("force"))
	assert.NotNil(t, run.Flags().Lookup("dry-run"))

	_, _, err = cmd.Find([]string{"health"})
	require.NoError(t, err)
}

func TestRun_NotifiesOnce(t *testing.T) {
	configPath, _ := setupWorkspace(t, testListing)

	out, err := execute("run", "--config", configPath, "--dry-run")
	require.NoError(t, err)
	assert.Contains(t, out, "DRY RUN")
	assert.Contains(t, out, "New Products Available!")
	assert.Contains(t, out, "Whey Protein")
	assert.NotContains(t, out, "Protein Lassi")

	out, err = execute("run", "--config", configPath, "--dry-run")
	require.NoError(t, err)
	assert.NotContains(t, out, "DRY RUN", "nothing changed, nothing is sent")

	out, err = execute("run", "--config", configPath, "--dry-run", "--force")
	require.NoError(t, err)
	assert.Contains(t, out, "Product Status Report")
}

func TestRun_RestockIsNotified(t *testing.T) {
	configPath, listingPath := setupWorkspace(t, testListing)

	_, err := execute("run", "-c", configPath, "--dry-run")
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(listingPath, []byte(`{"data": [
  {"alias": "whey", "name": "Whey Protein", "available": 1},
  {"alias": "lassi", "name": "Protein Lassi", "available": 1}
]}`), 0o644))

	out, err := execute("run", "-c", configPath, "--dry-run")
	require.NoError(t, err)
	assert.Contains(t, out, "Protein Lassi")
	assert.NotContains(t, out, "Whey Protein")
}

func TestRun_EmptySnapshotIsSourceUnavailable(t *testing.T) {
	configPath, _ := setupWorkspace(t, `{"data": []}`)

	_, err := execute("run", "-c", configPath, "--dry-run")
	require.Error(t, err)
	assert.Equal(t, ExitSourceUnavailable, ExitCode(err))
}

func TestRun_InvalidConfig(t *testing.T) {
	configPath, _ := setupWorkspace(t, testListing)
	t.Setenv("STOCKWATCH_STORAGE_DRIVER", "etcd")

	_, err := execute("run", "-c", configPath)
	require.Error(t, err)
	assert.Equal(t, ExitInvalidConfig, ExitCode(err))
}

func TestHealth(t *testing.T) {
	configPath, _ := setupWorkspace(t, testListing)

	out, err := execute("health", "-c", configPath)
	require.NoError(t, err)
	assert.Contains(t, out, "[ok  ] state_store")
	assert.Contains(t, out, "health check passed")

	_, err = execute("run", "-c", configPath, "--dry-run")
	require.NoError(t, err)

	out, err = execute("health", "-c", configPath)
	require.NoError(t, err)
	assert.Contains(t, out, "[ok  ] last_fetch_time: last fetch was")
}

func TestExitCode(t *testing.T) {
	cause := errors.New("cause")
	tests := []struct {
		err  error
		want int
	}{
		{nil, ExitOK},
		{errors.New("boom"), ExitError},
		{ErrUnhealthy, ExitError},
		{common.NewValidationError("bad"), ExitInvalidConfig},
		{common.NewSourceUnavailableError("http", cause), ExitSourceUnavailable},
		{fmt.Errorf("applying snapshot: %w", common.NewStoreUnavailableError("put", cause)), ExitStoreUnavailable},
		{common.NewSinkDeliveryError("telegram", cause), ExitSinkFailed},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ExitCode(tt.err), "%v", tt.err)
	}
}
