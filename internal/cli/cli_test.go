package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polifund/fundscan/internal/columns"
)

func setAzureEnv(t *testing.T) {
	t.Helper()
	t.Setenv("AZURE_DOCUMENT_INTELLIGENCE_ENDPOINT", "https://example.cognitiveservices.azure.com/")
	t.Setenv("AZURE_DOCUMENT_INTELLIGENCE_KEY", "test-key")
	t.Setenv("MODEL_ID_FORM_6_5", "pf-form-6-5")
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRunCommandRequiresArgs(t *testing.T) {
	_, err := execute(t, "run", "only-folder")
	require.Error(t, err)
}

func TestRunCommandMissingEndpoint(t *testing.T) {
	t.Setenv("AZURE_DOCUMENT_INTELLIGENCE_ENDPOINT", "")
	t.Setenv("AZURE_DOCUMENT_INTELLIGENCE_KEY", "")

	_, err := execute(t, "run", t.TempDir(), "6-5", "--no-analyze-receipts")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AZURE_DOCUMENT_INTELLIGENCE_ENDPOINT")
}

func TestRunCommandUnknownFormType(t *testing.T) {
	setAzureEnv(t)

	_, err := execute(t, "run", t.TempDir(), "9-9", "--no-analyze-receipts")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown form type")
	assert.Contains(t, err.Error(), "6-5")
	assert.Contains(t, err.Error(), "7-3-5")
}

func TestRunCommandMissingModelID(t *testing.T) {
	setAzureEnv(t)

	_, err := execute(t, "run", t.TempDir(), "7-5", "--no-analyze-receipts")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MODEL_ID_FORM_7_5")
}

func TestRunCommandMissingInputFolder(t *testing.T) {
	setAzureEnv(t)

	_, err := execute(t, "run", filepath.Join(t.TempDir(), "absent"), "6-5", "--no-analyze-receipts")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "input folder not found")
}

func TestRunCommandInvalidAIMode(t *testing.T) {
	setAzureEnv(t)

	_, err := execute(t, "run", t.TempDir(), "6-5", "--ai-mode", "7", "--no-analyze-receipts")
	require.Error(t, err)
}

func TestRunCommandEmptyFolderWritesNothing(t *testing.T) {
	setAzureEnv(t)
	output := filepath.Join(t.TempDir(), "out.csv")

	_, err := execute(t, "run", t.TempDir(), "6-5", "--no-analyze-receipts", "-o", output)
	require.NoError(t, err, "an empty folder is not an error")

	_, statErr := os.Stat(output)
	assert.True(t, os.IsNotExist(statErr), "no output file for an empty run")
}

func TestFormsCommand(t *testing.T) {
	setAzureEnv(t)

	out, err := execute(t, "forms")
	require.NoError(t, err)
	assert.Contains(t, out, "6-5")
	assert.Contains(t, out, "pf-form-6-5")
	assert.Contains(t, out, "(not configured)")
	assert.Contains(t, out, "activity_type")
	assert.Contains(t, out, "branch_name")
}

func TestFormsCommandWithConfigFile(t *testing.T) {
	setAzureEnv(t)
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"model_mapping":{"7-5":"pf-form-7-5"}}`), 0o644))

	out, err := execute(t, "forms", "-c", path)
	require.NoError(t, err)
	assert.Contains(t, out, "pf-form-7-5")
}

func TestCacheCommands(t *testing.T) {
	t.Setenv("FUNDSCAN_CACHE_DSN", filepath.Join(t.TempDir(), "cache.db"))

	out, err := execute(t, "cache", "ping")
	require.NoError(t, err)
	assert.Contains(t, out, "cache store: OK")

	out, err = execute(t, "cache", "prune", "--older-than", "1h")
	require.NoError(t, err)
	assert.Contains(t, out, "pruned 0 cached annotations")
}

func TestCacheCommandsRequireDSN(t *testing.T) {
	t.Setenv("FUNDSCAN_CACHE_DSN", "")

	_, err := execute(t, "cache", "ping")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "FUNDSCAN_CACHE_DSN")
}

func TestColumnSpecFromFlags(t *testing.T) {
	flags := &batchFlags{aiMode: 4, aiColumns: "payee_name, validity_score"}
	spec, err := flags.columnSpec()
	require.NoError(t, err)
	assert.Equal(t, columns.ModeInclude, spec.Mode)
	assert.Equal(t, []string{"payee_name", "validity_score"}, spec.Names)

	flags = &batchFlags{aiMode: 9}
	_, err = flags.columnSpec()
	require.Error(t, err)
}
