package commands_test

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aldrienne/remit/internal/commands"
	"github.com/aldrienne/remit/internal/store"
)

var binaryPath string

func TestMain(m *testing.M) {
	// Build the binary once for all tests.
	tmpDir, err := os.MkdirTemp("", "remit-test-*")
	if err != nil {
		panic(err)
	}
	defer os.RemoveAll(tmpDir)

	binaryPath = filepath.Join(tmpDir, "remit")
	cmd := exec.Command("go", "build", "-o", binaryPath, "../../cmd/remit")
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		panic("failed to build binary: " + err.Error())
	}

	os.Exit(m.Run())
}

func runRemit(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := exec.Command(binaryPath, args...)
	out, err := cmd.CombinedOutput()
	return string(out), err
}

func TestInit_CreatesStructure(t *testing.T) {
	dir := t.TempDir()
	_, err := runRemit(t, "init", dir)
	require.NoError(t, err)

	expectedDirs := []string{
		"import",
		filepath.Join("import", "processed"),
		"templates",
		"vouchers",
		"outbox",
		"logs",
	}
	for _, d := range expectedDirs {
		info, err := os.Stat(filepath.Join(dir, d))
		require.NoError(t, err, "directory %s should exist", d)
		assert.True(t, info.IsDir(), "%s should be a directory", d)
	}
}

func TestInit_Config(t *testing.T) {
	dir := t.TempDir()
	_, err := runRemit(t, "init", dir)
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "remit.yaml"))
	require.NoError(t, err)
	contents := string(data)

	assert.Contains(t, contents, "id: eligible_payments")
	assert.Contains(t, contents, "page_size: 200")
	assert.Contains(t, contents, "print_template: voucher")
	assert.Contains(t, contents, "mode: outbox")
}

func TestInit_FlagsLandInConfig(t *testing.T) {
	dir := t.TempDir()
	_, err := runRemit(t, "init", dir,
		"--author-name", "AP Desk",
		"--author-email", "ap@example.test",
		"--report-to", "ops@example.test")
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "remit.yaml"))
	require.NoError(t, err)
	contents := string(data)

	assert.Contains(t, contents, "name: AP Desk")
	assert.Contains(t, contents, "email: ap@example.test")
	assert.Contains(t, contents, "recipient: ops@example.test")
}

func TestInit_SeedsEmailTemplate(t *testing.T) {
	dir := t.TempDir()
	_, err := runRemit(t, "init", dir)
	require.NoError(t, err)

	st, err := store.Open(filepath.Join(dir, "remit.db"))
	require.NoError(t, err)
	defer st.Close()

	tpl, err := st.LoadEmailTemplate(context.Background(), commands.DefaultEmailTemplateID)
	require.NoError(t, err)
	assert.Contains(t, tpl.Subject, "{{.Author.Name}}")
	assert.Contains(t, tpl.Body, "{{.Recipient.Name}}")
}

func TestInit_SchemaReady(t *testing.T) {
	dir := t.TempDir()
	_, err := runRemit(t, "init", dir)
	require.NoError(t, err)

	st, err := store.Open(filepath.Join(dir, "remit.db"))
	require.NoError(t, err)
	defer st.Close()

	cur, err := st.RunSearch(context.Background(), store.DefaultSearchID, 10)
	require.NoError(t, err)
	assert.Zero(t, cur.Count())
}

func TestInit_VoucherTemplate(t *testing.T) {
	dir := t.TempDir()
	_, err := runRemit(t, "init", dir)
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "templates", "voucher.html"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "{{.OrderNumber}}")
	assert.Contains(t, string(data), "{{.Amount}}")
}

func TestInit_Gitignore(t *testing.T) {
	dir := t.TempDir()
	_, err := runRemit(t, "init", dir)
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, ".gitignore"))
	require.NoError(t, err)
	contents := string(data)

	for _, pattern := range []string{"remit.db", "outbox/", "vouchers/", "logs/"} {
		assert.Contains(t, contents, pattern, ".gitignore should contain %s", pattern)
	}
}

func TestInit_RefusesSecondRun(t *testing.T) {
	dir := t.TempDir()
	_, err := runRemit(t, "init", dir)
	require.NoError(t, err)

	out, err := runRemit(t, "init", dir)
	require.Error(t, err)
	assert.Contains(t, out, "already exists")
}

func TestVersionFlag(t *testing.T) {
	out, err := runRemit(t, "--version")
	require.NoError(t, err)
	assert.Contains(t, out, "dev")
}
