package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureFatal struct{ msg string }

func (c *captureFatal) Fatalf(format string, args ...any) { c.msg = fmt.Sprintf(format, args...) }

func writeFile(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o600))
}

func TestDirectImportViolations(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.go", "package x\n\nimport (\n\t\"database/sql\"\n\t\"fmt\"\n)\n\nvar _ = fmt.Sprint\nvar _ sql.DB\n")
	writeFile(t, dir, "a_test.go", "package x\n\nimport \"net/http\"\n\nvar _ = http.Get\n")
	writeFile(t, dir, "notes.txt", "import \"database/sql\"")

	viols, err := directImportViolations(dir, StorageImportForbidden)
	require.NoError(t, err)
	assert.Equal(t, []string{"database/sql (in a.go)"}, viols)

	viols, err = directImportViolations(dir, TransportImportForbidden)
	require.NoError(t, err)
	assert.Empty(t, viols, "test files are skipped")

	_, err = directImportViolations(filepath.Join(dir, "missing"), StorageImportForbidden)
	require.Error(t, err)
}

func TestPredicates(t *testing.T) {
	assert.True(t, StorageImportForbidden("citydesk/internal/infra/persistence/sqlite"))
	assert.True(t, StorageImportForbidden("github.com/jackc/pgx/v5/stdlib"))
	assert.False(t, StorageImportForbidden("citydesk/pkg/domain"))
	assert.True(t, TransportImportForbidden("net/http/httptest"))
	assert.True(t, InternalImportForbidden("citydesk/internal/core"))
	assert.False(t, InternalImportForbidden("citydesk/pkg/domain"))
	assert.True(t, AnyOf(InternalImportForbidden, TransportImportForbidden)("net/http"))
	assert.False(t, AnyOf()("net/http"))
}

func TestFailIfViolations(t *testing.T) {
	var c captureFatal
	failIfViolations(&c, "layering", nil)
	assert.Empty(t, c.msg)
	failIfViolations(&c, "layering", []string{"x (in a.go)"})
	assert.Contains(t, c.msg, "layering")
	assert.Contains(t, c.msg, "x (in a.go)")
}
