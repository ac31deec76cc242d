package correlation

import (
	"os"
	"path/filepath"
	"testing"
)

// newTempFile writes b to a temp file and returns its path, for tests
// that need an OpenReader-compatible on-disk matrix.
func newTempFile(t *testing.T, b []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "corr.dat")
	if err := os.WriteFile(path, b, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}
