package tempfs

import (
	"os"
	"path/filepath"
	"testing"
)

// WithTempFS creates a temporary directory populated with the given files
// (paths are relative, parent directories are created as needed) and invokes
// f with the directory root. Cleanup is handled by the testing package.
func WithTempFS(t *testing.T, files map[string]string, f func(t *testing.T, root string)) {
	t.Helper()

	root := t.TempDir()

	for path, content := range files {
		abs := filepath.Join(root, path)
		if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(abs, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	f(t, root)
}
