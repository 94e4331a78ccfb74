package testsupport

import (
	"os"
	"path/filepath"
	"testing"
)

// ELFHeader is the minimal 64-bit ELF magic prefix used to fabricate
// native-executable stubs that pass leading-bytes validation.
var ELFHeader = []byte{0x7f, 'E', 'L', 'F', 2, 1, 1, 0}

// WriteFile fills the target path with the requested number of bytes using a
// simple repeating pattern. A size <= 0 writes a single byte.
func WriteFile(t testing.TB, path string, size int64) {
	t.Helper()

	if size <= 0 {
		size = 1
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()

	const chunkSize = 32 * 1024
	buf := make([]byte, chunkSize)
	for i := range buf {
		buf[i] = 0x42
	}

	remaining := size
	for remaining > 0 {
		toWrite := int64(chunkSize)
		if remaining < toWrite {
			toWrite = remaining
		}
		if _, err := f.Write(buf[:toWrite]); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
		remaining -= toWrite
	}
}

// WriteExecutable writes an executable file that begins with the given magic
// bytes, padded so size checks treat it as a real binary.
func WriteExecutable(t testing.TB, path string, magic []byte) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	payload := make([]byte, 0, len(magic)+64)
	payload = append(payload, magic...)
	payload = append(payload, make([]byte, 64)...)
	if err := os.WriteFile(path, payload, 0o755); err != nil {
		t.Fatalf("write executable %s: %v", path, err)
	}
}
