// Package atomicfile provides crash-safe file writes: write-if-changed and
// append, both via temp file + fsync + rename so a partial write never lands
// at the final path.
package atomicfile

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
)

// WriteIfChanged writes data to target only if the existing content differs,
// via a temp file in the same directory followed by rename. Returns whether
// a write occurred.
func WriteIfChanged(target string, data []byte) (bool, error) {
	existing, err := os.ReadFile(target)
	if err == nil && bytes.Equal(existing, data) {
		return false, nil
	}
	if err != nil && !os.IsNotExist(err) {
		return false, fmt.Errorf("read existing file: %w", err)
	}
	if err := Write(target, data); err != nil {
		return false, err
	}
	return true, nil
}

// Write writes data to target via temp file + fsync + chmod + rename.
func Write(target string, data []byte) error {
	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0o755); err != nil { //nolint:gosec // standard directory permissions
		return fmt.Errorf("ensure directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".gwernbuild-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	keep := false
	defer func() {
		if !keep {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		return fmt.Errorf("replace file: %w", err)
	}
	keep = true
	return nil
}

// AppendLine appends a single newline-terminated record to target by reading
// the whole file, appending in memory, and rewriting atomically. This is only
// suitable for append-only logs that are small enough to hold in memory (the
// metadata auto file and the archive store both qualify); it guarantees the
// file is never observed half-written.
func AppendLine(target string, line []byte) error {
	existing, err := os.ReadFile(target)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("read existing file: %w", err)
	}
	buf := make([]byte, 0, len(existing)+len(line)+1)
	buf = append(buf, existing...)
	buf = append(buf, line...)
	if len(buf) == 0 || buf[len(buf)-1] != '\n' {
		buf = append(buf, '\n')
	}
	return Write(target, buf)
}
