// Package refs locates reference files and owns the only mutation path
// for them: the overwrite operation that promotes an actual output into
// a reference's place.
package refs

import (
	"fmt"
	"os"
	"path/filepath"
)

// BackupSuffix is appended to a reference before it is replaced by an
// overwrite, so the previous content survives exactly one promotion.
const BackupSuffix = ".prev"

// BookkeepingError wraps a failed rename during overwrite. Losing a
// reference silently is worse than stopping, so callers treat it as fatal.
type BookkeepingError struct {
	Op   string
	Path string
	Err  error
}

func (e *BookkeepingError) Error() string {
	return fmt.Sprintf("reference bookkeeping: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *BookkeepingError) Unwrap() error { return e.Err }

// Resolver maps logical reference names to the file actually expected to
// match on this platform.
type Resolver struct {
	// Root is prepended to relative reference names.
	Root string

	// PlatformSuffix, when non-empty, selects a per-platform variant of
	// a reference if one exists alongside the canonical file. It lets a
	// single suite serve platforms whose numeric output legitimately
	// differs (different random-number implementations).
	PlatformSuffix string
}

// Resolve returns the path to compare against for the named reference.
// The platform variant wins only when it exists on disk.
func (r *Resolver) Resolve(name string) string {
	path := name
	if r.Root != "" && !filepath.IsAbs(name) {
		path = filepath.Join(r.Root, name)
	}
	if r.PlatformSuffix != "" {
		variant := path + r.PlatformSuffix
		if _, err := os.Stat(variant); err == nil {
			return variant
		}
	}
	return path
}

// Missing reports whether the reference file is absent (as opposed to
// unreadable for some other reason).
func Missing(path string) bool {
	_, err := os.Stat(path)
	return os.IsNotExist(err)
}

// Overwrite promotes actualPath into refPath's place. The old reference
// is first demoted to refPath+BackupSuffix; a missing old reference skips
// the backup. Renames, not copies, so a failure leaves either the old or
// the new reference intact.
func Overwrite(refPath, actualPath string) error {
	if _, err := os.Stat(refPath); err == nil {
		if err := os.Rename(refPath, refPath+BackupSuffix); err != nil {
			return &BookkeepingError{Op: "backup", Path: refPath, Err: err}
		}
	} else if !os.IsNotExist(err) {
		return &BookkeepingError{Op: "stat", Path: refPath, Err: err}
	}
	if err := os.Rename(actualPath, refPath); err != nil {
		return &BookkeepingError{Op: "promote", Path: refPath, Err: err}
	}
	return nil
}

// CopyForInspection copies a failing output next to its reference with a
// .failed suffix so it survives the next run's scratch-file cleanup.
func CopyForInspection(refPath, actualPath string) error {
	data, err := os.ReadFile(actualPath)
	if err != nil {
		return fmt.Errorf("reading failed output: %w", err)
	}
	dst := refPath + ".failed"
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		return fmt.Errorf("copying failed output to %s: %w", dst, err)
	}
	return nil
}
