package place

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/vmunix/trailgo/internal/config"
	"github.com/vmunix/trailgo/internal/media"
)

// Result is the outcome of one placement.
type Result struct {
	FinalPath string
	Index     int // collision suffix applied, 0 when the first name was free
	Placed    bool
}

// Placer moves verified artifacts into the media library.
type Placer struct {
	log *slog.Logger
}

// NewPlacer creates a placer.
func NewPlacer(log *slog.Logger) *Placer {
	return &Placer{log: log}
}

// Place moves the artifact into the item's folder under the profile's
// naming rules. Existing files are never overwritten; a numeric suffix
// disambiguates collisions. The move either fully lands the file at the
// destination or leaves the destination untouched with the scratch file
// still in place.
func (p *Placer) Place(artifact string, item *media.Item, profile config.Profile) (Result, error) {
	if info, err := os.Stat(item.FolderPath); err != nil || !info.IsDir() {
		return Result{}, fmt.Errorf("%w: %s", ErrFolderNotFound, item.FolderPath)
	}

	destDir := item.FolderPath
	if profile.Subfolder != "" {
		destDir = filepath.Join(destDir, SanitizeFilename(profile.Subfolder))
		if err := os.MkdirAll(destDir, 0755); err != nil {
			return Result{}, fmt.Errorf("create subfolder: %w", err)
		}
	}

	ext := strings.TrimPrefix(filepath.Ext(artifact), ".")
	name := TrailerName(profile.Naming, item.Title, item.Year, profile.Resolution, ext)
	finalPath, index := freeName(destDir, name)

	if err := move(artifact, finalPath); err != nil {
		return Result{}, err
	}

	p.log.Info("trailer placed", "media_id", item.ID, "path", finalPath, "index", index)
	return Result{FinalPath: finalPath, Index: index, Placed: true}, nil
}

// freeName finds the first destination name that does not collide with an
// existing file, appending " (N)" before the extension as needed.
func freeName(dir, name string) (string, int) {
	path := filepath.Join(dir, name)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return path, 0
	}

	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	for i := 1; ; i++ {
		candidate := filepath.Join(dir, fmt.Sprintf("%s (%d)%s", stem, i, ext))
		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			return candidate, i
		}
	}
}

// move renames src to dst, falling back to copy-and-rename when the scratch
// volume differs from the library volume. The copy lands in a dotfile next
// to the destination and is renamed only once fully written, so a partial
// write never masquerades as a finished trailer.
func move(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	} else if !isCrossDevice(err) {
		return fmt.Errorf("%w: %v", ErrMoveFailed, err)
	}

	tmp := filepath.Join(filepath.Dir(dst), "."+filepath.Base(dst)+".partial")
	if err := copyFile(src, tmp); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("%w: %v", ErrMoveFailed, err)
	}
	if err := os.Rename(tmp, dst); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("%w: %v", ErrMoveFailed, err)
	}
	if err := os.Remove(src); err != nil {
		// The trailer is in place; a stale scratch file is only noise.
		return nil
	}
	return nil
}

func isCrossDevice(err error) bool {
	return strings.Contains(err.Error(), "cross-device link") ||
		strings.Contains(err.Error(), "invalid cross-device")
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer func() { _ = out.Close() }()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}
