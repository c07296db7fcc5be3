package place_test

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vmunix/trailgo/internal/config"
	"github.com/vmunix/trailgo/internal/media"
	"github.com/vmunix/trailgo/internal/place"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testProfile() config.Profile {
	return config.Profile{
		Naming:     "{title} ({year})-trailer.{ext}",
		Resolution: 1080,
	}
}

func setup(t *testing.T) (string, *media.Item) {
	t.Helper()
	folder := t.TempDir()
	item := &media.Item{
		ID:         3,
		Title:      "Alien Harvest",
		Year:       2019,
		FolderPath: folder,
	}
	return folder, item
}

func writeArtifact(t *testing.T) string {
	t.Helper()
	artifact := filepath.Join(t.TempDir(), "scratch.mkv")
	require.NoError(t, os.WriteFile(artifact, []byte("trailer"), 0644))
	return artifact
}

func TestPlace_Success(t *testing.T) {
	folder, item := setup(t)
	artifact := writeArtifact(t)

	res, err := place.NewPlacer(testLogger()).Place(artifact, item, testProfile())

	require.NoError(t, err)
	assert.True(t, res.Placed)
	assert.Zero(t, res.Index)
	assert.Equal(t, filepath.Join(folder, "Alien Harvest (2019)-trailer.mkv"), res.FinalPath)
	assert.FileExists(t, res.FinalPath)
	assert.NoFileExists(t, artifact, "scratch artifact consumed by the move")
}

func TestPlace_Subfolder(t *testing.T) {
	folder, item := setup(t)
	artifact := writeArtifact(t)

	profile := testProfile()
	profile.Subfolder = "Trailers"

	res, err := place.NewPlacer(testLogger()).Place(artifact, item, profile)

	require.NoError(t, err)
	assert.Equal(t, filepath.Join(folder, "Trailers", "Alien Harvest (2019)-trailer.mkv"), res.FinalPath)
	assert.FileExists(t, res.FinalPath)
}

func TestPlace_CollisionAppendsIndex(t *testing.T) {
	folder, item := setup(t)

	taken := filepath.Join(folder, "Alien Harvest (2019)-trailer.mkv")
	require.NoError(t, os.WriteFile(taken, []byte("existing"), 0644))
	takenToo := filepath.Join(folder, "Alien Harvest (2019)-trailer (1).mkv")
	require.NoError(t, os.WriteFile(takenToo, []byte("existing"), 0644))

	artifact := writeArtifact(t)
	res, err := place.NewPlacer(testLogger()).Place(artifact, item, testProfile())

	require.NoError(t, err)
	assert.Equal(t, 2, res.Index)
	assert.Equal(t, filepath.Join(folder, "Alien Harvest (2019)-trailer (2).mkv"), res.FinalPath)

	// never overwrite
	existing, readErr := os.ReadFile(taken)
	require.NoError(t, readErr)
	assert.Equal(t, "existing", string(existing))
}

func TestPlace_FolderNotFound(t *testing.T) {
	_, item := setup(t)
	item.FolderPath = filepath.Join(item.FolderPath, "gone")
	artifact := writeArtifact(t)

	_, err := place.NewPlacer(testLogger()).Place(artifact, item, testProfile())

	assert.ErrorIs(t, err, place.ErrFolderNotFound)
	assert.FileExists(t, artifact, "scratch file stays for cleanup on failure")
}

func TestPlace_SanitizesTitle(t *testing.T) {
	folder, item := setup(t)
	item.Title = "Alien: Harvest / Reborn?"
	artifact := writeArtifact(t)

	res, err := place.NewPlacer(testLogger()).Place(artifact, item, testProfile())

	require.NoError(t, err)
	assert.Equal(t, filepath.Join(folder, "Alien Harvest Reborn (2019)-trailer.mkv"), res.FinalPath)
}

func TestTrailerName(t *testing.T) {
	got := place.TrailerName("{title} ({year}) [{resolution}p].{ext}", "Alien Harvest", 2019, 1080, "mkv")
	assert.Equal(t, "Alien Harvest (2019) [1080p].mkv", got)

	// unknown placeholders survive untouched
	got = place.TrailerName("{title}.{unknown}.{ext}", "X", 0, 0, "mkv")
	assert.Equal(t, "X.{unknown}.mkv", got)
}

func TestSanitizeFilename(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"Alien: Harvest", "Alien Harvest"},
		{"a/b\\c", "a b c"},
		{"dots...everywhere", "dots.everywhere"},
		{"  padded  ", "padded"},
		{"who?*<>", "who"},
	}

	for _, tc := range cases {
		assert.Equalf(t, tc.want, place.SanitizeFilename(tc.in), "SanitizeFilename(%q)", tc.in)
	}
}
