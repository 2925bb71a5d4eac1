package downloader

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func copyString(s string) FetchFunc {
	return func(w io.Writer) (int64, error) {
		return io.Copy(w, strings.NewReader(s))
	}
}

func TestSaveToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "videos", "demo-1.mp4")

	result, err := SaveToFile(path, nil, copyString("mp4-bytes"))
	require.NoError(t, err)
	assert.Equal(t, int64(9), result.Size)
	assert.Equal(t, path, result.Path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "mp4-bytes", string(data))
	assert.NoFileExists(t, path+".part")
}

func TestSaveToFileRefusesExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "demo-1.mp4")
	require.NoError(t, os.WriteFile(path, []byte("old"), 0644))

	_, err := SaveToFile(path, nil, copyString("new"))
	assert.Error(t, err)

	config := DefaultConfig()
	config.OverwriteFile = true
	_, err = SaveToFile(path, config, copyString("new"))
	require.NoError(t, err)

	data, _ := os.ReadFile(path)
	assert.Equal(t, "new", string(data))
}

func TestSaveToFileRemovesPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "demo-1.mp4")
	boom := errors.New("connection reset")

	_, err := SaveToFile(path, nil, func(w io.Writer) (int64, error) {
		w.Write([]byte("half"))
		return 4, boom
	})
	assert.ErrorIs(t, err, boom)
	assert.NoFileExists(t, path)
	assert.NoFileExists(t, path+".part")
}

func TestSaveToFileChecksSize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "demo-1.mp4")
	config := DefaultConfig()
	config.ExpectedSize = 100

	_, err := SaveToFile(path, config, copyString("short"))
	assert.Error(t, err)
	assert.NoFileExists(t, path)
	assert.NoFileExists(t, path+".part")
}
