package pathhelper

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeFileName(t *testing.T) {
	assert.Equal(t, "a_b_c", SanitizeFileName("a/b:c", "x"))
	assert.Equal(t, "x", SanitizeFileName(" .. ", "x"))
	assert.Equal(t, "jollof", SanitizeFileName("jollof", "x"))
}

func TestEnsureExt(t *testing.T) {
	assert.Equal(t, "demo.mp4", EnsureExt("demo", ".mp4"))
	assert.Equal(t, "demo.MP4", EnsureExt("demo.MP4", "mp4"))
	assert.Equal(t, "demo", EnsureExt("demo", ""))
}

func TestOutputPath(t *testing.T) {
	never := func(string) bool { return false }
	always := func(string) bool { return true }

	assert.Equal(t, "demo-1.mp4", OutputPath("", "demo-1", ".mp4", never))
	assert.Equal(t, filepath.Join("videos", "demo-1.mp4"), OutputPath("videos/", "demo-1", ".mp4", never))
	assert.Equal(t, filepath.Join("videos", "demo-1.mp4"), OutputPath("videos", "demo-1", ".mp4", always))
	assert.Equal(t, "out.mov", OutputPath("out.mov", "demo-1", ".mp4", never))
}
