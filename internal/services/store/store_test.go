package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalFilesFiltersByExtension(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{
		"paper.pdf",
		"notes.txt",
		"README.md",
		"figure.png",
		"data.csv",
		"Slides.PDF",
	} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "archive.pdf.d"), 0o755))

	s := &Service{knowledgeDir: dir}
	paths, err := s.localFiles()
	require.NoError(t, err)

	var names []string
	for _, p := range paths {
		names = append(names, filepath.Base(p))
	}
	assert.Equal(t, []string{"README.md", "Slides.PDF", "notes.txt", "paper.pdf"}, names)
}

func TestLocalFilesMissingDirectory(t *testing.T) {
	s := &Service{knowledgeDir: filepath.Join(t.TempDir(), "nope")}
	_, err := s.localFiles()
	assert.Error(t, err)
}

func TestLocalFilesEmptyDirectory(t *testing.T) {
	s := &Service{knowledgeDir: t.TempDir()}
	paths, err := s.localFiles()
	require.NoError(t, err)
	assert.Empty(t, paths)
}
