// File: cmd/extract_test.go
package cmd

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/paperlens/api/schemas"
)

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"attention is all you need", "attention_is_all_you_need"},
		{"a/b\\c", "a-b-c"},
		{"../../etc/passwd", "----etc-passwd"},
		{"  padded  ", "padded"},
		{"time: 12", "time-_12"},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, sanitizeFilename(tc.in), "input: %q", tc.in)
	}
}

func TestPaperInputString(t *testing.T) {
	assert.Equal(t, "x.pdf", paperInput{path: "x.pdf"}.String())
	assert.Equal(t, "https://example.org/p.pdf", paperInput{url: "https://example.org/p.pdf"}.String())
}

func TestStageLocalFile(t *testing.T) {
	src := filepath.Join(t.TempDir(), "paper.txt")
	require.NoError(t, os.WriteFile(src, []byte("content"), 0o644))

	staged, err := stageLocalFile(src)
	require.NoError(t, err)
	t.Cleanup(func() { os.Remove(staged) })

	assert.NotEqual(t, src, staged)
	assert.Equal(t, ".txt", filepath.Ext(staged))

	data, err := os.ReadFile(staged)
	require.NoError(t, err)
	assert.Equal(t, "content", string(data))

	// The original survives pipeline cleanup of the staged copy.
	_, err = os.Stat(src)
	assert.NoError(t, err)
}

func TestStageLocalFile_Missing(t *testing.T) {
	_, err := stageLocalFile(filepath.Join(t.TempDir(), "missing.pdf"))
	assert.Error(t, err)
}

func TestDownloadPaper(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("paper body"))
	}))
	t.Cleanup(server.Close)

	path, title, err := downloadPaper(context.Background(), server.URL+"/papers/transformer.txt")
	require.NoError(t, err)
	t.Cleanup(func() { os.Remove(path) })

	assert.Equal(t, "transformer", title)
	assert.Equal(t, ".txt", filepath.Ext(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "paper body", string(data))
}

func TestDownloadPaper_BadStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(server.Close)

	_, _, err := downloadPaper(context.Background(), server.URL+"/missing.pdf")
	assert.Error(t, err)
}

func TestDownloadPaper_InvalidURL(t *testing.T) {
	_, _, err := downloadPaper(context.Background(), "ftp://example.org/x.pdf")
	assert.Error(t, err)

	_, _, err = downloadPaper(context.Background(), "not a url")
	assert.Error(t, err)
}

func TestWriteArtifacts(t *testing.T) {
	dir := t.TempDir()
	prev := outputDir
	outputDir = dir
	t.Cleanup(func() { outputDir = prev })

	paper := schemas.NewPaper("Test Paper")
	paper.Status = schemas.StatusCompleted
	paper.Diagram = &schemas.Diagram{
		PaperID: paper.ID,
		Format:  "mermaid",
		Source:  "flowchart TD\n    A[\"X\"]\n",
	}

	require.NoError(t, writeArtifacts(paper, "Test Paper"))

	record, err := os.ReadFile(filepath.Join(dir, "Test_Paper.json"))
	require.NoError(t, err)
	assert.Contains(t, string(record), paper.ID)

	diagram, err := os.ReadFile(filepath.Join(dir, "Test_Paper.mmd"))
	require.NoError(t, err)
	assert.Contains(t, string(diagram), "flowchart TD")
}

func TestWriteArtifacts_NoDiagram(t *testing.T) {
	dir := t.TempDir()
	prev := outputDir
	outputDir = dir
	t.Cleanup(func() { outputDir = prev })

	paper := schemas.NewPaper("No Diagram")
	require.NoError(t, writeArtifacts(paper, "No Diagram"))

	_, err := os.Stat(filepath.Join(dir, "No_Diagram.mmd"))
	assert.True(t, os.IsNotExist(err))
}

func TestExtractCmd_RequiresInput(t *testing.T) {
	err := extractCmd.Args(extractCmd, nil)
	assert.Error(t, err)

	err = extractCmd.Args(extractCmd, []string{"paper.pdf"})
	assert.NoError(t, err)
}
