package export

import (
	"archive/zip"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func documentXML(t *testing.T, path string) string {
	t.Helper()
	zr, err := zip.OpenReader(path)
	require.NoError(t, err)
	defer zr.Close()

	for _, f := range zr.File {
		if f.Name != "word/document.xml" {
			continue
		}
		rc, err := f.Open()
		require.NoError(t, err)
		defer rc.Close()
		data, err := io.ReadAll(rc)
		require.NoError(t, err)
		return string(data)
	}
	t.Fatal("word/document.xml not found")
	return ""
}

func TestNotesDocx(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bio_notes.docx")
	md := strings.Join([]string{
		"# Study Guide: Biology",
		"",
		"## Cells",
		"",
		"- The **nucleus** holds `DNA`",
		"---",
		"Mitochondria make energy.",
	}, "\n")

	require.NoError(t, NotesDocx(md, path))

	body := documentXML(t, path)
	assert.Contains(t, body, "Study Guide: Biology")
	assert.Contains(t, body, "nucleus")
	assert.Contains(t, body, "Mitochondria make energy.")
	assert.NotContains(t, body, "**")
	assert.NotContains(t, body, "`")
}

func TestCleanInline(t *testing.T) {
	assert.Equal(t, "bold and code", cleanInline("**bold** and `code`"))
}
