package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ppiankov/contextcruncher/internal/model"
)

// Writer persists artifacts into a directory, replacing earlier files with
// the same slug. Each file is staged in the target directory and renamed
// into place, so readers see either the old or the new content.
type Writer struct {
	dir      string
	permFile os.FileMode
	permDir  os.FileMode
}

// NewWriter creates a writer rooted at dir
func NewWriter(dir string) (*Writer, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, model.NewConfigurationError("output.dir", "output directory is empty")
	}
	return &Writer{dir: dir, permFile: 0o644, permDir: 0o755}, nil
}

// Dir returns the output directory
func (w *Writer) Dir() string {
	return w.dir
}

// Write stores both renderings. Either both files are replaced or, on
// failure, the staged files are removed and an earlier Markdown file is put
// back.
func (w *Writer) Write(ctx context.Context, artifact *model.ContextArtifact) (*model.WrittenFiles, error) {
	if artifact == nil {
		return nil, fmt.Errorf("write artifact: nil artifact")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	// filenames derive from the slug, which never contains a separator
	if err := model.ValidateSlug(artifact.Record.Slug); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(w.dir, w.permDir); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	files := &model.WrittenFiles{
		MarkdownPath: filepath.Join(w.dir, artifact.MarkdownFilename),
		JSONPath:     filepath.Join(w.dir, artifact.JSONFilename),
	}

	mdTmp, err := w.stage([]byte(artifact.Markdown))
	if err != nil {
		return nil, fmt.Errorf("stage markdown: %w", err)
	}
	jsonTmp, err := w.stage(artifact.JSON)
	if err != nil {
		_ = os.Remove(mdTmp)
		return nil, fmt.Errorf("stage json: %w", err)
	}

	if err := ctx.Err(); err != nil {
		_ = os.Remove(mdTmp)
		_ = os.Remove(jsonTmp)
		return nil, err
	}

	// the previous Markdown is kept aside until the JSON is in place
	backup := filepath.Join(w.dir, ".prev-"+artifact.MarkdownFilename)
	hadPrevious := os.Rename(files.MarkdownPath, backup) == nil
	restore := func() {
		if hadPrevious {
			_ = os.Rename(backup, files.MarkdownPath)
		} else {
			_ = os.Remove(files.MarkdownPath)
		}
	}

	if err := os.Rename(mdTmp, files.MarkdownPath); err != nil {
		_ = os.Remove(mdTmp)
		_ = os.Remove(jsonTmp)
		restore()
		return nil, fmt.Errorf("replace %s: %w", artifact.MarkdownFilename, err)
	}
	if err := os.Rename(jsonTmp, files.JSONPath); err != nil {
		_ = os.Remove(jsonTmp)
		restore()
		return nil, fmt.Errorf("replace %s: %w", artifact.JSONFilename, err)
	}
	if hadPrevious {
		_ = os.Remove(backup)
	}

	syncDir(w.dir)
	return files, nil
}

func (w *Writer) stage(data []byte) (string, error) {
	tmp, err := os.CreateTemp(w.dir, ".tmp-*")
	if err != nil {
		return "", err
	}
	tmpPath := tmp.Name()
	_ = os.Chmod(tmpPath, w.permFile)

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return "", err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return "", err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return "", err
	}
	return tmpPath, nil
}

// syncDir flushes directory metadata where the platform allows it
func syncDir(dir string) {
	f, err := os.Open(dir)
	if err != nil {
		return
	}
	defer f.Close()
	_ = f.Sync()
}
