package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ppiankov/contextcruncher/internal/model"
)

// DemoResult describes one demo run
type DemoResult struct {
	Artifact *model.ContextArtifact
	Files    *model.WrittenFiles
}

// DemoRunner extracts the bundled sample recording with the generic policy
// and writes both artifacts, replacing the previous run's output.
type DemoRunner struct {
	pipeline  *Pipeline
	audioPath string
	writer    *Writer
	logger    *slog.Logger
}

// NewDemoRunner creates a demo runner from the demo configuration
func NewDemoRunner(p *Pipeline, cfg model.DemoConfig, logger *slog.Logger) (*DemoRunner, error) {
	if cfg.AudioPath == "" {
		return nil, model.NewConfigurationError("demo.audio_path", "sample audio path is empty")
	}
	w, err := NewWriter(cfg.OutputDir)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &DemoRunner{pipeline: p, audioPath: cfg.AudioPath, writer: w, logger: logger}, nil
}

// Run performs the demo extraction
func (d *DemoRunner) Run(ctx context.Context) (*DemoResult, error) {
	audio, err := model.ReadAudioFile(d.audioPath)
	if err != nil {
		return nil, fmt.Errorf("load sample audio: %w", err)
	}

	artifact, err := d.pipeline.Run(ctx, audio, model.GenericPolicy())
	if err != nil {
		return nil, err
	}

	files, err := d.writer.Write(ctx, artifact)
	if err != nil {
		return nil, fmt.Errorf("write artifacts: %w", err)
	}

	d.logger.Info("demo artifacts written", "markdown", files.MarkdownPath, "json", files.JSONPath)
	return &DemoResult{Artifact: artifact, Files: files}, nil
}
