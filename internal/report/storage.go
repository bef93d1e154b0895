package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Storage persists a rendered report. FileStorage is the only
// implementation; cmd.Execute constructs a FileStorage directly.
type Storage interface {
	Save(ctx Context, content string) (string, error)
}

// FileStorage writes the report atomically (write to a temp file in the
// same directory, then rename) so a reader never observes a partial file.
// ExplicitPath, when set, is used verbatim; otherwise a name is derived
// from the proxy address and run ID under OutputDir.
type FileStorage struct {
	OutputDir    string
	ExplicitPath string
}

func NewFileStorage(outputDir, explicitPath string) *FileStorage {
	return &FileStorage{OutputDir: outputDir, ExplicitPath: explicitPath}
}

func sanitizeFilenameComponent(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "unknown"
	}

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if (r >= 'a' && r <= 'z') ||
			(r >= 'A' && r <= 'Z') ||
			(r >= '0' && r <= '9') ||
			r == '.' || r == '_' || r == '-' {
			b.WriteRune(r)
			continue
		}
		b.WriteByte('_')
	}
	out := b.String()
	out = strings.Trim(out, "._-")
	if out == "" {
		return "unknown"
	}
	return out
}

func (s *FileStorage) Save(ctx Context, content string) (string, error) {
	reportPath := s.ExplicitPath
	if reportPath == "" {
		outputDir := s.OutputDir
		if outputDir == "" {
			outputDir = "reports"
		}
		if err := os.MkdirAll(outputDir, 0755); err != nil {
			return "", fmt.Errorf("failed to create output directory: %w", err)
		}
		addr := sanitizeFilenameComponent(ctx.ProxyAddress)
		runID := sanitizeFilenameComponent(ctx.RunID)
		reportPath = filepath.Join(outputDir, fmt.Sprintf("upgrade_report_%s_%s.md", addr, runID))
	} else if dir := filepath.Dir(reportPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	dir := filepath.Dir(reportPath)
	tmpFile, err := os.CreateTemp(dir, filepath.Base(reportPath)+".tmp-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp report file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() { _ = os.Remove(tmpPath) }()

	if _, err := tmpFile.WriteString(content); err != nil {
		_ = tmpFile.Close()
		return "", fmt.Errorf("failed to write temp report file: %w", err)
	}
	if err := tmpFile.Chmod(0644); err != nil {
		_ = tmpFile.Close()
		return "", fmt.Errorf("failed to chmod temp report file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return "", fmt.Errorf("failed to close temp report file: %w", err)
	}

	if err := os.Rename(tmpPath, reportPath); err != nil {
		return "", fmt.Errorf("failed to finalize report file: %w", err)
	}

	return reportPath, nil
}
