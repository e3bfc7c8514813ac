package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"geoassist-be/internal/pkg/logger"
	"geoassist-be/pkg/workflow"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractTextFromDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sign.xml")
	require.NoError(t, os.WriteFile(path, []byte(`<sign><line>Jl. Tunjungan 1</line></sign>`), 0o644))

	svc := NewExtractorService(logger.NewNopLogger())
	text, err := svc.ExtractText(context.Background(), workflow.FileRef{Name: "sign.xml", Path: path, MimeType: "text/xml"})
	require.NoError(t, err)
	assert.Contains(t, text, "Jl. Tunjungan 1")
}

func TestExtractTextMissingFile(t *testing.T) {
	svc := NewExtractorService(logger.NewNopLogger())
	_, err := svc.ExtractText(context.Background(), workflow.FileRef{Path: filepath.Join(t.TempDir(), "missing.png")})
	assert.Error(t, err)
}
