package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "gpt-4o-mini", cfg.OpenAIModel)
	assert.Equal(t, OCRBackendVision, cfg.OCRBackend)
	assert.Equal(t, time.Second, cfg.ModelMinInterval)
	assert.Equal(t, 60*time.Second, cfg.ModelTimeout)
	assert.Equal(t, uint(3), cfg.ModelMaxAttempts)
	assert.Equal(t, 4, cfg.BatchWorkers)
	assert.False(t, cfg.RequirePatientName)
}

func TestLoadRequiresAPIKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "OPENAI_API_KEY")
}

func TestLoadOCRSkipsAPIKeyRequirement(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")

	cfg, err := LoadOCR()
	require.NoError(t, err)
	assert.Equal(t, OCRBackendVision, cfg.OCRBackend)
}

func TestLoadRejectsUnknownBackend(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("OCR_BACKEND", "tesseract")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "OCR_BACKEND")
}

func TestLoadDocumentAIBackendRequirements(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("OCR_BACKEND", "documentai")
	t.Setenv("GOOGLE_CLOUD_PROJECT", "")
	t.Setenv("DOCUMENT_AI_PROCESSOR_ID", "")

	_, err := Load()
	require.Error(t, err)

	t.Setenv("GOOGLE_CLOUD_PROJECT", "my-project")
	t.Setenv("DOCUMENT_AI_PROCESSOR_ID", "processor-123")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, OCRBackendDocumentAI, cfg.OCRBackend)
}

func TestLoadParsesOverrides(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("MODEL_MIN_INTERVAL", "2s")
	t.Setenv("MODEL_TIMEOUT", "90s")
	t.Setenv("BATCH_WORKERS", "8")
	t.Setenv("REQUIRE_PATIENT_NAME", "true")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, cfg.ModelMinInterval)
	assert.Equal(t, 90*time.Second, cfg.ModelTimeout)
	assert.Equal(t, 8, cfg.BatchWorkers)
	assert.True(t, cfg.RequirePatientName)
}
