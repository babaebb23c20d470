package llm

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClientRequiresAPIKey(t *testing.T) {
	_, err := NewClient(Config{})
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestNewClientDefaults(t *testing.T) {
	client, err := NewClient(Config{APIKey: "sk-test"})
	require.NoError(t, err)

	assert.Equal(t, "gpt-4o-mini", client.config.Model)
	assert.Equal(t, time.Second, client.config.MinInterval)
	assert.Equal(t, 60*time.Second, client.config.Timeout)
	assert.Equal(t, uint(3), client.config.MaxAttempts)
}

func TestNewClientKeepsOverrides(t *testing.T) {
	client, err := NewClient(Config{
		APIKey:      "sk-test",
		Model:       "gpt-4o",
		MinInterval: 250 * time.Millisecond,
		Timeout:     10 * time.Second,
		MaxAttempts: 1,
	})
	require.NoError(t, err)

	assert.Equal(t, "gpt-4o", client.config.Model)
	assert.Equal(t, 250*time.Millisecond, client.config.MinInterval)
	assert.Equal(t, 10*time.Second, client.config.Timeout)
	assert.Equal(t, uint(1), client.config.MaxAttempts)
}
