package main

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, "http://127.0.0.1:8055", c.BaseURL)
	assert.Equal(t, 30*time.Second, c.Timeout)
	assert.Empty(t, c.Tenant)
	assert.Empty(t, c.StoragePath)
}

func TestJsonConfig_DurationForms(t *testing.T) {
	var jc JsonConfig
	require.NoError(t, json.Unmarshal([]byte(`{"base_url":"https://crater.example.com","timeout":"45s"}`), &jc))
	assert.Equal(t, "https://crater.example.com", jc.BaseURL)
	assert.Equal(t, 45*time.Second, jc.Timeout.Duration)

	require.NoError(t, json.Unmarshal([]byte(`{"timeout":1000000000}`), &jc))
	assert.Equal(t, time.Second, jc.Timeout.Duration)
}
