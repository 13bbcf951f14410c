package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"validationlake/internal/config"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithOutput_JSONWithComponent(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := NewWithOutput(config.LogConfig{Level: "debug", Format: "json"}, &buf)
	Component(log, "OutboxSender").WithField("id", 7).Info("sent")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "OutboxSender", line["component"])
	assert.Equal(t, "sent", line["msg"])
	assert.EqualValues(t, 7, line["id"])
}

func TestNewWithOutput_BadLevelFallsBackToInfo(t *testing.T) {
	t.Parallel()

	log := NewWithOutput(config.LogConfig{Level: "loud"}, &bytes.Buffer{})
	assert.Equal(t, logrus.InfoLevel, log.GetLevel())
}
