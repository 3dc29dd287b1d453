package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mudra.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
gesture:
  window_size: 7
  majority_threshold: 0.6
server:
  addr: ":9000"
  session_ttl: 30s
mqtt:
  broker: tcp://broker:1883
  qos: 2
`)

	s, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 7, s.Gesture.WindowSize)
	assert.Equal(t, 0.6, s.Gesture.MajorityThreshold)
	assert.Equal(t, 0.04, s.Gesture.ThumbThreshold, "unset keys keep defaults")
	assert.Equal(t, ":9000", s.Server.Addr)
	assert.Equal(t, 30*time.Second, s.Server.SessionTTL)
	assert.Equal(t, "tcp://broker:1883", s.MQTT.Broker)
	assert.Equal(t, byte(2), s.MQTT.QoS)
	assert.Equal(t, 15, s.Camera.ActiveFPS)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "server:\n  addr: \":9000\"\n")
	t.Setenv("MUDRA_SERVER_ADDR", ":9100")
	t.Setenv("MUDRA_GESTURE_WINDOW_SIZE", "9")

	s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9100", s.Server.Addr)
	assert.Equal(t, 9, s.Gesture.WindowSize)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"window too small", "gesture:\n  window_size: 1\n", "window_size"},
		{"threshold above one", "gesture:\n  majority_threshold: 1.5\n", "majority_threshold"},
		{"bad qos", "mqtt:\n  qos: 3\n", "qos"},
		{"bad log format", "logging:\n  format: xml\n", "xml"},
		{"too many hands", "detector:\n  max_hands: 3\n", "max_hands"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestDefaultYAML_RoundTrips(t *testing.T) {
	out, err := DefaultYAML()
	require.NoError(t, err)
	assert.Contains(t, string(out), "window_size: 5")

	s, err := Load(writeConfig(t, string(out)))
	require.NoError(t, err)

	if diff := cmp.Diff(Default(), s); diff != "" {
		t.Errorf("settings mismatch after round trip (-want +got):\n%s", diff)
	}
}

func TestDefault_IsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}
