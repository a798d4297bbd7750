package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "stagecore.conf")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadOverlaysDefaults(t *testing.T) {
	path := writeTempConfig(t, "MQTT_BROKER=tcp://broker.local:1883\nSAMPLE_RATE_HZ=5000\n")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "tcp://broker.local:1883", cfg.MQTTBroker)
	assert.Equal(t, 5000, cfg.SampleRateHz)
	assert.Equal(t, 4, cfg.ControllerA)
	assert.Equal(t, 2222, cfg.ControllerB)
}

func TestLoadSkipsCommentsAndBlankLines(t *testing.T) {
	path := writeTempConfig(t, "# a comment\n\nMQTT_BROKER=tcp://x:1883\n")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "tcp://x:1883", cfg.MQTTBroker)
}

func TestLoadRejectsUnknownKey(t *testing.T) {
	path := writeTempConfig(t, "NOT_A_REAL_KEY=1\n")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadRejectsMalformedLine(t *testing.T) {
	path := writeTempConfig(t, "THIS_HAS_NO_EQUALS\n")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadRejectsInvalidSampleRate(t *testing.T) {
	path := writeTempConfig(t, "MQTT_BROKER=tcp://x:1883\nSAMPLE_RATE_HZ=50\n")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadRejectsEqualControllerIDs(t *testing.T) {
	path := writeTempConfig(t, "MQTT_BROKER=tcp://x:1883\nCONTROLLER_A=4\nCONTROLLER_B=4\n")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadRejectsNonPowerOfTwoRingCapacity(t *testing.T) {
	path := writeTempConfig(t, "MQTT_BROKER=tcp://x:1883\nRING_CAPACITY=1000\n")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadRejectsRingCapacityBelowFourBatches(t *testing.T) {
	path := writeTempConfig(t, "MQTT_BROKER=tcp://x:1883\nBATCH_MAX=100\nRING_CAPACITY=256\n")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestInitGlobalOnlyAppliesFirstCall(t *testing.T) {
	pathA := writeTempConfig(t, "MQTT_BROKER=tcp://a:1883\n")
	pathB := writeTempConfig(t, "MQTT_BROKER=tcp://b:1883\n")

	require.NoError(t, InitGlobal(pathA))
	_ = InitGlobal(pathB)

	assert.Equal(t, "tcp://a:1883", Get().MQTTBroker)
}
