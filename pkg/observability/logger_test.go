package observability

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/praetorian-inc/panscan/pkg/config"
)

func setupTestLogger(t *testing.T, cfg config.LoggerConfig) *bytes.Buffer {
	t.Helper()
	ResetForTest()
	t.Cleanup(ResetForTest)

	buf := new(bytes.Buffer)
	Initialize(cfg, zapcore.AddSync(buf))
	return buf
}

func TestInitialize_JSON(t *testing.T) {
	buf := setupTestLogger(t, config.LoggerConfig{Level: "info", Format: "json"})

	GetLogger().Warn("cannot open", zap.String("path", "/secret"))
	GetLogger().Debug("hidden")
	Sync()

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry), "one JSON entry")
	assert.Equal(t, "WARN", entry["level"])
	assert.Equal(t, "panscan", entry["logger"])
	assert.Equal(t, "/secret", entry["path"])
}

func TestInitialize_Console(t *testing.T) {
	buf := setupTestLogger(t, config.LoggerConfig{Level: "debug", Format: "console"})

	DebugLogger{Logger: GetLogger()}.Log("loaded %d rules", 8)

	assert.Contains(t, buf.String(), "loaded 8 rules")
	assert.Contains(t, buf.String(), "DEBUG")
}

func TestInitialize_Once(t *testing.T) {
	first := setupTestLogger(t, config.LoggerConfig{Level: "info", Format: "json"})
	second := new(bytes.Buffer)
	Initialize(config.LoggerConfig{Level: "info", Format: "json"}, zapcore.AddSync(second))

	GetLogger().Info("hello")
	assert.NotEmpty(t, first.String())
	assert.Empty(t, second.String())
}

func TestInitialize_BadLevelFallsBackToWarn(t *testing.T) {
	buf := setupTestLogger(t, config.LoggerConfig{Level: "chatty", Format: "json"})

	GetLogger().Info("dropped")
	GetLogger().Warn("kept")
	assert.NotContains(t, buf.String(), "dropped")
	assert.Contains(t, buf.String(), "kept")
}

func TestInitialize_LogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "panscan.log")
	setupTestLogger(t, config.LoggerConfig{Level: "info", Format: "console", LogFile: path, MaxSize: 1})

	GetLogger().Info("to file", zap.Int("files", 3))
	Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"files":3`)
}

func TestGetLogger_BeforeInit(t *testing.T) {
	ResetForTest()
	assert.NotNil(t, GetLogger())
	Sync()
}
