package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testYAML = `
server:
  url: wss://example.test/showdown/websocket
login:
  username: testbot
  attempts: 5
  retry_delay: 10s
rooms:
  - lobby
  - techcode
log:
  level: debug
`

func writeTestConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "showdown.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadAndGet(t *testing.T) {
	cfg := New(WithConfigFile(writeTestConfig(t, testYAML)))
	require.NoError(t, cfg.Load())
	defer cfg.Close()

	assert.Equal(t, "wss://example.test/showdown/websocket", cfg.GetString("server.url"))
	assert.Equal(t, "testbot", cfg.GetString("login.username"))
	assert.Equal(t, 5, cfg.GetInt("login.attempts"))
	assert.Equal(t, 10*time.Second, cfg.GetDuration("login.retry_delay"))
	assert.Equal(t, []string{"lobby", "techcode"}, cfg.GetStringSlice("rooms"))
	assert.True(t, cfg.IsSet("log.level"))
	assert.False(t, cfg.IsSet("log.missing"))
}

func TestLoadMissingFile(t *testing.T) {
	cfg := New(WithConfigFile(filepath.Join(t.TempDir(), "absent.yaml")))
	err := cfg.Load()
	require.Error(t, err)
	// viper 对显式指定的文件返回底层 IO 错误而非 NotFound
	assert.ErrorIs(t, err, ErrConfigReadFailed)
}

func TestLoadByNameNotFound(t *testing.T) {
	cfg := New(
		WithConfigName("no-such-config"),
		WithConfigType("yaml"),
		WithConfigPaths(t.TempDir()),
	)
	err := cfg.Load()
	assert.ErrorIs(t, err, ErrConfigNotFound)
}

func TestDefaults(t *testing.T) {
	cfg := New(
		WithConfigFile(writeTestConfig(t, testYAML)),
		WithDefaults(map[string]any{
			"login.attempts": 10,
			"throttle":       "600ms",
		}),
	)
	require.NoError(t, cfg.Load())

	// 文件值覆盖默认值
	assert.Equal(t, 5, cfg.GetInt("login.attempts"))
	// 文件没有的键用默认值
	assert.Equal(t, 600*time.Millisecond, cfg.GetDuration("throttle"))
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("SHOWDOWN_LOGIN_USERNAME", "envbot")

	cfg := New(
		WithConfigFile(writeTestConfig(t, testYAML)),
		WithEnvPrefix("SHOWDOWN"),
		WithEnvKeyReplacer(strings.NewReplacer(".", "_")),
	)
	require.NoError(t, cfg.Load())

	assert.Equal(t, "envbot", cfg.GetString("login.username"))
}

func TestUnmarshal(t *testing.T) {
	type loginConfig struct {
		Username   string        `mapstructure:"username"`
		Attempts   int           `mapstructure:"attempts"`
		RetryDelay time.Duration `mapstructure:"retry_delay"`
	}
	type fullConfig struct {
		Login loginConfig `mapstructure:"login"`
		Rooms []string    `mapstructure:"rooms"`
	}

	cfg := New(WithConfigFile(writeTestConfig(t, testYAML)))
	require.NoError(t, cfg.Load())

	var fc fullConfig
	require.NoError(t, cfg.Unmarshal(&fc))
	assert.Equal(t, "testbot", fc.Login.Username)
	assert.Equal(t, 5, fc.Login.Attempts)
	assert.Equal(t, 10*time.Second, fc.Login.RetryDelay)
	assert.Equal(t, []string{"lobby", "techcode"}, fc.Rooms)

	var lc loginConfig
	require.NoError(t, cfg.UnmarshalKey("login", &lc))
	assert.Equal(t, "testbot", lc.Username)
}

func TestSetAndAllSettings(t *testing.T) {
	cfg := New(WithConfigFile(writeTestConfig(t, testYAML)))
	require.NoError(t, cfg.Load())

	cfg.Set("runtime.flag", true)
	assert.True(t, cfg.GetBool("runtime.flag"))
	assert.Contains(t, cfg.AllSettings(), "server")
}

func TestStartStopWatch(t *testing.T) {
	cfg := New(WithConfigFile(writeTestConfig(t, testYAML)))
	require.NoError(t, cfg.Load())
	defer cfg.Close()

	require.NoError(t, cfg.StartWatch())
	// 重复启动是空操作
	require.NoError(t, cfg.StartWatch())
	cfg.StopWatch()
}
