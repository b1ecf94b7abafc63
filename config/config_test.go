package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestNewConfig 测试创建默认配置
func TestNewConfig(t *testing.T) {
	cfg := NewConfig()
	require.NotNil(t, cfg)

	err := cfg.Validate()
	assert.NoError(t, err)

	t.Log("✅ NewConfig 测试通过")
}

// TestSecurityConfig 测试安全配置
func TestSecurityConfig(t *testing.T) {
	t.Run("Default", func(t *testing.T) {
		cfg := DefaultSecurityConfig()
		assert.Equal(t, PolicyAcceptAny, cfg.Policy)
		assert.NoError(t, cfg.Validate())
	})

	t.Run("PinnedWithoutFingerprints", func(t *testing.T) {
		cfg := DefaultSecurityConfig()
		cfg.Policy = PolicyPinned
		assert.Error(t, cfg.Validate())

		cfg.PinnedFingerprints = []string{"abc"}
		assert.NoError(t, cfg.Validate())
	})

	t.Run("TrustedRootWithoutFile", func(t *testing.T) {
		cfg := DefaultSecurityConfig()
		cfg.Policy = PolicyTrustedRoot
		assert.Error(t, cfg.Validate())
	})

	t.Run("UnknownPolicy", func(t *testing.T) {
		cfg := DefaultSecurityConfig()
		cfg.Policy = "trust-me"
		assert.Error(t, cfg.Validate())
	})

	t.Run("HalfCertPair", func(t *testing.T) {
		cfg := DefaultSecurityConfig()
		cfg.CertFile = "node.crt"
		assert.Error(t, cfg.Validate())
	})

	t.Log("✅ SecurityConfig 测试通过")
}

// TestConnectionConfig 测试连接配置
func TestConnectionConfig(t *testing.T) {
	t.Run("Default", func(t *testing.T) {
		cfg := DefaultConnectionConfig()
		assert.Equal(t, 64*1024, cfg.MaxFrameSize)
		assert.Equal(t, 5*time.Second, cfg.HeartbeatPeriod.Duration())
		assert.NoError(t, cfg.Validate())
	})

	t.Run("ReadTimeoutExceedsHeartbeat", func(t *testing.T) {
		cfg := DefaultConnectionConfig()
		cfg.ReadTimeout = Duration(10 * time.Second)
		assert.Error(t, cfg.Validate())
	})

	t.Run("ZeroFrameSize", func(t *testing.T) {
		cfg := DefaultConnectionConfig()
		cfg.MaxFrameSize = 0
		assert.Error(t, cfg.Validate())
	})
}

// TestClientConfig 测试客户端配置
func TestClientConfig(t *testing.T) {
	cfg := DefaultClientConfig()
	assert.Equal(t, 3, cfg.MaxTries)
	assert.Zero(t, cfg.RetryDelay)
	assert.NoError(t, cfg.Validate())

	cfg.MaxTries = 0
	assert.Error(t, cfg.Validate())
}

// TestRunnerConfig 测试 Runner 配置
func TestRunnerConfig(t *testing.T) {
	cfg := DefaultRunnerConfig()
	assert.NotEmpty(t, cfg.Platform)
	assert.Positive(t, cfg.MaxTasks)
	assert.NoError(t, cfg.Validate())

	cfg.MaxTasks = -1
	assert.Error(t, cfg.Validate())
}

// TestDuration 测试 Duration 的 JSON / YAML 解析
func TestDuration(t *testing.T) {
	t.Run("JSONString", func(t *testing.T) {
		var d Duration
		require.NoError(t, d.UnmarshalJSON([]byte(`"1m30s"`)))
		assert.Equal(t, 90*time.Second, d.Duration())
	})

	t.Run("JSONNumber", func(t *testing.T) {
		var d Duration
		require.NoError(t, d.UnmarshalJSON([]byte(`1000000`)))
		assert.Equal(t, time.Millisecond, d.Duration())
	})

	t.Run("JSONInvalid", func(t *testing.T) {
		var d Duration
		assert.Error(t, d.UnmarshalJSON([]byte(`"soon"`)))
	})

	t.Run("Marshal", func(t *testing.T) {
		data, err := Duration(5 * time.Second).MarshalJSON()
		require.NoError(t, err)
		assert.Equal(t, `"5s"`, string(data))
	})
}

// TestLoad 测试从文件加载配置
func TestLoad(t *testing.T) {
	dir := t.TempDir()

	t.Run("YAML", func(t *testing.T) {
		path := filepath.Join(dir, "runner.yaml")
		content := `
runner:
  label: gpu
  max_tasks: 4
  max_queue_length: -1
  tags: [cuda, fp16]
connection:
  heartbeat_period: 2s
  read_timeout: 50ms
client:
  retry_delay: 250ms
`
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, "gpu", cfg.Runner.Label)
		assert.Equal(t, 4, cfg.Runner.MaxTasks)
		assert.Equal(t, -1, cfg.Runner.MaxQueueLength)
		assert.Equal(t, []string{"cuda", "fp16"}, cfg.Runner.Tags)
		assert.Equal(t, 2*time.Second, cfg.Connection.HeartbeatPeriod.Duration())
		assert.Equal(t, 250*time.Millisecond, cfg.Client.RetryDelay.Duration())
		// 未指定字段保持默认
		assert.Equal(t, 3, cfg.Client.MaxTries)
	})

	t.Run("JSON", func(t *testing.T) {
		path := filepath.Join(dir, "client.json")
		content := `{"client": {"max_tries": 5, "mediator_addr": "127.0.0.1:7401"}}`
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, 5, cfg.Client.MaxTries)
		assert.Equal(t, "127.0.0.1:7401", cfg.Client.MediatorAddr)
	})

	t.Run("UnknownField", func(t *testing.T) {
		_, err := FromJSON([]byte(`{"client": {"max_retries": 5}}`))
		assert.Error(t, err)

		_, err = FromYAML([]byte("client:\n  max_retries: 5\n"))
		assert.Error(t, err)
	})

	t.Run("Invalid", func(t *testing.T) {
		_, err := FromYAML([]byte("security:\n  policy: pinned\n"))
		assert.Error(t, err)
	})

	t.Run("Missing", func(t *testing.T) {
		_, err := Load(filepath.Join(dir, "nope.yaml"))
		assert.Error(t, err)
	})

	t.Log("✅ Load 测试通过")
}

// TestValidateAndFix 测试自动修复
func TestValidateAndFix(t *testing.T) {
	cfg := NewConfig()
	cfg.Client.MaxTries = 0
	cfg.Client.RetryDelay = Duration(-time.Second)
	cfg.Runner.MaxQueueLength = -7
	cfg.Connection.ReadTimeout = Duration(time.Minute)

	fixed, err := ValidateAndFix(cfg)
	require.NoError(t, err)
	assert.Equal(t, 3, fixed.Client.MaxTries)
	assert.Zero(t, fixed.Client.RetryDelay)
	assert.Equal(t, -1, fixed.Runner.MaxQueueLength)
	assert.Equal(t, 100*time.Millisecond, fixed.Connection.ReadTimeout.Duration())

	assert.Error(t, ValidateAll(nil))

	t.Log("✅ ValidateAndFix 测试通过")
}
