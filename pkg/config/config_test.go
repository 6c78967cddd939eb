package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	derrors "github.com/hanfei1991/distddl/pkg/errors"
)

const sampleConfig = `
log-level = "debug"
log-format = "json"

[meta-store]
host = "coordinator.local"
port = 6432
user = "admin"
database = "app"

[meta-store.db]
max-open-conns = 4

[propagation]
enable-dependency-creation = true
enable-alter-role-propagation = true
loaded-version = "1.2.0"
search-path = ["app", "public"]

[worker]
user = "ddl"
password = "secret"
database = "app"

[worker.timeouts]
dial-timeout = "10s"
exec-timeout = "2s"
`

func TestConfigFromFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "ddlctl.toml")
	require.Nil(t, os.WriteFile(path, []byte(sampleConfig), 0o600))

	cfg := NewConfig()
	require.Nil(t, cfg.ConfigFromFile(path))
	require.Nil(t, cfg.Adjust())

	require.Equal(t, "debug", cfg.LogLevel)
	require.Equal(t, "coordinator.local", cfg.MetaStore.Host)
	require.Equal(t, 6432, cfg.MetaStore.Port)
	require.Equal(t, 4, cfg.MetaStore.DB.MaxOpenConns)
	// untouched items keep their defaults
	require.Equal(t, 3, cfg.MetaStore.DB.MaxIdleConns)
	require.Equal(t, "distddl", cfg.Propagation.ManagementExtension)
	require.Equal(t, "ddl", cfg.Worker.User)
	require.Equal(t, 10*time.Second, cfg.Worker.Timeouts.DialTimeout)
	require.Equal(t, 11*time.Second, cfg.Worker.Timeouts.ExecTimeout)

	settings := cfg.Settings()
	require.True(t, settings.EnableDDLPropagation)
	require.True(t, settings.EnableAlterRolePropagation)
	require.Equal(t, []string{"app", "public"}, settings.SearchPath)
	require.Equal(t, "admin", settings.CurrentUser)
}

func TestConfigUnknownItem(t *testing.T) {
	t.Parallel()

	cfg := NewConfig()
	err := cfg.ConfigFromString("log-level = \"info\"\nunknown-item = 1\n")
	require.True(t, derrors.ErrConfigUnknownItem.Equal(err))
	require.Contains(t, err.Error(), "unknown-item")

	err = cfg.ConfigFromString("log-level = ")
	require.True(t, derrors.Is(err, derrors.ErrConfigDecodeFile))
}

func TestConfigAdjust(t *testing.T) {
	t.Parallel()

	cfg := NewConfig()
	cfg.LogFormat = "xml"
	require.True(t, derrors.Is(cfg.Adjust(), derrors.ErrConfigInvalid))

	cfg = NewConfig()
	cfg.MetaStore.Host = ""
	require.True(t, derrors.Is(cfg.Adjust(), derrors.ErrConfigInvalid))

	cfg = NewConfig()
	cfg.Propagation.SearchPath = nil
	cfg.Propagation.ManagementExtension = ""
	require.Nil(t, cfg.Adjust())
	require.Equal(t, []string{"$user", "public"}, cfg.Propagation.SearchPath)
	require.Equal(t, "distddl", cfg.Propagation.ManagementExtension)

	toml, err := cfg.Toml()
	require.Nil(t, err)
	require.Contains(t, toml, "[meta-store]")
	require.NotContains(t, cfg.String(), "password")
}
