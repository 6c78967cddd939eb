package config

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/pingcap/log"
	"go.uber.org/zap"

	derrors "github.com/hanfei1991/distddl/pkg/errors"
	"github.com/hanfei1991/distddl/pkg/sqlutil"
	"github.com/hanfei1991/distddl/pkg/transport"
	"github.com/hanfei1991/distddl/pkg/txnctx"
)

const (
	defaultLogLevel            = "info"
	defaultLogFormat           = "text"
	defaultManagementExtension = "distddl"
	defaultMetaStorePort       = 5432
)

// MetaStoreConfig locates the coordinator database.
type MetaStoreConfig struct {
	sqlutil.StoreConfig
	DB sqlutil.DBConfig `toml:"db" json:"db"`
}

// PropagationConfig holds the session defaults of every propagating
// transaction.
type PropagationConfig struct {
	EnableDependencyCreation   bool     `toml:"enable-dependency-creation" json:"enable-dependency-creation"`
	EnableAlterRolePropagation bool     `toml:"enable-alter-role-propagation" json:"enable-alter-role-propagation"`
	ManagementExtension        string   `toml:"management-extension" json:"management-extension"`
	LoadedVersion              string   `toml:"loaded-version" json:"loaded-version"`
	SearchPath                 []string `toml:"search-path" json:"search-path"`
	CurrentUser                string   `toml:"current-user" json:"current-user"`
}

// WorkerConfig describes how worker nodes are reached.
type WorkerConfig struct {
	transport.Credentials
	Timeouts transport.TimeoutConfig `toml:"timeouts" json:"timeouts"`
}

// Config is the configuration of ddlctl.
type Config struct {
	LogLevel  string `toml:"log-level" json:"log-level"`
	LogFile   string `toml:"log-file" json:"log-file"`
	LogFormat string `toml:"log-format" json:"log-format"`

	MetaStore   MetaStoreConfig   `toml:"meta-store" json:"meta-store"`
	Propagation PropagationConfig `toml:"propagation" json:"propagation"`
	Worker      WorkerConfig      `toml:"worker" json:"worker"`
}

// NewConfig returns a Config holding the defaults.
func NewConfig() *Config {
	settings := txnctx.DefaultSettings()
	return &Config{
		LogLevel:  defaultLogLevel,
		LogFormat: defaultLogFormat,
		MetaStore: MetaStoreConfig{
			StoreConfig: sqlutil.StoreConfig{
				Host: "127.0.0.1",
				Port: defaultMetaStorePort,
			},
			DB: sqlutil.NewDefaultDBConfig(),
		},
		Propagation: PropagationConfig{
			EnableDependencyCreation: settings.EnableDependencyCreation,
			ManagementExtension:      defaultManagementExtension,
			SearchPath:               settings.SearchPath,
		},
		Worker: WorkerConfig{
			Timeouts: transport.DefaultTimeoutConfig(),
		},
	}
}

func (c *Config) String() string {
	cfg, err := json.Marshal(c)
	if err != nil {
		log.L().Error("marshal to json", zap.Reflect("config", c), zap.Error(err))
	}
	return string(cfg)
}

// Toml returns TOML format representation of config.
func (c *Config) Toml() (string, error) {
	var b bytes.Buffer
	if err := toml.NewEncoder(&b).Encode(c); err != nil {
		log.L().Error("fail to marshal config to toml", zap.Error(err))
		return "", err
	}
	return b.String(), nil
}

// ConfigFromFile loads config from file. Unknown items are rejected.
func (c *Config) ConfigFromFile(path string) error {
	metaData, err := toml.DecodeFile(path, c)
	if err != nil {
		return derrors.ErrConfigDecodeFile.Wrap(err).GenWithStackByArgs()
	}
	return checkUndecoded(metaData)
}

// ConfigFromString loads config from TOML text.
func (c *Config) ConfigFromString(data string) error {
	metaData, err := toml.Decode(data, c)
	if err != nil {
		return derrors.ErrConfigDecodeFile.Wrap(err).GenWithStackByArgs()
	}
	return checkUndecoded(metaData)
}

func checkUndecoded(metaData toml.MetaData) error {
	undecoded := metaData.Undecoded()
	if len(undecoded) > 0 {
		var undecodedItems []string
		for _, item := range undecoded {
			undecodedItems = append(undecodedItems, item.String())
		}
		return derrors.ErrConfigUnknownItem.GenWithStackByArgs(strings.Join(undecodedItems, ","))
	}
	return nil
}

// Adjust fills defaults and validates the config.
func (c *Config) Adjust() error {
	if c.LogLevel == "" {
		c.LogLevel = defaultLogLevel
	}
	switch c.LogFormat {
	case "":
		c.LogFormat = defaultLogFormat
	case "text", "json":
	default:
		return derrors.ErrConfigInvalid.GenWithStackByArgs("log-format must be text or json")
	}
	if c.MetaStore.Host == "" {
		return derrors.ErrConfigInvalid.GenWithStackByArgs("meta-store host is empty")
	}
	if c.MetaStore.Port <= 0 {
		c.MetaStore.Port = defaultMetaStorePort
	}
	if c.Propagation.ManagementExtension == "" {
		c.Propagation.ManagementExtension = defaultManagementExtension
	}
	if len(c.Propagation.SearchPath) == 0 {
		c.Propagation.SearchPath = txnctx.DefaultSettings().SearchPath
	}
	c.Worker.Timeouts = c.Worker.Timeouts.Adjust()
	return nil
}

// Settings returns the session settings every transaction starts with.
func (c *Config) Settings() txnctx.Settings {
	settings := txnctx.DefaultSettings()
	settings.EnableDependencyCreation = c.Propagation.EnableDependencyCreation
	settings.EnableAlterRolePropagation = c.Propagation.EnableAlterRolePropagation
	settings.SearchPath = append([]string(nil), c.Propagation.SearchPath...)
	settings.CurrentUser = c.Propagation.CurrentUser
	if settings.CurrentUser == "" {
		settings.CurrentUser = c.MetaStore.User
	}
	return settings
}

// InitLogger replaces the global logger according to the log items.
func (c *Config) InitLogger() error {
	logger, props, err := log.InitLogger(&log.Config{
		Level:  c.LogLevel,
		Format: c.LogFormat,
		File: log.FileLogConfig{
			Filename: c.LogFile,
		},
	})
	if err != nil {
		return derrors.ErrConfigInvalid.Wrap(err).GenWithStackByArgs("log")
	}
	log.ReplaceGlobals(logger, props)
	return nil
}
