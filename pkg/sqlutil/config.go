package sqlutil

import "time"

const (
	defaultConnMaxIdleTime = 30 * time.Second
	defaultConnMaxLifeTime = 12 * time.Hour
	defaultMaxIdleConns    = 3
	defaultMaxOpenConns    = 10
	defaultDialTimeout     = 3 * time.Second
)

// refer to: https://pkg.go.dev/database/sql#SetConnMaxIdleTime
type DBConfig struct {
	DialTimeout     time.Duration `toml:"dial-timeout" json:"dial-timeout"`
	ConnMaxIdleTime time.Duration `toml:"conn-max-idle-time" json:"conn-max-idle-time"`
	ConnMaxLifeTime time.Duration `toml:"conn-max-life-time" json:"conn-max-life-time"`
	MaxIdleConns    int           `toml:"max-idle-conns" json:"max-idle-conns"`
	MaxOpenConns    int           `toml:"max-open-conns" json:"max-open-conns"`
}

func NewDefaultDBConfig() DBConfig {
	return DBConfig{
		DialTimeout:     defaultDialTimeout,
		ConnMaxIdleTime: defaultConnMaxIdleTime,
		ConnMaxLifeTime: defaultConnMaxLifeTime,
		MaxIdleConns:    defaultMaxIdleConns,
		MaxOpenConns:    defaultMaxOpenConns,
	}
}

// StoreConfig locates the coordinator database that holds the catalog and the
// distributed metadata tables.
type StoreConfig struct {
	Host     string `toml:"host" json:"host"`
	Port     int    `toml:"port" json:"port"`
	User     string `toml:"user" json:"user"`
	Password string `toml:"password" json:"-"`
	Database string `toml:"database" json:"database"`
}
