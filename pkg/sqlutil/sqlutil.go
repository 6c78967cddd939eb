package sqlutil

import (
	"database/sql"
	"net"
	"net/url"
	"strconv"

	"github.com/pingcap/log"
	"go.uber.org/zap"

	// register the "pgx" database/sql driver
	_ "github.com/jackc/pgx/v5/stdlib"

	derrors "github.com/hanfei1991/distddl/pkg/errors"
)

// GenerateDSN builds a postgres:// url for sc and adds the connection
// parameters of conf.
func GenerateDSN(sc StoreConfig, conf DBConfig) string {
	u := url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(sc.Host, strconv.Itoa(sc.Port)),
		Path:   "/" + sc.Database,
	}
	if sc.User != "" {
		if sc.Password != "" {
			u.User = url.UserPassword(sc.User, sc.Password)
		} else {
			u.User = url.User(sc.User)
		}
	}
	q := url.Values{}
	if conf.DialTimeout > 0 {
		q.Set("connect_timeout", strconv.Itoa(int(conf.DialTimeout.Seconds())))
	}
	q.Set("application_name", "distddl")
	u.RawQuery = q.Encode()
	return u.String()
}

// NewSQLDB return sql.DB for specified driver and dsn
func NewSQLDB(driver string, dsn string, conf DBConfig) (*sql.DB, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		log.L().Error("open dsn fail", zap.Any("config", conf), zap.Error(err))
		return nil, derrors.ErrMetaOpFail.Wrap(err).GenWithStackByArgs()
	}

	db.SetConnMaxIdleTime(conf.ConnMaxIdleTime)
	db.SetConnMaxLifetime(conf.ConnMaxLifeTime)
	db.SetMaxIdleConns(conf.MaxIdleConns)
	db.SetMaxOpenConns(conf.MaxOpenConns)
	return db, nil
}
