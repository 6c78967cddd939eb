package transport

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/hanfei1991/distddl/model"
	derrors "github.com/hanfei1991/distddl/pkg/errors"
	"github.com/hanfei1991/distddl/pkg/sqlutil"
)

// Conn is one connection to a worker node.
type Conn interface {
	Exec(ctx context.Context, sql string) error
	Close(ctx context.Context) error
}

// Dialer opens connections to worker nodes.
type Dialer interface {
	Dial(ctx context.Context, node model.WorkerNode) (Conn, error)
}

// Credentials are used to log into every worker node.
type Credentials struct {
	User     string `toml:"user" json:"user"`
	Password string `toml:"password" json:"-"`
	Database string `toml:"database" json:"database"`
}

// PgxDialer dials worker nodes with pgx.
type PgxDialer struct {
	creds    Credentials
	timeouts TimeoutConfig
}

func NewPgxDialer(creds Credentials, timeouts TimeoutConfig) *PgxDialer {
	return &PgxDialer{
		creds:    creds,
		timeouts: timeouts.Adjust(),
	}
}

func (d *PgxDialer) connConfig(node model.WorkerNode) (*pgx.ConnConfig, error) {
	dbConf := sqlutil.NewDefaultDBConfig()
	dbConf.DialTimeout = d.timeouts.DialTimeout
	dsn := sqlutil.GenerateDSN(sqlutil.StoreConfig{
		Host:     node.Host,
		Port:     node.Port,
		User:     d.creds.User,
		Password: d.creds.Password,
		Database: d.creds.Database,
	}, dbConf)
	cfg, err := pgx.ParseConfig(dsn)
	if err != nil {
		return nil, derrors.ErrRemoteConnectFail.Wrap(err).GenWithStackByArgs(node.Addr())
	}
	return cfg, nil
}

// Dial implements Dialer.
func (d *PgxDialer) Dial(ctx context.Context, node model.WorkerNode) (Conn, error) {
	cfg, err := d.connConfig(node)
	if err != nil {
		return nil, err
	}
	conn, err := pgx.ConnectConfig(ctx, cfg)
	if err != nil {
		return nil, derrors.ErrRemoteConnectFail.Wrap(err).GenWithStackByArgs(node.Addr())
	}
	return &pgxConn{conn: conn}, nil
}

type pgxConn struct {
	conn *pgx.Conn
}

func (c *pgxConn) Exec(ctx context.Context, sql string) error {
	// simple protocol, the commands carry no parameters
	_, err := c.conn.Exec(ctx, sql, pgx.QueryExecModeSimpleProtocol)
	return err
}

func (c *pgxConn) Close(ctx context.Context) error {
	return c.conn.Close(ctx)
}
