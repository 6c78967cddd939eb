package meta

import (
	"context"
	"database/sql"

	"github.com/pingcap/log"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	derrors "github.com/hanfei1991/distddl/pkg/errors"
	ormModel "github.com/hanfei1991/distddl/pkg/meta/model"
	"github.com/hanfei1991/distddl/pkg/sqlutil"
)

var globalModels = []interface{}{
	&ormModel.DistObject{},
	&ormModel.DistNode{},
}

// MetaOpsClient owns the connection to the coordinator database, where the
// catalog, the distributed-object registry and the node-membership table live
// side by side, so that one transaction covers all of them.
type MetaOpsClient struct {
	// gorm claim to be thread safe
	db   *gorm.DB
	impl *sql.DB
}

// NewMetaOpsClient connects to the coordinator database described by sc.
func NewMetaOpsClient(sc sqlutil.StoreConfig, conf sqlutil.DBConfig) (*MetaOpsClient, error) {
	sqlDB, err := sqlutil.NewSQLDB("pgx", sqlutil.GenerateDSN(sc, conf), conf)
	if err != nil {
		return nil, err
	}

	cli, err := newMetaOpsClient(postgres.New(postgres.Config{Conn: sqlDB}), sqlDB)
	if err != nil {
		sqlDB.Close()
	}
	return cli, err
}

func newMetaOpsClient(dialector gorm.Dialector, sqlDB *sql.DB) (*MetaOpsClient, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
	})
	if err != nil {
		log.L().Error("create gorm client fail", zap.Error(err))
		return nil, derrors.ErrMetaNewClientFail.Wrap(err).GenWithStackByArgs()
	}

	return &MetaOpsClient{
		db:   db,
		impl: sqlDB,
	}, nil
}

// Initialize will create all related tables in SQL backend
func (c *MetaOpsClient) Initialize(ctx context.Context) error {
	if err := c.db.WithContext(ctx).AutoMigrate(globalModels...); err != nil {
		return derrors.ErrMetaOpFail.Wrap(err).GenWithStackByArgs()
	}
	return nil
}

// DB returns the gorm handle outside of any transaction.
func (c *MetaOpsClient) DB() *gorm.DB {
	return c.db
}

// Transaction runs fn in a database transaction. The transaction commits iff
// fn returns nil.
func (c *MetaOpsClient) Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return c.db.WithContext(ctx).Transaction(fn)
}

func (c *MetaOpsClient) Close() error {
	if c.impl != nil {
		return c.impl.Close()
	}
	return nil
}
