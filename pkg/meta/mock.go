package meta

import (
	"context"
	"fmt"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/pingcap/log"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite" // Sqlite driver based on GGO

	derrors "github.com/hanfei1991/distddl/pkg/errors"
)

// NewMockClient creates a MetaOpsClient on a private in-memory sqlite
// database with all tables created.
func NewMockClient() (*MetaOpsClient, error) {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.New().String())
	cli, err := newMetaOpsClient(sqlite.Open(dsn), nil)
	if err != nil {
		return nil, err
	}

	// one connection keeps the in-memory database alive and serializes
	// transactions the way row locks would
	sqlDB, err := cli.db.DB()
	if err != nil {
		return nil, derrors.ErrMetaNewClientFail.Wrap(err).GenWithStackByArgs()
	}
	sqlDB.SetMaxOpenConns(1)
	cli.impl = sqlDB

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := cli.Initialize(ctx); err != nil {
		cli.Close()
		return nil, err
	}
	return cli, nil
}

// NewMockPostgresClient creates a MetaOpsClient speaking the postgres dialect
// to a sqlmock connection.
func NewMockPostgresClient() (*MetaOpsClient, sqlmock.Sqlmock, error) {
	db, mock, err := sqlmock.New()
	if err != nil {
		log.L().Error("create sql mock fail", zap.Error(err))
		return nil, nil, derrors.ErrMetaNewClientFail.Wrap(err).GenWithStackByArgs()
	}

	cli, err := newMetaOpsClient(postgres.New(postgres.Config{Conn: db}), db)
	if err != nil {
		log.L().Error("create meta ops client fail", zap.Error(err))
		return nil, nil, err
	}
	return cli, mock, nil
}
