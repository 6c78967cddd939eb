package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/pingcap/log"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hanfei1991/distddl/coordinator"
	"github.com/hanfei1991/distddl/model"
	"github.com/hanfei1991/distddl/pkg/catalog"
	"github.com/hanfei1991/distddl/pkg/config"
	"github.com/hanfei1991/distddl/pkg/meta"
	"github.com/hanfei1991/distddl/pkg/promutil"
	"github.com/hanfei1991/distddl/pkg/transport"
	"github.com/hanfei1991/distddl/pkg/txnctx"
)

const componentName = "ddlctl"

// cliContext is shared by every subcommand.
type cliContext struct {
	configFile string
	logLevel   string
	statusAddr string
	cfg        *config.Config
}

func newRootCmd() *cobra.Command {
	cliCtx := &cliContext{}
	rootCmd := &cobra.Command{
		Use:   componentName,
		Short: "propagates extension and role DDL from the coordinator to its workers",
		Long: `
ddlctl runs one DDL statement on the coordinator database and forwards it to
every active worker inside the same transaction, creating the missing
dependencies of the object on the workers first.
`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return cliCtx.loadConfig()
		},
	}
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cliCtx.configFile, "config", "", "path of the TOML config file")
	pf.StringVar(&cliCtx.logLevel, "log-level", "", "overrides log-level of the config file")
	pf.StringVar(&cliCtx.statusAddr, "status-addr", "", "serves /metrics on this address while the command runs")

	rootCmd.AddCommand(
		newCreateExtensionCmd(cliCtx),
		newAlterExtensionCmd(cliCtx),
		newDropExtensionCmd(cliCtx),
		newAlterRoleCmd(cliCtx),
		newAddNodeCmd(cliCtx),
		newActivateNodeCmd(cliCtx),
	)
	return rootCmd
}

func (c *cliContext) loadConfig() error {
	cfg := config.NewConfig()
	if c.configFile != "" {
		if err := cfg.ConfigFromFile(c.configFile); err != nil {
			return err
		}
	}
	if c.logLevel != "" {
		cfg.LogLevel = c.logLevel
	}
	if err := cfg.Adjust(); err != nil {
		return err
	}
	if err := cfg.InitLogger(); err != nil {
		return err
	}
	log.L().Debug("config loaded", zap.Stringer("config", cfg))
	c.cfg = cfg
	return nil
}

// withCoordinator connects to the coordinator database and runs fn with a
// Coordinator serving it.
func (c *cliContext) withCoordinator(ctx context.Context, fn func(*coordinator.Coordinator) error) error {
	cfg := c.cfg
	metaCli, err := meta.NewMetaOpsClient(cfg.MetaStore.StoreConfig, cfg.MetaStore.DB)
	if err != nil {
		return err
	}
	defer func() {
		if err := metaCli.Close(); err != nil {
			log.L().Warn("close meta client failed", zap.Error(err))
		}
	}()
	if err := metaCli.Initialize(ctx); err != nil {
		return err
	}

	node := fmt.Sprintf("%s:%d", cfg.MetaStore.Host, cfg.MetaStore.Port)
	factory := promutil.NewFactory4Component(componentName, node)
	defer promutil.UnregisterComponent(componentName)
	if c.statusAddr != "" {
		defer c.serveMetrics()()
	}

	coord := coordinator.New(
		coordinator.Options{
			Role:                model.RoleCoordinator,
			ManagementExtension: cfg.Propagation.ManagementExtension,
			LoadedVersion:       cfg.Propagation.LoadedVersion,
			Settings:            cfg.Settings(),
			Timeouts:            cfg.Worker.Timeouts,
		},
		metaCli,
		catalog.NewPGCatalog(),
		transport.NewPgxDialer(cfg.Worker.Credentials, cfg.Worker.Timeouts),
		factory,
	)
	return fn(coord)
}

// runStatement applies stmt locally and on the workers in one transaction.
func (c *cliContext) runStatement(ctx context.Context, stmt model.Statement) error {
	return c.withCoordinator(ctx, func(coord *coordinator.Coordinator) error {
		err := coord.RunInTxn(ctx, func(txn *txnctx.Txn) error {
			return coord.Execute(ctx, txn, stmt, coord.SQLApply)
		})
		if err != nil {
			log.L().Error("statement failed", zap.String("stmt", stmt.StmtName()), zap.Error(err))
			return err
		}
		log.L().Info("statement done", zap.String("stmt", stmt.StmtName()))
		return nil
	})
}

// serveMetrics starts the metrics endpoint and returns its stop function.
func (c *cliContext) serveMetrics() func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promutil.HTTPHandlerForMetric())
	srv := &http.Server{
		Addr:              c.statusAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.L().Warn("metrics server stopped", zap.String("addr", c.statusAddr), zap.Error(err))
		}
	}()
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.L().Warn("shutdown metrics server failed", zap.Error(err))
		}
	}
}
