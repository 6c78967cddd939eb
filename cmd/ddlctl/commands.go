package main

import (
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hanfei1991/distddl/coordinator"
	"github.com/hanfei1991/distddl/model"
	derrors "github.com/hanfei1991/distddl/pkg/errors"
)

type createExtensionFlags struct {
	schema      string
	version     string
	ifNotExists bool
}

func (f *createExtensionFlags) stmt(name string) *model.CreateObjectStmt {
	var opts model.OptionList
	if f.schema != "" {
		opts = append(opts, model.Option{Name: model.OptionSchema, Value: model.StringValue(f.schema)})
	}
	if f.version != "" {
		opts = append(opts, model.Option{Name: model.OptionNewVersion, Value: model.StringValue(f.version)})
	}
	return &model.CreateObjectStmt{
		Kind:        model.KindExtension,
		Name:        name,
		Options:     opts,
		IfNotExists: f.ifNotExists,
	}
}

func newCreateExtensionCmd(cliCtx *cliContext) *cobra.Command {
	flags := &createExtensionFlags{}
	cmd := &cobra.Command{
		Use:          "create-extension <name>",
		Short:        "creates an extension on the coordinator and every active worker",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cliCtx.runStatement(cmd.Context(), flags.stmt(args[0]))
		},
	}
	f := cmd.Flags()
	f.StringVar(&flags.schema, "schema", "", "schema of the extension, the first existing search-path entry by default")
	f.StringVar(&flags.version, "version", "", "version to install, the latest available by default")
	f.BoolVar(&flags.ifNotExists, "if-not-exists", false, "do nothing if the extension exists")
	return cmd
}

type alterExtensionFlags struct {
	updateTo  string
	setSchema string
}

func (f *alterExtensionFlags) stmt(name string) (model.Statement, error) {
	if f.setSchema != "" {
		if f.updateTo != "" {
			return nil, derrors.ErrInvalidArgument.GenWithStackByArgs("--update-to and --set-schema")
		}
		return &model.AlterObjectSchemaStmt{
			Kind:      model.KindExtension,
			Name:      name,
			NewSchema: f.setSchema,
		}, nil
	}
	var opts model.OptionList
	if f.updateTo != "" {
		opts = append(opts, model.Option{Name: model.OptionNewVersion, Value: model.StringValue(f.updateTo)})
	}
	return &model.AlterObjectVersionStmt{
		Kind:    model.KindExtension,
		Name:    name,
		Options: opts,
	}, nil
}

func newAlterExtensionCmd(cliCtx *cliContext) *cobra.Command {
	flags := &alterExtensionFlags{}
	cmd := &cobra.Command{
		Use:   "alter-extension <name>",
		Short: "updates an extension or moves it to another schema",
		Long: `
Without --set-schema the extension is updated, to --update-to when given and
to the default version otherwise.
`,
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			stmt, err := flags.stmt(args[0])
			if err != nil {
				return err
			}
			return cliCtx.runStatement(cmd.Context(), stmt)
		},
	}
	f := cmd.Flags()
	f.StringVar(&flags.updateTo, "update-to", "", "target version of the update")
	f.StringVar(&flags.setSchema, "set-schema", "", "new schema of the extension")
	return cmd
}

type dropExtensionFlags struct {
	cascade  bool
	ifExists bool
}

func (f *dropExtensionFlags) stmt(names []string) *model.DropObjectsStmt {
	behavior := model.DropRestrict
	if f.cascade {
		behavior = model.DropCascade
	}
	return &model.DropObjectsStmt{
		Kind:      model.KindExtension,
		Names:     names,
		Behavior:  behavior,
		MissingOK: f.ifExists,
	}
}

func newDropExtensionCmd(cliCtx *cliContext) *cobra.Command {
	flags := &dropExtensionFlags{}
	cmd := &cobra.Command{
		Use:          "drop-extension <name>...",
		Short:        "drops extensions, the distributed ones on the workers too",
		Args:         cobra.MinimumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cliCtx.runStatement(cmd.Context(), flags.stmt(args))
		},
	}
	f := cmd.Flags()
	f.BoolVar(&flags.cascade, "cascade", false, "drop the objects depending on the extensions")
	f.BoolVar(&flags.ifExists, "if-exists", false, "do not fail on missing extensions")
	return cmd
}

type alterRoleFlags struct {
	password string
	options  []string
}

// stmt builds the ALTER ROLE statement. Options are name=value pairs, values
// that parse as integers are integers.
func (f *alterRoleFlags) stmt(role string, passwordSet bool) (*model.AlterRoleStmt, error) {
	var opts model.OptionList
	for _, kv := range f.options {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || name == "" {
			return nil, derrors.ErrInvalidArgument.GenWithStackByArgs(kv)
		}
		v := model.StringValue(value)
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
			v = model.IntValue(i)
		}
		opts = append(opts, model.Option{Name: name, Value: v})
	}
	if passwordSet {
		opts = append(opts, model.Option{Name: model.OptionPassword, Value: model.StringValue(f.password)})
	}
	return &model.AlterRoleStmt{RoleName: role, Options: opts}, nil
}

func newAlterRoleCmd(cliCtx *cliContext) *cobra.Command {
	flags := &alterRoleFlags{}
	cmd := &cobra.Command{
		Use:   "alter-role <role>",
		Short: "alters a role, on the workers too when role propagation is enabled",
		Long: `
Role attributes are given as --option name=value, e.g. --option canlogin=1
--option connectionlimit=10. The password is shipped to the workers in its
encrypted form.
`,
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			stmt, err := flags.stmt(args[0], cmd.Flags().Changed("password"))
			if err != nil {
				return err
			}
			return cliCtx.runStatement(cmd.Context(), stmt)
		},
	}
	f := cmd.Flags()
	f.StringVar(&flags.password, "password", "", "new password of the role")
	f.StringArrayVar(&flags.options, "option", nil, "role attribute as name=value, repeatable")
	return cmd
}

func parseNodeAddr(addr string) (string, int, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return "", 0, derrors.ErrInvalidArgument.Wrap(err).GenWithStackByArgs(addr)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port <= 0 || port > 65535 || host == "" {
		return "", 0, derrors.ErrInvalidArgument.GenWithStackByArgs(addr)
	}
	return host, port, nil
}

func newAddNodeCmd(cliCtx *cliContext) *cobra.Command {
	return &cobra.Command{
		Use:          "add-node <host:port>",
		Short:        "registers an inactive worker node",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			host, port, err := parseNodeAddr(args[0])
			if err != nil {
				return err
			}
			return cliCtx.withCoordinator(cmd.Context(), func(coord *coordinator.Coordinator) error {
				node, err := coord.AddNode(cmd.Context(), host, port)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "node %d added: %s\n", node.ID, node.Addr())
				return nil
			})
		},
	}
}

func newActivateNodeCmd(cliCtx *cliContext) *cobra.Command {
	return &cobra.Command{
		Use:   "activate-node <host:port>",
		Short: "recreates the distributed objects on a worker and activates it",
		Long: `
Every distributed object is recreated on the node in dependency order, followed
by the role attributes when role propagation is enabled. The node then receives
every later propagated statement.
`,
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			host, port, err := parseNodeAddr(args[0])
			if err != nil {
				return err
			}
			return cliCtx.withCoordinator(cmd.Context(), func(coord *coordinator.Coordinator) error {
				return coord.ActivateNode(cmd.Context(), host, port)
			})
		},
	}
}
