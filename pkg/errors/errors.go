package errors

import (
	"github.com/pingcap/errors"
)

// all distddl errors
var (
	// coordinator related errors
	ErrNotCoordinator = errors.Normalize(
		"operation is not allowed on this node, %s can only be done via the coordinator node",
		errors.RFCCodeText("DDLPROP:ErrNotCoordinator"),
	)
	ErrParallelConflict = errors.Normalize(
		"cannot run %s command because there was a parallel operation on a distributed table in the transaction; "+
			"when running a distributed %s command all operations must use a single connection per node to ensure consistency; "+
			"try re-running the transaction with \"SET LOCAL distddl.multi_shard_modify_mode TO 'sequential';\"",
		errors.RFCCodeText("DDLPROP:ErrParallelConflict"),
	)
	ErrUndefinedSchema = errors.Normalize(
		"no schema has been selected to create in",
		errors.RFCCodeText("DDLPROP:ErrUndefinedSchema"),
	)
	ErrInvalidVersion = errors.Normalize(
		"no available version found for %s %s",
		errors.RFCCodeText("DDLPROP:ErrInvalidVersion"),
	)
	ErrVersionIncompatible = errors.Normalize(
		"specified version incompatible with loaded library: loaded library requires %s, but %s was specified",
		errors.RFCCodeText("DDLPROP:ErrVersionIncompatible"),
	)
	ErrUnknownObject = errors.Normalize(
		"%s \"%s\" does not exist",
		errors.RFCCodeText("DDLPROP:ErrUnknownObject"),
	)
	ErrUnsupportedStatement = errors.Normalize(
		"statement type %T is not supported",
		errors.RFCCodeText("DDLPROP:ErrUnsupportedStatement"),
	)
	ErrUnsupportedObjectClass = errors.Normalize(
		"cannot generate ddl for object class %s",
		errors.RFCCodeText("DDLPROP:ErrUnsupportedObjectClass"),
	)
	ErrEmptyObjectList = errors.Normalize(
		"%s needs at least one object name",
		errors.RFCCodeText("DDLPROP:ErrEmptyObjectList"),
	)
	ErrUnsupportedRoleOption = errors.Normalize(
		"unsupported role option %s",
		errors.RFCCodeText("DDLPROP:ErrUnsupportedRoleOption"),
	)
	ErrDependencyCycle = errors.Normalize(
		"dependency cycle detected at %s",
		errors.RFCCodeText("DDLPROP:ErrDependencyCycle"),
	)

	// transport related errors
	ErrRemoteExecutionFailure = errors.Normalize(
		"failed to execute ddl job %s on worker nodes",
		errors.RFCCodeText("DDLPROP:ErrRemoteExecutionFailure"),
	)
	ErrRemoteConnectFail = errors.Normalize(
		"failed to connect to worker node %s",
		errors.RFCCodeText("DDLPROP:ErrRemoteConnectFail"),
	)
	ErrRemoteSessionClosed = errors.Normalize(
		"remote session has already been finished",
		errors.RFCCodeText("DDLPROP:ErrRemoteSessionClosed"),
	)
	ErrRemoteFinishFail = errors.Normalize(
		"failed to %s remote transactions",
		errors.RFCCodeText("DDLPROP:ErrRemoteFinishFail"),
	)
	ErrNoActiveWorker = errors.Normalize(
		"no active worker node found",
		errors.RFCCodeText("DDLPROP:ErrNoActiveWorker"),
	)

	// meta store related errors
	ErrMetaNewClientFail = errors.Normalize(
		"create meta client fail",
		errors.RFCCodeText("DDLPROP:ErrMetaNewClientFail"),
	)
	ErrMetaOpFail = errors.Normalize(
		"meta operation fail",
		errors.RFCCodeText("DDLPROP:ErrMetaOpFail"),
	)
	ErrMetaEntryNotFound = errors.Normalize(
		"meta entry not found",
		errors.RFCCodeText("DDLPROP:ErrMetaEntryNotFound"),
	)
	ErrNodeNotFound = errors.Normalize(
		"worker node %s:%d not found",
		errors.RFCCodeText("DDLPROP:ErrNodeNotFound"),
	)

	// catalog related errors
	ErrCatalogOpFail = errors.Normalize(
		"catalog operation fail",
		errors.RFCCodeText("DDLPROP:ErrCatalogOpFail"),
	)

	// config related errors
	ErrConfigDecodeFile = errors.Normalize(
		"decode config file failed",
		errors.RFCCodeText("DDLPROP:ErrConfigDecodeFile"),
	)
	ErrConfigUnknownItem = errors.Normalize(
		"unknown config item: %s",
		errors.RFCCodeText("DDLPROP:ErrConfigUnknownItem"),
	)
	ErrConfigInvalid = errors.Normalize(
		"invalid config: %s",
		errors.RFCCodeText("DDLPROP:ErrConfigInvalid"),
	)

	// cli related errors
	ErrInvalidArgument = errors.Normalize(
		"invalid argument: %s",
		errors.RFCCodeText("DDLPROP:ErrInvalidArgument"),
	)
)
