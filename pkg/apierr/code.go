package apierr

// Code is a machine-readable error code carried by library errors.
type Code string

// Usage errors.
const (
	CodeInvalidArgument    Code = "INVALID_ARGUMENT"
	CodeInvalidParameter   Code = "INVALID_PARAMETER"
	CodeInvalidCondition   Code = "INVALID_CONDITION"
	CodeUnknownAssociation Code = "UNKNOWN_ASSOCIATION"
	CodeUnknownMethod      Code = "UNKNOWN_METHOD"
	CodeNotAssociation     Code = "NOT_ASSOCIATION"
	CodeNotPersisted       Code = "NOT_PERSISTED"
)

// Internal consistency errors.
const (
	CodeCrazyError Code = "CRAZY_ERROR"
)

// Store errors.
const (
	CodeQueryFailed Code = "QUERY_FAILED"
)

// Schema errors.
const (
	CodeSchemaInvalid Code = "SCHEMA_INVALID"
)
