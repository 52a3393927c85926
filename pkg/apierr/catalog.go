package apierr

import "fmt"

// --- Usage ---

func InvalidArgument(what string, got any) *Error {
	return New(CodeInvalidArgument, fmt.Sprintf("Invalid %s: %T", what, got))
}

func InvalidParameter(op string, got any) *Error {
	return New(CodeInvalidParameter, fmt.Sprintf("Invalid parameter for %s: %T", op, got))
}

func InvalidCondition(name string) *Error {
	return New(CodeInvalidCondition, "Invalid value for '"+name+"' condition")
}

func UnknownAssociation(model, name string) *Error {
	return New(CodeUnknownAssociation, fmt.Sprintf("%s has no association %q", model, name))
}

func UnknownMethod(model, name string) *Error {
	return New(CodeUnknownMethod, fmt.Sprintf("%s has no method %q", model, name))
}

func NotAssociation(op string) *Error {
	return New(CodeNotAssociation, "Can only "+op+" on association proxies")
}

func NotPersisted(what string) *Error {
	return New(CodeNotPersisted, what+" is not persisted")
}

// --- Internal ---

func CrazyError(message string) *Error {
	return New(CodeCrazyError, message)
}

// --- Store ---

func QueryFailed(cause error) *Error {
	return Wrap(CodeQueryFailed, "Query failed", cause)
}

// --- Schema ---

func SchemaInvalid(message string) *Error {
	return New(CodeSchemaInvalid, message)
}
