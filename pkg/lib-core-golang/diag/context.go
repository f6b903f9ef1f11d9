package diag

import (
	"context"

	uuid "github.com/satori/go.uuid"
)

type contextKeys string

const operationIDKey contextKeys = "operationID"

// ContextWithOperationID - create context with operationID
func ContextWithOperationID(ctx context.Context, operationID string) context.Context {
	return context.WithValue(ctx, operationIDKey, operationID)
}

// OperationIDValue - returns operationID value taken from context
func OperationIDValue(ctx context.Context) string {
	val := ctx.Value(operationIDKey)
	if val == nil {
		return ""
	}
	return val.(string)
}

// EnsureOperationID returns ctx as is if it already carries an operationID,
// otherwise a child context with a new random one
func EnsureOperationID(ctx context.Context) context.Context {
	if OperationIDValue(ctx) != "" {
		return ctx
	}
	return ContextWithOperationID(ctx, uuid.NewV4().String())
}
