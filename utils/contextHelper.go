package utils

import (
	"context"

	"bitbucket.org/mmdatafocus/revenue_backend/appctx"
)

var (
	ContextKeyToken         = appctx.ContextKeyToken
	ContextKeyAdminId       = appctx.ContextKeyAdminId
	ContextKeyAdminName     = appctx.ContextKeyAdminName
	ContextKeyCorrelationId = appctx.ContextKeyCorrelationId
)

// SystemActor is the reserved audit identity for automated jobs. It shares the
// audit schema with human admins so consumers never need a special code path.
const SystemActor = "system"

func GetTokenFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, ContextKeyToken)
}

func GetAdminIdFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, ContextKeyAdminId)
}

func GetAdminNameFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, ContextKeyAdminName)
}

func GetCorrelationIdFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, ContextKeyCorrelationId)
}

func SetTokenInContext(ctx context.Context, token string) context.Context {
	return appctx.Set(ctx, ContextKeyToken, token)
}

func SetAdminIdInContext(ctx context.Context, adminId string) context.Context {
	return appctx.Set(ctx, ContextKeyAdminId, adminId)
}

func SetAdminNameInContext(ctx context.Context, adminName string) context.Context {
	return appctx.Set(ctx, ContextKeyAdminName, adminName)
}

func SetCorrelationIdInContext(ctx context.Context, correlationId string) context.Context {
	return appctx.Set(ctx, ContextKeyCorrelationId, correlationId)
}

// ActorFromContext resolves the audit actor for the current call: the
// authenticated admin when present, otherwise the reserved system identity.
func ActorFromContext(ctx context.Context) string {
	if ctx != nil {
		if id, ok := GetAdminIdFromContext(ctx); ok && id != "" {
			return id
		}
	}
	return SystemActor
}
