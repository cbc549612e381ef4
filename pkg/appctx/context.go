package appctx

import "context"

type ContextKey string

var (
	RequestIDKey    = ContextKey("X-Request-Id")
	MethodKey       = ContextKey("X-Method")
	RouteKey        = ContextKey("X-Route")
	RemoteIPKey     = ContextKey("X-Remote-Ip")
	UserIDKey       = ContextKey("X-User-Id")
	RolesKey        = ContextKey("X-Roles")
	DepartmentIDKey = ContextKey("X-Department-Id")
)

func SetRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

func GetRequestID(ctx context.Context) string {
	value, ok := ctx.Value(RequestIDKey).(string)
	if !ok {
		return ""
	}
	return value
}

func SetMethod(ctx context.Context, method string) context.Context {
	return context.WithValue(ctx, MethodKey, method)
}

func GetMethod(ctx context.Context) string {
	value, ok := ctx.Value(MethodKey).(string)
	if !ok {
		return ""
	}
	return value
}

func SetRoute(ctx context.Context, route string) context.Context {
	return context.WithValue(ctx, RouteKey, route)
}

func GetRoute(ctx context.Context) string {
	value, ok := ctx.Value(RouteKey).(string)
	if !ok {
		return ""
	}
	return value
}

func SetRemoteIP(ctx context.Context, remoteIP string) context.Context {
	return context.WithValue(ctx, RemoteIPKey, remoteIP)
}

func GetRemoteIP(ctx context.Context) string {
	value, ok := ctx.Value(RemoteIPKey).(string)
	if !ok {
		return ""
	}
	return value
}

func SetUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, UserIDKey, userID)
}

func GetUserID(ctx context.Context) string {
	value, ok := ctx.Value(UserIDKey).(string)
	if !ok {
		return ""
	}
	return value
}

func SetRoles(ctx context.Context, roles []string) context.Context {
	return context.WithValue(ctx, RolesKey, roles)
}

func GetRoles(ctx context.Context) []string {
	value, ok := ctx.Value(RolesKey).([]string)
	if !ok {
		return nil
	}
	return value
}

func SetDepartmentID(ctx context.Context, departmentID string) context.Context {
	return context.WithValue(ctx, DepartmentIDKey, departmentID)
}

func GetDepartmentID(ctx context.Context) string {
	value, ok := ctx.Value(DepartmentIDKey).(string)
	if !ok {
		return ""
	}
	return value
}
