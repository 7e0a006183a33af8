package log

import (
	"context"
	"maps"
)

type scopeKey struct{}

// scope is what a request carries into every entry logged with its context:
// the request id set by the web middleware and the fields of the post being
// served.
type scope struct {
	requestID string
	fields    map[string]any
}

func scopeFrom(ctx context.Context) scope {
	if ctx == nil {
		return scope{}
	}
	s, _ := ctx.Value(scopeKey{}).(scope)
	return s
}

// WithRequestID returns a context whose entries carry id as request_id.
func WithRequestID(ctx context.Context, id string) context.Context {
	s := scopeFrom(ctx)
	s.requestID = id
	return context.WithValue(ctx, scopeKey{}, s)
}

// RequestIDFromContext returns the request id, or "" for a nil context or
// one without an id.
func RequestIDFromContext(ctx context.Context) string {
	return scopeFrom(ctx).requestID
}

// WithFields returns a context whose entries carry the given fields on top
// of those already present; later values win. Keys and values alternate,
// non-string keys and a trailing key are skipped. The parent is unchanged.
func WithFields(ctx context.Context, keysAndValues ...any) context.Context {
	s := scopeFrom(ctx)
	fields := make(map[string]any, len(s.fields)+len(keysAndValues)/2)
	maps.Copy(fields, s.fields)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		if key, ok := keysAndValues[i].(string); ok {
			fields[key] = keysAndValues[i+1]
		}
	}
	s.fields = fields
	return context.WithValue(ctx, scopeKey{}, s)
}

// FieldsFromContext returns the fields set with WithFields, or nil.
func FieldsFromContext(ctx context.Context) map[string]any {
	return scopeFrom(ctx).fields
}
