package ctxutil

import "context"

type traceDataKey struct{}

// TraceData correlates one request across logs and spans. SessionID is set for
// routes scoped to a group order.
type TraceData struct {
	TraceID   string
	RequestID string
	SessionID string
}

func WithTraceData(ctx context.Context, td *TraceData) context.Context {
	return context.WithValue(ctx, traceDataKey{}, td)
}

// SessionIDFrom returns the group order session bound to ctx, if any.
func SessionIDFrom(ctx context.Context) string {
	if td := GetTraceData(ctx); td != nil {
		return td.SessionID
	}
	return ""
}

func GetTraceData(ctx context.Context) *TraceData {
	val := ctx.Value(traceDataKey{})
	if td, ok := val.(*TraceData); ok {
		return td
	}
	return nil
}
