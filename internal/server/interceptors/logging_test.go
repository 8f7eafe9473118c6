package interceptors

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestLoggingUnary(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	interceptor := LoggingUnary(zap.New(core), map[string]bool{"/health/Check": true})
	ctx := WithIdentity(context.Background(), "user-1")

	_, _ = interceptor(ctx, nil, &grpc.UnaryServerInfo{FullMethod: "/svc/Ok"}, ok)
	_, _ = interceptor(ctx, nil, &grpc.UnaryServerInfo{FullMethod: "/svc/Denied"}, func(context.Context, any) (any, error) {
		return nil, status.Error(codes.PermissionDenied, "no")
	})
	_, _ = interceptor(ctx, nil, &grpc.UnaryServerInfo{FullMethod: "/svc/Broken"}, func(context.Context, any) (any, error) {
		return nil, status.Error(codes.Internal, "boom")
	})
	_, _ = interceptor(ctx, nil, &grpc.UnaryServerInfo{FullMethod: "/health/Check"}, ok)

	entries := logs.All()
	if len(entries) != 3 {
		t.Fatalf("got %d log entries, want 3", len(entries))
	}
	wantLevels := []zapcore.Level{zapcore.InfoLevel, zapcore.InfoLevel, zapcore.ErrorLevel}
	for i, e := range entries {
		if e.Level != wantLevels[i] {
			t.Errorf("entry %d level = %v, want %v", i, e.Level, wantLevels[i])
		}
		if e.ContextMap()["user_id"] != "user-1" {
			t.Errorf("entry %d missing user_id: %v", i, e.ContextMap())
		}
	}
	if got := entries[1].ContextMap()["code"]; got != codes.PermissionDenied.String() {
		t.Errorf("code = %v", got)
	}
}
