package interceptors

import (
	"context"
	"net"
	"testing"

	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
)

func TestClientIP(t *testing.T) {
	md := func(kv ...string) context.Context {
		return metadata.NewIncomingContext(context.Background(), metadata.Pairs(kv...))
	}
	withPeer := peer.NewContext(context.Background(), &peer.Peer{
		Addr: &net.TCPAddr{IP: net.ParseIP("192.0.2.7"), Port: 5555},
	})
	tests := []struct {
		name string
		ctx  context.Context
		want string
	}{
		{"x-forwarded-for", md("x-forwarded-for", "203.0.113.1"), "203.0.113.1"},
		{"x-forwarded-for chain", md("x-forwarded-for", "203.0.113.1, 10.0.0.1"), "203.0.113.1"},
		{"x-real-ip", md("x-real-ip", "203.0.113.2"), "203.0.113.2"},
		{"forwarded wins", md("x-forwarded-for", "203.0.113.1", "x-real-ip", "203.0.113.2"), "203.0.113.1"},
		{"whitespace only", md("x-forwarded-for", "   "), "unknown"},
		{"peer", withPeer, "192.0.2.7"},
		{"unknown", context.Background(), "unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClientIP(tt.ctx); got != tt.want {
				t.Errorf("ClientIP = %q, want %q", got, tt.want)
			}
		})
	}
}
