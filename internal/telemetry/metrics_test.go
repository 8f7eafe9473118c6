package telemetry

import (
	"context"
	"testing"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestMetrics_Counters(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	m, err := NewMetrics(mp.Meter("test"))
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	ctx := context.Background()
	m.MembershipMutation(ctx, "set_role")
	m.MembershipMutation(ctx, "set_role")
	m.InvitationTransition(ctx, "accepted")
	m.AuthorizationDenied(ctx, "invitation.create", "forbidden")

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	totals := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, md := range sm.Metrics {
			sum, ok := md.Data.(metricdata.Sum[int64])
			if !ok {
				t.Fatalf("%s: unexpected data %T", md.Name, md.Data)
			}
			for _, dp := range sum.DataPoints {
				totals[md.Name] += dp.Value
			}
		}
	}
	want := map[string]int64{
		"tenancy.membership.mutations":   2,
		"tenancy.invitation.transitions": 1,
		"tenancy.authorization.denials":  1,
	}
	for name, v := range want {
		if totals[name] != v {
			t.Errorf("%s = %d, want %d", name, totals[name], v)
		}
	}
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	m.MembershipMutation(context.Background(), "create")
	m.InvitationTransition(context.Background(), "expired")
	m.AuthorizationDenied(context.Background(), "team.create", "not_a_member")
}
