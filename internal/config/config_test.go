package config

import (
	"os"
	"reflect"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	os.Clearenv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.GRPCAddr != ":8080" {
		t.Errorf("GRPCAddr = %q, want %q", cfg.GRPCAddr, ":8080")
	}
	if cfg.JWTIssuer != "b2b-tenancy" {
		t.Errorf("JWTIssuer = %q", cfg.JWTIssuer)
	}
	if cfg.BcryptCost != 12 {
		t.Errorf("BcryptCost = %d, want 12", cfg.BcryptCost)
	}
	if cfg.InvitationLifetime() != 168*time.Hour {
		t.Errorf("InvitationLifetime = %v, want 168h", cfg.InvitationLifetime())
	}
	if cfg.InvitationEventsTopic != "tenancy.invitations" {
		t.Errorf("InvitationEventsTopic = %q", cfg.InvitationEventsTopic)
	}
	if cfg.KafkaGroupID != "tenancy-invitation-mailer" {
		t.Errorf("KafkaGroupID = %q", cfg.KafkaGroupID)
	}
	if cfg.AuthEnabled() {
		t.Error("auth should be disabled without keys")
	}
	if cfg.RateLimitRPS != 5 || cfg.RateLimitBurst != 10 {
		t.Errorf("rate limit = %v/%d", cfg.RateLimitRPS, cfg.RateLimitBurst)
	}
}

func TestLoad_EnvVarOverride(t *testing.T) {
	os.Clearenv()
	os.Setenv("GRPC_ADDR", ":9090")
	os.Setenv("BCRYPT_COST", "14")
	os.Setenv("INVITATION_TTL", "48h")
	os.Setenv("APP_ENV", "production")
	os.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.GRPCAddr != ":9090" {
		t.Errorf("GRPCAddr = %q", cfg.GRPCAddr)
	}
	if cfg.BcryptCost != 14 {
		t.Errorf("BcryptCost = %d", cfg.BcryptCost)
	}
	if cfg.InvitationLifetime() != 48*time.Hour {
		t.Errorf("InvitationLifetime = %v", cfg.InvitationLifetime())
	}
	if !cfg.IsProduction() {
		t.Error("IsProduction should be true")
	}
	if got := cfg.KafkaBrokersList(); !reflect.DeepEqual(got, []string{"k1:9092", "k2:9092"}) {
		t.Errorf("KafkaBrokersList = %v", got)
	}
}

func TestLoad_Validation(t *testing.T) {
	testCases := []struct {
		name string
		env  map[string]string
	}{
		{"bcrypt too low", map[string]string{"BCRYPT_COST": "3"}},
		{"bcrypt too high", map[string]string{"BCRYPT_COST": "32"}},
		{"only private key", map[string]string{"JWT_PRIVATE_KEY": "x"}},
		{"only public key", map[string]string{"JWT_PUBLIC_KEY": "x"}},
		{"bad invitation ttl", map[string]string{"INVITATION_TTL": "soon"}},
		{"negative invitation ttl", map[string]string{"INVITATION_TTL": "-1h"}},
		{"negative rate", map[string]string{"RATE_LIMIT_RPS": "-1"}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			os.Clearenv()
			for k, v := range tc.env {
				os.Setenv(k, v)
			}
			if _, err := Load(); err == nil {
				t.Error("Load should fail")
			}
		})
	}
}

func TestTTLHelpers_Fallbacks(t *testing.T) {
	c := &Config{JWTAccessTTL: "bogus", JWTRefreshTTL: "-5m", InvitationTTL: ""}
	if c.AccessTTL() != 15*time.Minute {
		t.Errorf("AccessTTL = %v", c.AccessTTL())
	}
	if c.RefreshTTL() != 168*time.Hour {
		t.Errorf("RefreshTTL = %v", c.RefreshTTL())
	}
	if c.InvitationLifetime() != 168*time.Hour {
		t.Errorf("InvitationLifetime = %v", c.InvitationLifetime())
	}
}

func TestKafkaBrokersList_Empty(t *testing.T) {
	var nilCfg *Config
	if nilCfg.KafkaBrokersList() != nil {
		t.Error("nil config should have no brokers")
	}
	if got := (&Config{KafkaBrokers: " , "}).KafkaBrokersList(); len(got) != 0 {
		t.Errorf("blank entries should be dropped, got %v", got)
	}
}
