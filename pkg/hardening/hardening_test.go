package hardening

import (
	"strings"
	"testing"
)

func validOptions() Options {
	return Options{
		Service:            "gateway",
		Environment:        "production",
		DatabaseRequireTLS: "true",
		RedisAddr:          "redis.internal:6380",
		RedisRequireTLS:    "true",
		CORSAllowedOrigins: "https://app.mandi.example",
		ProjectID:          "mandi-prod",
	}
}

func TestValidateProductionPasses(t *testing.T) {
	if err := ValidateProduction(validOptions()); err != nil {
		t.Fatalf("valid production config rejected: %v", err)
	}
}

func TestValidateSkipsNonProduction(t *testing.T) {
	for _, env := range []string{"", "dev", "development", "local", "test"} {
		o := Options{Environment: env}
		if err := ValidateProduction(o); err != nil {
			t.Fatalf("env %q must skip validation: %v", env, err)
		}
	}
}

func TestValidateStrictOptOut(t *testing.T) {
	o := Options{Environment: "production", StrictProdSecurity: "false"}
	if err := ValidateProduction(o); err != nil {
		t.Fatalf("explicit opt-out must skip validation: %v", err)
	}
}

func TestValidateProductionFailures(t *testing.T) {
	cases := map[string]struct {
		mutate func(*Options)
		detail string
	}{
		"missing project id":  {func(o *Options) { o.ProjectID = "" }, "PROJECT_ID"},
		"db tls off":          {func(o *Options) { o.DatabaseRequireTLS = "" }, "DATABASE_REQUIRE_TLS"},
		"redis tls off":       {func(o *Options) { o.RedisRequireTLS = "false" }, "REDIS_REQUIRE_TLS"},
		"no cors origins":     {func(o *Options) { o.CORSAllowedOrigins = " , " }, "CORS_ALLOWED_ORIGINS"},
		"wildcard origin":     {func(o *Options) { o.CORSAllowedOrigins = "*" }, "wildcard"},
		"http origin":         {func(o *Options) { o.CORSAllowedOrigins = "http://app.mandi.example" }, "HTTPS"},
		"localhost origin":    {func(o *Options) { o.CORSAllowedOrigins = "https://localhost:3000" }, "localhost"},
		"loopback ip origin":  {func(o *Options) { o.CORSAllowedOrigins = "http://127.0.0.1:3000" }, "localhost"},
		"one bad among goods": {func(o *Options) { o.CORSAllowedOrigins = "https://a.example,*" }, "wildcard"},
	}
	for name, tc := range cases {
		o := validOptions()
		tc.mutate(&o)
		err := ValidateProduction(o)
		if err == nil {
			t.Fatalf("%s: expected error", name)
		}
		if !strings.Contains(err.Error(), tc.detail) {
			t.Fatalf("%s: error %q does not mention %q", name, err, tc.detail)
		}
	}
}

func TestValidateRedisTLSOnlyWhenAddrSet(t *testing.T) {
	o := validOptions()
	o.RedisAddr = ""
	o.RedisRequireTLS = ""
	if err := ValidateProduction(o); err != nil {
		t.Fatalf("no redis means no redis TLS requirement: %v", err)
	}
}

func TestStagingIsProductionLike(t *testing.T) {
	o := validOptions()
	o.Environment = "staging"
	o.ProjectID = ""
	if err := ValidateProduction(o); err == nil {
		t.Fatal("staging must be held to the production floor")
	}
}
