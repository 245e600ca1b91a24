package otel

import (
	"context"
	"testing"
)

func TestParseHeaders(t *testing.T) {
	headers := ParseHeaders(" authorization = Bearer abc ,, x-team=launch,broken,=empty")
	if len(headers) != 2 {
		t.Fatalf("expected 2 headers, got %d: %v", len(headers), headers)
	}
	if headers["authorization"] != "Bearer abc" {
		t.Fatalf("unexpected authorization header %q", headers["authorization"])
	}
	if headers["x-team"] != "launch" {
		t.Fatalf("unexpected x-team header %q", headers["x-team"])
	}
}

func TestInitRequiresServiceName(t *testing.T) {
	if _, err := Init(context.Background(), Config{}); err == nil {
		t.Fatalf("expected error without service name")
	}
}

func TestInitDisabledIsNoop(t *testing.T) {
	shutdown, err := Init(context.Background(), Config{ServiceName: "launchpadd"})
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "collector:4318")
	t.Setenv("OTEL_EXPORTER_OTLP_HEADERS", "x-tenant=launch")
	t.Setenv("OTEL_EXPORTER_OTLP_INSECURE", "false")
	cfg := ConfigFromEnv("launchpadd", "prod")
	if !cfg.Metrics || !cfg.Traces {
		t.Fatalf("expected exporters enabled when endpoint is set")
	}
	if cfg.Insecure {
		t.Fatalf("expected insecure to follow the environment")
	}
	if cfg.Headers["x-tenant"] != "launch" {
		t.Fatalf("unexpected headers %v", cfg.Headers)
	}

	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	if cfg := ConfigFromEnv("launchpadd", "dev"); cfg.Metrics || cfg.Traces {
		t.Fatalf("expected exporters disabled without endpoint")
	}
}

func TestSamplerRatio(t *testing.T) {
	if got := sampler(0).Description(); got == sampler(0.25).Description() {
		t.Fatalf("expected ratio sampler to differ from default, both %q", got)
	}
}
