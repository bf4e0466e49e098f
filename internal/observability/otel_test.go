package observability

import (
	"context"
	"os"
	"testing"
	"time"
)

func TestSetupDisabledWithoutEndpoint(t *testing.T) {
	t.Setenv("OTEL_SERVICE_NAME", "")

	shutdown, err := Setup(context.Background(), Config{ServiceName: "riffle-test"})
	if err != nil {
		t.Fatalf("Setup() error = %v", err)
	}
	if shutdown == nil {
		t.Fatal("Setup() shutdown = nil")
	}
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("shutdown() error = %v", err)
	}
	if got := os.Getenv("OTEL_SERVICE_NAME"); got != "" {
		t.Errorf("OTEL_SERVICE_NAME = %q, environment mutated while export is disabled", got)
	}
}

func TestSetupSetsTraceIdentity(t *testing.T) {
	t.Setenv("OTEL_SERVICE_NAME", "")
	t.Setenv("OTEL_RESOURCE_ATTRIBUTES", "")

	shutdown, err := Setup(context.Background(), Config{
		Endpoint:    "127.0.0.1:4318",
		Environment: "test",
		ServiceName: "riffle-test",
	})
	if err != nil {
		t.Fatalf("Setup() error = %v", err)
	}

	if got := os.Getenv("OTEL_SERVICE_NAME"); got != "riffle-test" {
		t.Errorf("OTEL_SERVICE_NAME = %q, want %q", got, "riffle-test")
	}
	if got := os.Getenv("OTEL_RESOURCE_ATTRIBUTES"); got != "deployment.environment=test" {
		t.Errorf("OTEL_RESOURCE_ATTRIBUTES = %q, want %q", got, "deployment.environment=test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	// No spans were recorded; shutdown just closes the exporter.
	_ = shutdown(ctx)
}
