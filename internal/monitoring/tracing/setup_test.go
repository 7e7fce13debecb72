package tracing

import (
	"context"
	"errors"
	"testing"
)

func TestNewProviders_EmptyEndpoint(t *testing.T) {
	ctx := context.Background()
	providers, err := NewProviders(ctx, Config{Endpoint: "", ServiceName: "test-service"})
	if err != nil {
		t.Fatalf("NewProviders empty endpoint: %v", err)
	}
	if providers == nil {
		t.Fatal("providers should not be nil")
	}
	if providers.TracerProvider == nil {
		t.Error("TracerProvider should not be nil")
	}
	if providers.MeterProvider == nil {
		t.Error("MeterProvider should not be nil")
	}
	if providers.LoggerProvider == nil {
		t.Error("LoggerProvider should not be nil")
	}
	if providers.Shutdown == nil {
		t.Error("Shutdown should not be nil")
	}

	// Shutdown must be a no-op
	if err := providers.Shutdown(ctx); err != nil {
		t.Errorf("shutdown should be no-op for empty endpoint, got error: %v", err)
	}
}

func TestNewProviders_WhitespaceEndpoint(t *testing.T) {
	providers, err := NewProviders(context.Background(), Config{Endpoint: "   ", ServiceName: "test-service"})
	if err != nil {
		t.Fatalf("NewProviders whitespace endpoint: %v", err)
	}
	if providers == nil {
		t.Fatal("providers should not be nil")
	}
	if err := providers.Shutdown(context.Background()); err != nil {
		t.Errorf("shutdown should be no-op, got: %v", err)
	}
}

func TestNewProviders_InvalidEndpoint(t *testing.T) {
	testCases := []struct {
		name     string
		endpoint string
	}{
		{"missing host", "http://"},
		{"malformed URL", "http://[invalid"},
		{"just scheme separator", "://"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			providers, err := NewProviders(context.Background(), Config{Endpoint: tc.endpoint, ServiceName: "test-service"})
			if err == nil {
				t.Fatalf("NewProviders(%q) should fail", tc.endpoint)
			}
			if !errors.Is(err, ErrInvalidEndpoint) {
				t.Errorf("error should wrap ErrInvalidEndpoint, got: %v", err)
			}
			if providers != nil {
				t.Errorf("providers should be nil on error, got %v", providers)
			}
		})
	}
}

func TestNew_EmptyEndpoint_Disabled(t *testing.T) {
	a, err := New(context.Background(), Config{Endpoint: ""})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if a == nil {
		t.Fatal("New returned nil adapter")
	}
	if a.Enabled() {
		t.Error("adapter should be disabled without an endpoint")
	}
}

func TestNew_InvalidEndpoint_ReturnsError(t *testing.T) {
	a, err := New(context.Background(), Config{Endpoint: "http://"})
	if err == nil {
		t.Fatal("New with malformed endpoint should fail")
	}
	if !errors.Is(err, ErrInvalidEndpoint) {
		t.Errorf("error should wrap ErrInvalidEndpoint, got: %v", err)
	}
	if a != nil {
		t.Errorf("adapter should be nil on config error, got %v", a)
	}
}
