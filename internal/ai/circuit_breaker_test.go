package ai

import (
	"context"
	"fmt"
	"testing"
	"time"

	"careeradvisor/internal/config"

	"github.com/sony/gobreaker/v2"
	"google.golang.org/genai"
)

func breakerConfig() config.CircuitBreakerConfig {
	return config.CircuitBreakerConfig{
		Enabled:          true,
		MaxRequests:      1,
		Interval:         time.Minute,
		Timeout:          time.Minute,
		MinRequests:      3,
		FailureThreshold: 0.6,
	}
}

func TestDisabledCircuitBreakerPassesThrough(t *testing.T) {
	cb := NewCircuitBreaker("Complete", config.CircuitBreakerConfig{Enabled: false}, nil)
	if cb != nil {
		t.Fatal("expected nil breaker when disabled")
	}

	calls := 0
	for range 10 {
		_, _ = cb.Execute(func() (*genai.GenerateContentResponse, error) {
			calls++
			return nil, fmt.Errorf("boom")
		})
	}
	if calls != 10 {
		t.Errorf("calls = %d, want 10", calls)
	}
	if !cb.IsHealthy() {
		t.Error("nil breaker should report healthy")
	}
	if cb.GetStats()["enabled"] != false {
		t.Error("nil breaker stats should report disabled")
	}
}

func TestCircuitBreakerTripsAfterThreshold(t *testing.T) {
	cb := NewCircuitBreaker("Complete", breakerConfig(), testLogger)

	stats := cb.GetStats()
	if stats["name"] != "AI-Complete" {
		t.Errorf("name = %v, want AI-Complete", stats["name"])
	}
	if stats["state"] != "closed" {
		t.Errorf("initial state = %v, want closed", stats["state"])
	}

	for range 3 {
		_, _ = cb.Execute(func() (*genai.GenerateContentResponse, error) {
			return nil, fmt.Errorf("upstream failure")
		})
	}

	if cb.IsHealthy() {
		t.Error("expected breaker to be open after three failures")
	}

	called := false
	_, err := cb.Execute(func() (*genai.GenerateContentResponse, error) {
		called = true
		return &genai.GenerateContentResponse{}, nil
	})
	if err != gobreaker.ErrOpenState {
		t.Errorf("err = %v, want ErrOpenState", err)
	}
	if called {
		t.Error("open breaker must not run the call")
	}
}

func TestCircuitBreakerIgnoresCancellation(t *testing.T) {
	cb := NewCircuitBreaker("Complete", breakerConfig(), testLogger)

	for range 5 {
		_, _ = cb.Execute(func() (*genai.GenerateContentResponse, error) {
			return nil, fmt.Errorf("request aborted: %w", context.Canceled)
		})
	}

	if !cb.IsHealthy() {
		t.Error("caller cancellations should not trip the breaker")
	}
}

func TestModelCircuitBreakerIsLenient(t *testing.T) {
	cb := NewModelCircuitBreaker("Complete", breakerConfig(), testLogger)

	for range 4 {
		_, _ = cb.ExecuteModel(func() (*genai.Model, error) {
			return nil, fmt.Errorf("lookup failed")
		})
	}
	if !cb.IsModelHealthy() {
		t.Error("model breaker should stay closed below five requests")
	}

	_, _ = cb.ExecuteModel(func() (*genai.Model, error) {
		return nil, fmt.Errorf("lookup failed")
	})
	if cb.IsModelHealthy() {
		t.Error("model breaker should open after five failures")
	}
	if cb.GetModelStats()["name"] != "AI-Model-Complete" {
		t.Errorf("unexpected stats: %v", cb.GetModelStats())
	}
}
