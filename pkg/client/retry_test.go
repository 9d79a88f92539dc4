package client

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestDefaultRetryConfig(t *testing.T) {
	config := DefaultRetryConfig()

	if config.Retries != 1 {
		t.Errorf("Retries = %d, want 1", config.Retries)
	}
	if config.Delay != 500*time.Millisecond {
		t.Errorf("Delay = %v, want 500ms", config.Delay)
	}
}

func TestRetry_Success(t *testing.T) {
	callCount := 0
	fn := func(ctx context.Context) (string, error) {
		callCount++
		return "ok", nil
	}

	got, err := Retry(context.Background(), DefaultRetryConfig(), fn)
	if err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
	if got != "ok" {
		t.Errorf("Retry() = %q, want ok", got)
	}
	if callCount != 1 {
		t.Errorf("Expected 1 call, got %d", callCount)
	}
}

func TestRetry_SuccessAfterRetry(t *testing.T) {
	callCount := 0
	fn := func(ctx context.Context) (int, error) {
		callCount++
		if callCount < 2 {
			return 0, errors.New("temporary error")
		}
		return 42, nil
	}

	cfg := RetryConfig{Retries: 1, Delay: 30 * time.Millisecond}
	start := time.Now()
	got, err := Retry(context.Background(), cfg, fn)
	duration := time.Since(start)

	if err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
	if got != 42 {
		t.Errorf("Retry() = %d, want 42", got)
	}
	if callCount != 2 {
		t.Errorf("Expected 2 calls, got %d", callCount)
	}
	if duration < cfg.Delay {
		t.Errorf("Duration %v shorter than delay %v", duration, cfg.Delay)
	}
}

func TestRetry_ExhaustedReturnsLastErrorUnchanged(t *testing.T) {
	callCount := 0
	var lastErr error
	fn := func(ctx context.Context) ([]byte, error) {
		callCount++
		lastErr = &APIError{StatusCode: 503, Class: ErrorClassServer, Message: "down"}
		return nil, lastErr
	}

	_, err := Retry(context.Background(), RetryConfig{Retries: 2, Delay: time.Millisecond}, fn)

	if err != lastErr {
		t.Errorf("Retry() error = %v, want last error %v", err, lastErr)
	}
	if callCount != 3 {
		t.Errorf("Expected 3 calls, got %d", callCount)
	}
}

func TestRetry_ClientErrorsAreRetriedToo(t *testing.T) {
	callCount := 0
	fn := func(ctx context.Context) ([]byte, error) {
		callCount++
		return nil, &APIError{StatusCode: 404, Class: ErrorClassClient}
	}

	_, _ = Retry(context.Background(), RetryConfig{Retries: 1, Delay: time.Millisecond}, fn)

	if callCount != 2 {
		t.Errorf("Expected 2 calls (uniform policy), got %d", callCount)
	}
}

func TestRetry_NoRetries(t *testing.T) {
	callCount := 0
	fn := func(ctx context.Context) ([]byte, error) {
		callCount++
		return nil, errors.New("fail")
	}

	_, err := Retry(context.Background(), RetryConfig{Retries: -3}, fn)
	if err == nil {
		t.Error("Expected error")
	}
	if callCount != 1 {
		t.Errorf("Expected 1 call, got %d", callCount)
	}
}

func TestRetry_CanceledIsNotRetried(t *testing.T) {
	callCount := 0
	fn := func(ctx context.Context) ([]byte, error) {
		callCount++
		return nil, context.Canceled
	}

	_, err := Retry(context.Background(), DefaultRetryConfig(), fn)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
	if callCount != 1 {
		t.Errorf("Expected 1 call, got %d", callCount)
	}
}

func TestRetry_ContextCancelledDuringDelay(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	callCount := 0
	fn := func(ctx context.Context) ([]byte, error) {
		callCount++
		if callCount == 1 {
			go func() {
				time.Sleep(10 * time.Millisecond)
				cancel()
			}()
		}
		return nil, errors.New("server error")
	}

	start := time.Now()
	_, err := Retry(ctx, RetryConfig{Retries: 1, Delay: 5 * time.Second}, fn)
	duration := time.Since(start)

	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
	if duration > time.Second {
		t.Errorf("Retry took %v, should stop promptly on cancellation", duration)
	}
	if callCount != 1 {
		t.Errorf("Expected 1 call, got %d", callCount)
	}
}
