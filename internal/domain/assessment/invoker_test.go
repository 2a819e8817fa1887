package assessment

import (
	"context"
	"errors"
	"testing"
	"time"

	"dermalens-server-go/internal/domain/model"
	platformerrors "dermalens-server-go/internal/platform/errors"
	"dermalens-server-go/internal/utils"
)

func newTestLogger(t *testing.T) *utils.Logger {
	t.Helper()
	logger, err := utils.NewLogger(&utils.LogCfg{
		LogLevel: "error",
		LogDir:   t.TempDir(),
		LogFile:  "test.log",
	})
	if err != nil {
		t.Fatalf("create test logger: %v", err)
	}
	t.Cleanup(func() {
		_ = logger.Close()
	})
	return logger
}

// scriptedProvider 先失败 failures 次，之后返回固定文本
type scriptedProvider struct {
	calls    int
	failures int
	text     string
}

func (p *scriptedProvider) Generate(ctx context.Context, req model.Request) (*model.Result, error) {
	p.calls++
	if p.calls <= p.failures {
		return nil, errors.New("upstream unavailable")
	}
	return &model.Result{Text: p.text}, nil
}

func newRecordedInvoker(t *testing.T, provider model.Provider, maxAttempts int, baseDelay time.Duration) (*Invoker, *[]time.Duration) {
	t.Helper()
	iv := NewInvoker(provider, maxAttempts, baseDelay, newTestLogger(t))
	delays := &[]time.Duration{}
	iv.sleep = func(d time.Duration) {
		*delays = append(*delays, d)
	}
	return iv, delays
}

func TestInvoker_SuccessFirstAttempt(t *testing.T) {
	provider := &scriptedProvider{text: "ok"}
	iv, delays := newRecordedInvoker(t, provider, 3, time.Second)

	result, err := iv.Invoke(context.Background(), model.Request{Model: "m"})
	if err != nil {
		t.Fatalf("Invoke error: %v", err)
	}
	if result.Text != "ok" {
		t.Errorf("unexpected result: %q", result.Text)
	}
	if provider.calls != 1 {
		t.Errorf("expected exactly 1 call, got %d", provider.calls)
	}
	if len(*delays) != 0 {
		t.Errorf("expected no backoff, got %v", *delays)
	}
}

func TestInvoker_SuccessAfterRetries(t *testing.T) {
	provider := &scriptedProvider{failures: 2, text: "recovered"}
	iv, delays := newRecordedInvoker(t, provider, 3, time.Second)

	result, err := iv.Invoke(context.Background(), model.Request{Model: "m"})
	if err != nil {
		t.Fatalf("Invoke error: %v", err)
	}
	if result.Text != "recovered" {
		t.Errorf("unexpected result: %q", result.Text)
	}
	if provider.calls != 3 {
		t.Errorf("expected 3 calls, got %d", provider.calls)
	}

	want := []time.Duration{time.Second, 2 * time.Second}
	if len(*delays) != len(want) {
		t.Fatalf("expected delays %v, got %v", want, *delays)
	}
	for i, d := range want {
		if (*delays)[i] != d {
			t.Errorf("delay %d: expected %s, got %s", i, d, (*delays)[i])
		}
	}
}

func TestInvoker_ExhaustedRetries(t *testing.T) {
	tests := []struct {
		name        string
		maxAttempts int
		wantDelays  []time.Duration
	}{
		{name: "single attempt", maxAttempts: 1, wantDelays: nil},
		{name: "two attempts", maxAttempts: 2, wantDelays: []time.Duration{time.Second}},
		{name: "three attempts", maxAttempts: 3, wantDelays: []time.Duration{time.Second, 2 * time.Second}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := &scriptedProvider{failures: 1 << 30}
			iv, delays := newRecordedInvoker(t, provider, tt.maxAttempts, time.Second)

			_, err := iv.Invoke(context.Background(), model.Request{Model: "m"})
			if !platformerrors.IsKind(err, platformerrors.KindModel) {
				t.Fatalf("expected model error, got %v", err)
			}
			if provider.calls != tt.maxAttempts {
				t.Errorf("expected %d calls, got %d", tt.maxAttempts, provider.calls)
			}
			if len(*delays) != len(tt.wantDelays) {
				t.Fatalf("expected delays %v, got %v", tt.wantDelays, *delays)
			}
			for i, d := range tt.wantDelays {
				if (*delays)[i] != d {
					t.Errorf("delay %d: expected %s, got %s", i, d, (*delays)[i])
				}
			}
		})
	}
}

func TestInvoker_TerminalErrorKeepsCause(t *testing.T) {
	provider := &scriptedProvider{failures: 1 << 30}
	iv, _ := newRecordedInvoker(t, provider, 2, time.Millisecond)

	_, err := iv.Invoke(context.Background(), model.Request{Model: "m"})
	if err == nil {
		t.Fatal("expected error")
	}
	var typed *platformerrors.Error
	if !errors.As(err, &typed) {
		t.Fatalf("expected typed error, got %T", err)
	}
	if typed.Cause == nil {
		t.Error("terminal error should carry the last attempt failure")
	}
}

func TestNewInvoker_Defaults(t *testing.T) {
	iv := NewInvoker(&scriptedProvider{}, 0, 0, newTestLogger(t))
	if iv.maxAttempts != DefaultMaxAttempts {
		t.Errorf("expected default attempts %d, got %d", DefaultMaxAttempts, iv.maxAttempts)
	}
	if iv.baseDelay != DefaultBaseDelay {
		t.Errorf("expected default delay %s, got %s", DefaultBaseDelay, iv.baseDelay)
	}
}
