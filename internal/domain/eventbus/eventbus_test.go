package eventbus

import (
	"sync/atomic"
	"testing"
)

func TestAsyncEventBus_DeliversToSubscriber(t *testing.T) {
	bus := NewAsyncEventBus(2)
	bus.Start()
	defer bus.Stop()

	var got atomic.Value
	err := bus.SubscribeAsync("test:topic", func(event AnalysisEvent) {
		got.Store(event)
	})
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	bus.PublishAsync("test:topic", AnalysisEvent{ID: 42, ImageName: "photo.jpg"})
	bus.WaitAsync()

	event, ok := got.Load().(AnalysisEvent)
	if !ok {
		t.Fatal("event was not delivered")
	}
	if event.ID != 42 || event.ImageName != "photo.jpg" {
		t.Errorf("unexpected event %+v", event)
	}
}

func TestAsyncEventBus_SurvivesPanickingSubscriber(t *testing.T) {
	bus := NewAsyncEventBus(1)
	bus.Start()
	defer bus.Stop()

	var delivered atomic.Int32
	if err := bus.SubscribeAsync("boom", func(event AnalysisEvent) {
		panic("subscriber failure")
	}); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if err := bus.SubscribeAsync("ok", func(event AnalysisEvent) {
		delivered.Add(1)
	}); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	bus.PublishAsync("boom", AnalysisEvent{ID: 1})
	bus.PublishAsync("ok", AnalysisEvent{ID: 2})
	bus.WaitAsync()

	if delivered.Load() != 1 {
		t.Errorf("expected delivery after panic, got %d", delivered.Load())
	}
}

func TestRecordCacheKey(t *testing.T) {
	if RecordCacheKey(7) != "analysis:7" {
		t.Errorf("unexpected key %s", RecordCacheKey(7))
	}
}
