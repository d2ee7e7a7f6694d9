package events_test

import (
	"testing"
	"time"

	"github.com/edgehw/pwmd/internal/events"
	"github.com/edgehw/pwmd/internal/models"
)

func TestSubscribePublish(t *testing.T) {
	bus := events.NewBus()
	ch := bus.Subscribe("sub1")
	defer bus.Unsubscribe("sub1")

	state := models.DefaultState(50)
	state.FrequencyHz = 200
	bus.Publish(state)

	select {
	case got := <-ch:
		if got.FrequencyHz != 200 {
			t.Errorf("received frequency %v, want 200", got.FrequencyHz)
		}
		if len(got.Channels) != 16 {
			t.Errorf("received %d channels, want 16", len(got.Channels))
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for published state")
	}
}

func TestMultipleSubscribers(t *testing.T) {
	bus := events.NewBus()
	ch1 := bus.Subscribe("sub1")
	ch2 := bus.Subscribe("sub2")
	defer bus.Unsubscribe("sub1")
	defer bus.Unsubscribe("sub2")

	if n := bus.SubscriberCount(); n != 2 {
		t.Errorf("SubscriberCount = %d, want 2", n)
	}

	bus.Publish(models.DefaultState(50))
	for i, ch := range []<-chan models.State{ch1, ch2} {
		select {
		case <-ch:
		case <-time.After(time.Second):
			t.Fatalf("subscriber %d did not receive the event", i+1)
		}
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	bus := events.NewBus()
	ch := bus.Subscribe("sub1")
	bus.Unsubscribe("sub1")

	if _, ok := <-ch; ok {
		t.Error("channel should be closed after unsubscribe")
	}
	if n := bus.SubscriberCount(); n != 0 {
		t.Errorf("SubscriberCount = %d, want 0", n)
	}

	// Unsubscribing twice must not panic.
	bus.Unsubscribe("sub1")
}

func TestSlowSubscriberDoesNotBlockPublish(t *testing.T) {
	bus := events.NewBus()
	bus.Subscribe("slow")
	defer bus.Unsubscribe("slow")

	// Overfill the subscriber buffer; publishes past capacity must drop
	// instead of blocking.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 20; i++ {
			bus.Publish(models.DefaultState(50))
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a slow subscriber")
	}
}
