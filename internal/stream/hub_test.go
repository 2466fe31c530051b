package stream

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestHubPublishLocal(t *testing.T) {
	hub := NewHub(nil)
	client := hub.Register("abc123")
	defer hub.Unregister(client)

	hub.Publish("ABC123", "location", map[string]float64{"latitude": 42.69})

	select {
	case msg := <-client.Send:
		var event Event
		if err := json.Unmarshal(msg, &event); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if event.Type != "location" || event.SessionCode != "ABC123" {
			t.Fatalf("unexpected event: %+v", event)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatalf("timeout waiting for event")
	}
}

func TestHubSkipsSlowClients(t *testing.T) {
	hub := NewHub(nil)
	client := hub.Register("SLOW01")
	defer hub.Unregister(client)

	for i := 0; i < cap(client.Send)+10; i++ {
		hub.Publish("SLOW01", "location", i)
	}
	// Buffer full drops the rest instead of blocking the publisher.
	if len(client.Send) != cap(client.Send) {
		t.Fatalf("expected full buffer, got %d", len(client.Send))
	}
}

func TestHubConcurrentChurn(t *testing.T) {
	hub := NewHub(nil)
	done := make(chan struct{})

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-done:
					return
				default:
				}
				client := hub.Register("CHURN1")
				hub.Unregister(client)
			}
		}()
		go func() {
			defer wg.Done()
			for {
				select {
				case <-done:
					return
				default:
				}
				hub.Publish("CHURN1", "location", map[string]float64{"latitude": 42.69})
			}
		}()
	}

	time.Sleep(100 * time.Millisecond)
	close(done)
	wg.Wait()
}

func TestHubHelpers(t *testing.T) {
	ch := redisChannel("ABC123")
	if ch != "session:ABC123:events" {
		t.Fatalf("unexpected channel %q", ch)
	}
	if codeFromChannel(ch) != "ABC123" {
		t.Fatalf("unexpected code")
	}
	if codeFromChannel("bad") != "" {
		t.Fatalf("expected empty code")
	}
}

func TestUnregisterCloses(t *testing.T) {
	hub := NewHub(nil)
	client := hub.Register("GONE00")
	hub.Unregister(client)
	_, ok := <-client.Send
	if ok {
		t.Fatalf("expected channel closed")
	}
}

func TestHubRedisRoundTrip(t *testing.T) {
	s := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: s.Addr()})
	defer rdb.Close()

	hub := NewHub(rdb)
	client := hub.Register("RED001")
	defer hub.Unregister(client)

	// Give the pattern subscription a moment to attach.
	time.Sleep(20 * time.Millisecond)
	hub.Publish("RED001", "alert", map[string]string{"message": "ping"})

	select {
	case msg := <-client.Send:
		var event Event
		if err := json.Unmarshal(msg, &event); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if event.Type != "alert" {
			t.Fatalf("unexpected event: %+v", event)
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatalf("timeout waiting for redis round trip")
	}
}

func TestHubRedisDownFallsBackToLocal(t *testing.T) {
	s := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: s.Addr()})
	s.Close()
	defer rdb.Close()

	hub := NewHub(rdb)
	client := hub.Register("DOWN01")
	defer hub.Unregister(client)

	hub.Publish("DOWN01", "location", nil)

	select {
	case <-client.Send:
	case <-time.After(200 * time.Millisecond):
		t.Fatalf("expected local delivery when redis is unreachable")
	}
}
