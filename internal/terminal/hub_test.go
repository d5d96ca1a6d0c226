package terminal

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHubDeliversInOrder(t *testing.T) {
	hub := NewHub(4)
	sub := hub.Subscribe("t1")
	defer sub.Close()

	go func() {
		for i := 0; i < 50; i++ {
			hub.Publish(Event{Type: EventOutput, SessionID: "t1", Data: fmt.Sprint(i)})
		}
	}()

	// More events than the buffer holds: the publisher blocks instead of dropping
	for i := 0; i < 50; i++ {
		ev := nextEvent(t, sub)
		assert.Equal(t, fmt.Sprint(i), ev.Data)
		assert.NotZero(t, ev.Timestamp)
	}
}

func TestHubRoutesBySession(t *testing.T) {
	hub := NewHub(8)
	a := hub.Subscribe("a")
	defer a.Close()
	b := hub.Subscribe("b")
	defer b.Close()

	hub.Publish(Event{Type: EventOutput, SessionID: "a", Data: "for-a"})

	assert.Equal(t, "for-a", nextEvent(t, a).Data)
	assertNoEvent(t, b, 50*time.Millisecond)
}

func TestHubFanOut(t *testing.T) {
	hub := NewHub(8)
	first := hub.Subscribe("t1")
	defer first.Close()
	second := hub.Subscribe("t1")
	defer second.Close()

	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, 2, hub.Subscribers("t1"))

	hub.Publish(Event{Type: EventOutput, SessionID: "t1", Data: "x"})
	assert.Equal(t, "x", nextEvent(t, first).Data)
	assert.Equal(t, "x", nextEvent(t, second).Data)
}

func TestHubNoReplay(t *testing.T) {
	hub := NewHub(8)
	hub.Publish(Event{Type: EventOutput, SessionID: "t1", Data: "lost"})

	sub := hub.Subscribe("t1")
	defer sub.Close()
	assertNoEvent(t, sub, 50*time.Millisecond)
}

func TestCloseUnblocksPublisher(t *testing.T) {
	hub := NewHub(1)
	sub := hub.Subscribe("t1")

	hub.Publish(Event{Type: EventOutput, SessionID: "t1", Data: "fills buffer"})

	done := make(chan struct{})
	go func() {
		hub.Publish(Event{Type: EventOutput, SessionID: "t1", Data: "blocks"})
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("publish should block on a full subscriber")
	case <-time.After(50 * time.Millisecond):
	}

	sub.Close()
	sub.Close()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish still blocked after Close")
	}
	require.Zero(t, hub.Subscribers("t1"))
	<-sub.Done()
}

func TestTopic(t *testing.T) {
	assert.Equal(t, "terminal-output-t1", Topic("t1"))
}
