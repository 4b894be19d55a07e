package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Dunglqd/vexera-ai-system-test/internal/models"
)

type memPublisher struct {
	mu     sync.Mutex
	events []models.AnswerEvent
	calls  int
	err    error
	closed bool
}

func (p *memPublisher) Publish(_ context.Context, events []models.AnswerEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, events...)
	return nil
}

func (p *memPublisher) Close() error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	return nil
}

func TestCollector_FlushesOnClose(t *testing.T) {
	pub := &memPublisher{}
	c := NewCollector(pub, 10, nil)
	c.Start()
	for i := 0; i < 5; i++ {
		c.Track(models.AnswerEvent{Question: "q", Kind: models.OutcomeAnswered})
	}
	if err := c.Close(); err != nil {
		t.Fatal(err)
	}
	if len(pub.events) != 5 {
		t.Errorf("published %d events, want 5", len(pub.events))
	}
	if !pub.closed {
		t.Error("publisher not closed")
	}
}

func TestCollector_FlushesOnBatchSize(t *testing.T) {
	pub := &memPublisher{}
	c := NewCollector(pub, 1000, nil)
	c.batchSize = 3
	c.flushInterval = time.Hour
	c.Start()
	defer c.Close()

	for i := 0; i < 3; i++ {
		c.Track(models.AnswerEvent{Question: "q"})
	}
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		pub.mu.Lock()
		n := len(pub.events)
		pub.mu.Unlock()
		if n == 3 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Error("full batch was not flushed")
}

func TestCollector_DropsWhenFull(t *testing.T) {
	pub := &memPublisher{}
	c := NewCollector(pub, 2, nil)
	// Not started: nothing drains the buffer.
	for i := 0; i < 5; i++ {
		c.Track(models.AnswerEvent{Question: "q"})
	}
	if c.Dropped() != 3 {
		t.Errorf("dropped = %d, want 3", c.Dropped())
	}
	c.Start()
	c.Close()
	if len(pub.events) != 2 {
		t.Errorf("published %d, want 2", len(pub.events))
	}
}

func TestCollector_PublishErrorIsNotFatal(t *testing.T) {
	pub := &memPublisher{err: errors.New("broker down")}
	c := NewCollector(pub, 10, nil)
	c.Start()
	c.Track(models.AnswerEvent{Question: "q"})
	if err := c.Close(); err != nil {
		t.Fatal(err)
	}
	if pub.calls != 1 {
		t.Errorf("publish calls = %d", pub.calls)
	}
}

func TestCollector_TrackAfterCloseDrops(t *testing.T) {
	pub := &memPublisher{}
	c := NewCollector(pub, 10, nil)
	c.Start()
	c.Track(models.AnswerEvent{Question: "before"})
	if err := c.Close(); err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Track(models.AnswerEvent{Question: "late"})
		}()
	}
	wg.Wait()

	if c.Dropped() != 8 {
		t.Errorf("dropped = %d, want 8", c.Dropped())
	}
	if len(pub.events) != 1 {
		t.Errorf("published %d, want 1", len(pub.events))
	}
	if err := c.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}

func TestEncodeMessages(t *testing.T) {
	ts := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	msgs, err := encodeMessages([]models.AnswerEvent{
		{Question: "Làm sao đổi vé?", UserID: "u1", Kind: models.OutcomeAnswered, Confidence: 82.5, Timestamp: ts},
		{Question: "x", Kind: models.OutcomeNotReady},
	})
	if err != nil {
		t.Fatal(err)
	}
	if string(msgs[0].Key) != "u1" || string(msgs[1].Key) != "anonymous" {
		t.Errorf("keys = %q, %q", msgs[0].Key, msgs[1].Key)
	}
	if !msgs[0].Time.Equal(ts) {
		t.Error("message time not taken from event")
	}
	var decoded map[string]any
	if err := json.Unmarshal(msgs[0].Value, &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded["kind"] != "answered" {
		t.Errorf("kind = %v", decoded["kind"])
	}
}
