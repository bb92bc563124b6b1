package events

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"
)

type recordingPublisher struct {
	events []Event
	err    error
	closed bool
}

func (r *recordingPublisher) Publish(_ context.Context, ev Event) error {
	r.events = append(r.events, ev)
	return r.err
}

func (r *recordingPublisher) Close() error {
	r.closed = true
	return nil
}

func TestMultiPublishesToAll(t *testing.T) {
	boom := errors.New("boom")
	a := &recordingPublisher{}
	b := &recordingPublisher{err: boom}
	c := &recordingPublisher{}

	m := Multi{a, b, c}
	err := m.Publish(context.Background(), Event{Type: TaskDispatched, TaskID: "task-1"})
	if !errors.Is(err, boom) {
		t.Errorf("expected joined error to wrap boom, got %v", err)
	}
	for i, p := range []*recordingPublisher{a, b, c} {
		if len(p.events) != 1 {
			t.Errorf("publisher %d got %d events, want 1", i, len(p.events))
		}
	}

	if err := m.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !a.closed || !b.closed || !c.closed {
		t.Error("expected every publisher to be closed")
	}
}

func TestLogPublisher(t *testing.T) {
	var buf bytes.Buffer
	p := LogPublisher{Logger: slog.New(slog.NewJSONHandler(&buf, nil))}
	err := p.Publish(context.Background(), Event{Type: PayoutCreated, PayoutID: "payout-1", At: time.Now()})
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, `"type":"payout.created"`) || !strings.Contains(out, `"payout_id":"payout-1"`) {
		t.Errorf("log line missing fields: %s", out)
	}
}

func TestConstructorsRequireAddress(t *testing.T) {
	if _, err := NewRedisPublisher(context.Background(), RedisConfig{}); err == nil {
		t.Error("expected error for empty redis address")
	}
	if _, err := NewAMQPPublisher(AMQPConfig{}); err == nil {
		t.Error("expected error for empty amqp url")
	}
}
