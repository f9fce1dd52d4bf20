package server

import (
	"context"
	"testing"

	"github.com/cedana/cedana-spot/types"
	"github.com/cedana/cedana-spot/utils"
	"github.com/rs/zerolog"
)

func TestSubject(t *testing.T) {
	tests := []struct {
		event types.LifecycleEvent
		want  string
	}{
		{
			event: types.LifecycleEvent{Type: types.EventRequested, CedanaID: "cn0abc"},
			want:  "CEDANA.spot.cn0abc.requested",
		},
		{
			event: types.LifecycleEvent{Type: types.EventMarkedForTermination, CedanaID: "cn0abc"},
			want:  "CEDANA.spot.cn0abc.marked_for_termination",
		},
	}

	for _, tt := range tests {
		if got := Subject(tt.event); got != tt.want {
			t.Errorf("Subject() = %q, want %q", got, tt.want)
		}
	}
}

func TestNewPublisherWithoutNATS(t *testing.T) {
	logger := zerolog.Nop()

	p, err := NewPublisher(utils.Connection{}, &logger)
	if err != nil {
		t.Fatal(err)
	}
	defer p.Close()

	if _, ok := p.(*LogPublisher); !ok {
		t.Fatalf("expected a LogPublisher, got %T", p)
	}

	err = p.Publish(context.Background(), types.LifecycleEvent{Type: types.EventRunning, CedanaID: "cn0abc"})
	if err != nil {
		t.Errorf("Publish() error = %v", err)
	}
}

func TestNewPublisherUnreachable(t *testing.T) {
	logger := zerolog.Nop()

	_, err := NewPublisher(utils.Connection{NATSUrl: "127.0.0.1", NATSPort: 1}, &logger)
	if err == nil {
		t.Fatal("expected an error connecting to a closed port")
	}
}
