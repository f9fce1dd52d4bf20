package aws

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/ec2"
	cedana "github.com/cedana/cedana-spot/types"
)

type mockLister struct {
	byState map[cedana.InstanceState][]cedana.SpotInstance
	err     error
}

func (l *mockLister) GetInstancesByState(state cedana.InstanceState) ([]cedana.SpotInstance, error) {
	return l.byState[state], l.err
}

func TestCheckAll(t *testing.T) {
	lister := &mockLister{byState: map[cedana.InstanceState][]cedana.SpotInstance{
		cedana.StateAssigned: {
			{CedanaID: "a", SpotRequestID: "sir-a", State: cedana.StateAssigned},
		},
		cedana.StateRunning: {
			{CedanaID: "b", SpotRequestID: "sir-b", State: cedana.StateRunning},
			{CedanaID: "c", State: cedana.StateRunning},
		},
		cedana.StateFailed: {
			{CedanaID: "d", SpotRequestID: "sir-d", State: cedana.StateFailed},
		},
	}}

	m := &mockEC2{dsiro: []*ec2.DescribeSpotInstanceRequestsOutput{statusOutput("marked-for-termination", nil)}}
	s, _, pub := newTestSpot(m)

	marked, err := s.CheckAll(context.Background(), lister)
	if err != nil {
		t.Fatal(err)
	}
	if marked != 2 {
		t.Errorf("marked = %d, want 2", marked)
	}
	if m.dsircalls != 2 {
		t.Errorf("describe calls = %d, want 2", m.dsircalls)
	}
	if len(pub.events) != 2 {
		t.Errorf("events = %v", pub.events)
	}
}

func TestCheckAllKeepsGoing(t *testing.T) {
	lister := &mockLister{byState: map[cedana.InstanceState][]cedana.SpotInstance{
		cedana.StateRunning: {
			{CedanaID: "a", SpotRequestID: "sir-a", State: cedana.StateRunning},
			{CedanaID: "b", SpotRequestID: "sir-b", State: cedana.StateRunning},
		},
	}}

	m := &mockEC2{dsirerr: errors.New("throttled")}
	s, _, _ := newTestSpot(m)

	if _, err := s.CheckAll(context.Background(), lister); err == nil {
		t.Error("expected an error")
	}
	if m.dsircalls != 2 {
		t.Errorf("describe calls = %d, want 2", m.dsircalls)
	}

	if _, err := s.CheckAll(context.Background(), &mockLister{err: errors.New("locked")}); err == nil {
		t.Error("expected ledger error to propagate")
	}
}
