package aws

import (
	"context"
	"io"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	cedana "github.com/cedana/cedana-spot/types"
)

// All fields are composed of the abbreviation of their method.
// Describe outputs are consumed one per call, the last one repeats.
type mockEC2 struct {
	// Request Spot Instances
	rsio   *ec2.RequestSpotInstancesOutput
	rsierr error
	rsiin  *ec2.RequestSpotInstancesInput

	// Describe Spot Instance Requests
	dsiro     []*ec2.DescribeSpotInstanceRequestsOutput
	dsirerr   error
	dsircalls int

	// Describe Instances
	dio     []*ec2.DescribeInstancesOutput
	dierr   error
	dicalls int

	// Terminate Instances
	tio   *ec2.TerminateInstancesOutput
	tierr error
	tiin  *ec2.TerminateInstancesInput

	// Cancel Spot Instance Requests
	csiro   *ec2.CancelSpotInstanceRequestsOutput
	csirerr error
	csirin  *ec2.CancelSpotInstanceRequestsInput
}

func (m *mockEC2) RequestSpotInstances(_ context.Context, in *ec2.RequestSpotInstancesInput, _ ...func(*ec2.Options)) (*ec2.RequestSpotInstancesOutput, error) {
	m.rsiin = in
	return m.rsio, m.rsierr
}

func (m *mockEC2) DescribeSpotInstanceRequests(_ context.Context, _ *ec2.DescribeSpotInstanceRequestsInput, _ ...func(*ec2.Options)) (*ec2.DescribeSpotInstanceRequestsOutput, error) {
	m.dsircalls++
	if m.dsirerr != nil {
		return nil, m.dsirerr
	}
	if len(m.dsiro) == 0 {
		return &ec2.DescribeSpotInstanceRequestsOutput{}, nil
	}
	idx := m.dsircalls - 1
	if idx >= len(m.dsiro) {
		idx = len(m.dsiro) - 1
	}
	return m.dsiro[idx], nil
}

func (m *mockEC2) DescribeInstances(_ context.Context, _ *ec2.DescribeInstancesInput, _ ...func(*ec2.Options)) (*ec2.DescribeInstancesOutput, error) {
	m.dicalls++
	if m.dierr != nil {
		return nil, m.dierr
	}
	if len(m.dio) == 0 {
		return &ec2.DescribeInstancesOutput{}, nil
	}
	idx := m.dicalls - 1
	if idx >= len(m.dio) {
		idx = len(m.dio) - 1
	}
	return m.dio[idx], nil
}

func (m *mockEC2) TerminateInstances(_ context.Context, in *ec2.TerminateInstancesInput, _ ...func(*ec2.Options)) (*ec2.TerminateInstancesOutput, error) {
	m.tiin = in
	return m.tio, m.tierr
}

func (m *mockEC2) CancelSpotInstanceRequests(_ context.Context, in *ec2.CancelSpotInstanceRequestsInput, _ ...func(*ec2.Options)) (*ec2.CancelSpotInstanceRequestsOutput, error) {
	m.csirin = in
	return m.csiro, m.csirerr
}

type mockS3 struct {
	// Get Object
	goo   string
	goerr error
	goin  *s3.GetObjectInput
}

func (m *mockS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	m.goin = in
	if m.goerr != nil {
		return nil, m.goerr
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(m.goo))}, nil
}

// in-memory ledger
type mockLedger struct {
	mu        sync.Mutex
	instances map[string]*cedana.SpotInstance
	states    []cedana.InstanceState
	createErr error
	nextID    int
}

func newMockLedger() *mockLedger {
	return &mockLedger{instances: make(map[string]*cedana.SpotInstance)}
}

func (l *mockLedger) CreateInstance(i *cedana.SpotInstance) (*cedana.SpotInstance, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.createErr != nil {
		return nil, l.createErr
	}
	l.nextID++
	i.CedanaID = "cn" + strings.Repeat("0", l.nextID)
	l.instances[i.CedanaID] = i
	l.states = append(l.states, i.State)
	return i, nil
}

func (l *mockLedger) UpdateInstance(i *cedana.SpotInstance) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.states = append(l.states, i.State)
	return nil
}

func (l *mockLedger) DeleteInstance(i *cedana.SpotInstance) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	i.State = cedana.StateDestroyed
	l.states = append(l.states, i.State)
	delete(l.instances, i.CedanaID)
	return nil
}

type mockPublisher struct {
	events []cedana.EventType
}

func (p *mockPublisher) Publish(_ context.Context, e cedana.LifecycleEvent) error {
	p.events = append(p.events, e.Type)
	return nil
}

func (p *mockPublisher) Close() {}
