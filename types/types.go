package types

import (
	"time"

	"gorm.io/gorm"
)

type InstanceState string

const (
	// spot request placed, no instance assigned yet
	StateRequested InstanceState = "requested"
	// instance id assigned to the spot request
	StateAssigned InstanceState = "assigned"
	// public dns name assigned, instance reachable
	StateRunning InstanceState = "running"
	// provider has scheduled the instance for interruption
	StateMarkedForTermination InstanceState = "marked-for-termination"
	StateFailed               InstanceState = "failed"
	StateDestroyed            InstanceState = "destroyed"
)

// SpotInstance is the local ledger entry for a single spot request and the
// instance the provider assigned to it.
type SpotInstance struct {
	gorm.Model
	CedanaID         string        `json:"cedana_id" gorm:"uniqueIndex"`
	Name             string        `json:"name"`
	Region           string        `json:"region"`
	AvailabilityZone string        `json:"availability_zone"`
	ImageID          string        `json:"image_id"`
	InstanceType     string        `json:"instance_type"`
	SpotRequestID    string        `json:"spot_request_id"`
	AllocatedID      string        `json:"allocated_id"` // id allocated by the provider, not to be used as a key
	PublicDNSName    string        `json:"public_dns_name"`
	State            InstanceState `json:"state"`
	ValidUntil       time.Time     `json:"valid_until"`
}

type CapacityError struct {
	Code    string
	Message string
	Region  string
}

func (e CapacityError) Error() string {
	return e.Message
}

type ProviderEvent struct {
	SpotRequestID string `json:"spot_request_id"`
	InstanceID    string `json:"instance_id"`
	State         string `json:"state"`
	FaultCode     string `json:"fault_code"`
	Message       string `json:"message"`
	// the below fields are deriviatives of the above, we keep the fault code for any downstream processing
	MarkedForTermination bool  `json:"marked_for_termination"`
	TerminationTime      int64 `json:"termination_time"`
}

type EventType string

const (
	EventRequested            EventType = "requested"
	EventAssigned             EventType = "assigned"
	EventRunning              EventType = "running"
	EventFailed               EventType = "failed"
	EventMarkedForTermination EventType = "marked_for_termination"
	EventDestroyed            EventType = "destroyed"
)

// LifecycleEvent is broadcast whenever a ledger entry changes state.
type LifecycleEvent struct {
	Type      EventType      `json:"type"`
	CedanaID  string         `json:"cedana_id"`
	Instance  SpotInstance   `json:"instance"`
	Provider  *ProviderEvent `json:"provider_event,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}
