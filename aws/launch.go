package aws

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cedana/cedana-spot/server"
	cedana "github.com/cedana/cedana-spot/types"
	"github.com/rs/zerolog"
)

// Ledger persists every state change of a launched instance. *db.DB satisfies it.
type Ledger interface {
	CreateInstance(instance *cedana.SpotInstance) (*cedana.SpotInstance, error)
	UpdateInstance(instance *cedana.SpotInstance) error
	DeleteInstance(instance *cedana.SpotInstance) error
}

// Spot drives the full lifecycle of a single spot instance, recording each
// step in the ledger and broadcasting it to the event publisher.
type Spot struct {
	Logger    *zerolog.Logger
	Client    EC2SpotAPI
	Poller    Poller
	Region    string
	Ledger    Ledger
	Publisher server.Publisher
}

func (s *Spot) publish(ctx context.Context, t cedana.EventType, i *cedana.SpotInstance, pe *cedana.ProviderEvent) {
	if s.Publisher == nil {
		return
	}
	err := s.Publisher.Publish(ctx, cedana.LifecycleEvent{
		Type:      t,
		CedanaID:  i.CedanaID,
		Instance:  *i,
		Provider:  pe,
		Timestamp: time.Now(),
	})
	if err != nil {
		s.Logger.Warn().Err(err).Str("event", string(t)).Msg("could not publish lifecycle event")
	}
}

func (s *Spot) record(i *cedana.SpotInstance, state cedana.InstanceState) {
	i.State = state
	if err := s.Ledger.UpdateInstance(i); err != nil {
		s.Logger.Warn().Err(err).Str("cedana_id", i.CedanaID).Msg("could not update ledger")
	}
}

// Launch requests a spot instance and waits for it to get an instance id and
// a public dns name. If either wait fails the spot request is cancelled and
// any assigned instance terminated before returning.
func (s *Spot) Launch(ctx context.Context, spec LaunchSpec) (*cedana.SpotInstance, error) {
	if spec.Region == "" {
		spec.Region = s.Region
	}

	s.Logger.Info().Str("region", spec.Region).Str("instance_type", spec.InstanceType).Msg("requesting spot instance...")

	requestID, err := RequestSpotInstance(ctx, s.Client, spec)
	if err != nil {
		return nil, fmt.Errorf("could not request spot instance: %w", err)
	}
	if requestID == "" {
		return nil, errors.New("provider returned no spot instance request")
	}

	i, err := s.Ledger.CreateInstance(&cedana.SpotInstance{
		Name:             spec.Name,
		Region:           spec.Region,
		AvailabilityZone: spec.AvailabilityZone,
		ImageID:          spec.AMI,
		InstanceType:     spec.InstanceType,
		SpotRequestID:    requestID,
		State:            cedana.StateRequested,
		ValidUntil:       spec.ValidUntil,
	})
	if err != nil {
		// the request is live on the provider side, don't leak it
		s.Logger.Error().Err(err).Str("spot_request_id", requestID).Msg("could not record spot request, cancelling")
		if cerr := CancelSpotInstanceRequest(ctx, s.Client, requestID); cerr != nil {
			s.Logger.Error().Err(cerr).Str("spot_request_id", requestID).Msg("could not cancel spot request, please do so manually")
		}
		return nil, err
	}
	s.publish(ctx, cedana.EventRequested, i, nil)

	l := s.Logger.With().Str("cedana_id", i.CedanaID).Str("spot_request_id", requestID).Logger()
	l.Info().Msg("waiting for instance assignment...")

	instanceID, err := s.Poller.WaitForSpotInstance(ctx, s.Client, requestID)
	if err == nil && instanceID == "" {
		err = ErrWaitTimeout
	}
	if err != nil {
		s.fail(i)
		return i, fmt.Errorf("spot request %s was not fulfilled: %w", requestID, err)
	}

	i.AllocatedID = instanceID
	s.record(i, cedana.StateAssigned)
	s.publish(ctx, cedana.EventAssigned, i, nil)

	l.Info().Str("instance_id", instanceID).Msg("waiting for public dns name...")

	dns, err := s.Poller.GetPublicDNSName(ctx, s.Client, instanceID)
	if err == nil && dns == "" {
		err = ErrWaitTimeout
	}
	if err != nil {
		s.fail(i)
		return i, fmt.Errorf("instance %s got no public dns name: %w", instanceID, err)
	}

	i.PublicDNSName = dns
	s.record(i, cedana.StateRunning)
	s.publish(ctx, cedana.EventRunning, i, nil)

	l.Info().Str("instance_id", instanceID).Str("public_dns_name", dns).Msg("spot instance is up")

	return i, nil
}

// fail tears down whatever was allocated for i. The launch context may already
// be cancelled, so cleanup gets its own.
func (s *Spot) fail(i *cedana.SpotInstance) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if err := s.teardown(ctx, i); err != nil {
		s.Logger.Error().Err(err).Str("cedana_id", i.CedanaID).Msg("cleanup after failed launch incomplete, please check the provider console")
	}
	s.record(i, cedana.StateFailed)
	s.publish(ctx, cedana.EventFailed, i, nil)
}

// teardown terminates the instance (if any) and cancels the spot request.
// Resources the provider no longer knows about are skipped.
func (s *Spot) teardown(ctx context.Context, i *cedana.SpotInstance) error {
	var errs []error

	if i.AllocatedID != "" {
		s.Logger.Info().Str("instance_id", i.AllocatedID).Msg("terminating instance...")
		err := TerminateInstance(ctx, s.Client, i.AllocatedID)
		if err != nil && !IsNotFound(err) {
			errs = append(errs, fmt.Errorf("terminate %s: %w", i.AllocatedID, err))
		} else if IsNotFound(err) {
			s.Logger.Info().Str("instance_id", i.AllocatedID).Msg("instance not found on AWS, skipping")
		}
	}

	if i.SpotRequestID != "" {
		s.Logger.Info().Str("spot_request_id", i.SpotRequestID).Msg("cancelling spot request...")
		err := CancelSpotInstanceRequest(ctx, s.Client, i.SpotRequestID)
		if err != nil && !IsNotFound(err) {
			errs = append(errs, fmt.Errorf("cancel %s: %w", i.SpotRequestID, err))
		} else if IsNotFound(err) {
			s.Logger.Info().Str("spot_request_id", i.SpotRequestID).Msg("spot request not found on AWS, skipping")
		}
	}

	return errors.Join(errs...)
}

// Destroy terminates the instance, cancels its spot request and soft deletes
// the ledger entry.
func (s *Spot) Destroy(ctx context.Context, i *cedana.SpotInstance) error {
	if err := s.teardown(ctx, i); err != nil {
		return err
	}

	if err := s.Ledger.DeleteInstance(i); err != nil {
		return fmt.Errorf("could not remove instance from ledger: %w", err)
	}
	s.publish(ctx, cedana.EventDestroyed, i, nil)

	s.Logger.Info().Str("cedana_id", i.CedanaID).Msg("done!")
	return nil
}

// CheckInterruption refreshes the provider status of a running instance and
// marks it in the ledger if the provider is about to reclaim it.
func (s *Spot) CheckInterruption(ctx context.Context, i *cedana.SpotInstance) (*cedana.ProviderEvent, error) {
	e, err := GetSpotRequestStatus(ctx, s.Client, i.SpotRequestID)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, nil
	}

	if e.MarkedForTermination && i.State != cedana.StateMarkedForTermination {
		s.Logger.Warn().
			Str("cedana_id", i.CedanaID).
			Str("instance_id", i.AllocatedID).
			Str("code", e.FaultCode).
			Time("termination_time", time.Unix(e.TerminationTime, 0)).
			Msg("spot instance marked for interruption")
		s.record(i, cedana.StateMarkedForTermination)
		s.publish(ctx, cedana.EventMarkedForTermination, i, e)
	}

	return e, nil
}
