package aws

import (
	"context"
	"errors"

	cedana "github.com/cedana/cedana-spot/types"
)

// InstanceLister is the read side of the ledger. *db.DB satisfies it.
type InstanceLister interface {
	GetInstancesByState(state cedana.InstanceState) ([]cedana.SpotInstance, error)
}

// states the provider can still interrupt
var watchedStates = []cedana.InstanceState{
	cedana.StateAssigned,
	cedana.StateRunning,
}

// CheckAll runs CheckInterruption against every live instance in the ledger
// and returns how many were newly marked for interruption. A failing check
// doesn't stop the sweep.
func (s *Spot) CheckAll(ctx context.Context, lister InstanceLister) (int, error) {
	var errs []error
	marked := 0

	for _, state := range watchedStates {
		instances, err := lister.GetInstancesByState(state)
		if err != nil {
			return marked, err
		}

		for idx := range instances {
			i := &instances[idx]
			if i.SpotRequestID == "" {
				continue
			}

			e, err := s.CheckInterruption(ctx, i)
			if err != nil {
				s.Logger.Warn().Err(err).Str("cedana_id", i.CedanaID).Msg("could not check spot request status")
				errs = append(errs, err)
				continue
			}
			if e == nil {
				s.Logger.Debug().Str("cedana_id", i.CedanaID).Str("spot_request_id", i.SpotRequestID).Msg("spot request unknown to provider")
				continue
			}
			if e.MarkedForTermination {
				marked++
			}
		}
	}

	return marked, errors.Join(errs...)
}
