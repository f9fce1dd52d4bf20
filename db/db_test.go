package db

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/cedana/cedana-spot/types"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := NewDB(filepath.Join(t.TempDir(), "ledger", "spot_instances.db"), nil)
	if err != nil {
		t.Fatal(err)
	}
	return db
}

func TestCreateAndLookup(t *testing.T) {
	db := newTestDB(t)

	inst, err := db.CreateInstance(&types.SpotInstance{
		Name:          "worker",
		Region:        "us-east-1",
		SpotRequestID: "sir-1234",
		State:         types.StateRequested,
	})
	if err != nil {
		t.Fatal(err)
	}
	if inst.CedanaID == "" {
		t.Fatal("expected a cedana id to be assigned")
	}

	got, err := db.GetInstanceByCedanaID(inst.CedanaID)
	if err != nil {
		t.Fatal(err)
	}
	if got.SpotRequestID != "sir-1234" || got.Name != "worker" {
		t.Errorf("unexpected instance %+v", got)
	}

	got, err = db.GetInstanceBySpotRequestID("sir-1234")
	if err != nil {
		t.Fatal(err)
	}
	if got.CedanaID != inst.CedanaID {
		t.Errorf("cedana id = %s, want %s", got.CedanaID, inst.CedanaID)
	}

	if _, err := db.GetInstanceByCedanaID("missing"); err == nil {
		t.Error("expected an error for an unknown id")
	}
}

func TestUpdateInstance(t *testing.T) {
	db := newTestDB(t)

	inst, err := db.CreateInstance(&types.SpotInstance{SpotRequestID: "sir-1", State: types.StateRequested})
	if err != nil {
		t.Fatal(err)
	}

	inst.AllocatedID = "i-0abc"
	inst.PublicDNSName = "ec2-1-2-3-4.compute-1.amazonaws.com"
	inst.State = types.StateRunning
	if err := db.UpdateInstance(inst); err != nil {
		t.Fatal(err)
	}

	got, err := db.GetInstanceByProviderID("i-0abc")
	if err != nil {
		t.Fatal(err)
	}
	if got.State != types.StateRunning || got.PublicDNSName != inst.PublicDNSName {
		t.Errorf("unexpected instance %+v", got)
	}

	running, err := db.GetInstancesByState(types.StateRunning)
	if err != nil {
		t.Fatal(err)
	}
	if len(running) != 1 {
		t.Errorf("expected 1 running instance, got %d", len(running))
	}
}

func TestDeleteInstanceIsSoft(t *testing.T) {
	db := newTestDB(t)

	a, _ := db.CreateInstance(&types.SpotInstance{SpotRequestID: "sir-a", State: types.StateRunning})
	_, _ = db.CreateInstance(&types.SpotInstance{SpotRequestID: "sir-b", State: types.StateRunning})

	if err := db.DeleteInstance(a); err != nil {
		t.Fatal(err)
	}
	if a.State != types.StateDestroyed {
		t.Errorf("state = %s, want %s", a.State, types.StateDestroyed)
	}

	active, err := db.GetActiveInstances()
	if err != nil {
		t.Fatal(err)
	}
	if len(active) != 1 || active[0].SpotRequestID != "sir-b" {
		t.Errorf("unexpected active instances %+v", active)
	}

	all, err := db.GetAllInstances()
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 {
		t.Fatalf("expected deleted instances to be kept, got %d", len(all))
	}
	if all[0].State != types.StateDestroyed || !all[0].DeletedAt.Valid {
		t.Errorf("expected first instance to be soft deleted, got %+v", all[0])
	}
}

func TestLookupEmptyID(t *testing.T) {
	db := newTestDB(t)

	// not yet assigned, so allocated_id is empty
	if _, err := db.CreateInstance(&types.SpotInstance{SpotRequestID: "sir-a", State: types.StateRequested}); err != nil {
		t.Fatal(err)
	}

	lookups := map[string]func(string) (*types.SpotInstance, error){
		"cedana id":       db.GetInstanceByCedanaID,
		"provider id":     db.GetInstanceByProviderID,
		"spot request id": db.GetInstanceBySpotRequestID,
	}
	for name, lookup := range lookups {
		t.Run(name, func(t *testing.T) {
			got, err := lookup("")
			if !errors.Is(err, ErrEmptyID) {
				t.Errorf("got %+v, %v, want ErrEmptyID", got, err)
			}
		})
	}
}
