package cmd

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/cedana/cedana-spot/db"
	"github.com/cedana/cedana-spot/types"
	"github.com/cedana/cedana-spot/utils"
	"github.com/spf13/cobra"
)

func testConfig() *utils.SpotConfig {
	return &utils.SpotConfig{
		AWSConfig: utils.AWSConfig{
			Region:          "eu-west-1",
			ImageId:         "ami-config",
			InstanceType:    "t3.micro",
			SecurityGroup:   "sg-config",
			SSHKeyName:      "key-config",
			ValidForMinutes: 60,
			BlockDevice: utils.BlockDeviceConfig{
				DeviceName:   "/dev/xvda",
				VolumeSizeGB: 20,
				VolumeType:   "gp3",
			},
		},
	}
}

func newSpecCmd(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "test"}
	addLaunchSpecFlags(cmd)
	if err := cmd.Flags().Parse(args); err != nil {
		t.Fatal(err)
	}
	return cmd
}

func TestLaunchSpecFromConfig(t *testing.T) {
	before := time.Now()
	spec, err := launchSpec(newSpecCmd(t, "--name", "worker"), testConfig())
	if err != nil {
		t.Fatal(err)
	}

	if spec.Name != "worker" || spec.AMI != "ami-config" || spec.InstanceType != "t3.micro" {
		t.Errorf("unexpected spec %+v", spec)
	}
	if spec.SecurityGroup != "sg-config" || spec.SSHKeyName != "key-config" || spec.Region != "eu-west-1" {
		t.Errorf("unexpected spec %+v", spec)
	}
	if spec.AvailabilityZone != "" {
		t.Errorf("availability zone = %q, want empty", spec.AvailabilityZone)
	}
	if spec.BlockDevice.DeviceName != "/dev/xvda" || spec.BlockDevice.VolumeSizeGB != 20 || spec.BlockDevice.VolumeType != "gp3" {
		t.Errorf("unexpected block device %+v", spec.BlockDevice)
	}
	if spec.ValidUntil.Before(before.Add(time.Hour)) || spec.ValidUntil.After(time.Now().Add(time.Hour)) {
		t.Errorf("valid until = %s", spec.ValidUntil)
	}
}

func TestLaunchSpecFlagsOverride(t *testing.T) {
	cmd := newSpecCmd(t,
		"--name", "worker",
		"--ami", "ami-flag",
		"--type", "c5.large",
		"--az", "eu-west-1b",
		"--valid-for", "10m",
	)

	spec, err := launchSpec(cmd, testConfig())
	if err != nil {
		t.Fatal(err)
	}
	if spec.AMI != "ami-flag" || spec.InstanceType != "c5.large" || spec.AvailabilityZone != "eu-west-1b" {
		t.Errorf("unexpected spec %+v", spec)
	}
	if spec.ValidUntil.After(time.Now().Add(10 * time.Minute)) {
		t.Errorf("valid until = %s", spec.ValidUntil)
	}
}

func TestLaunchSpecErrors(t *testing.T) {
	if _, err := launchSpec(newSpecCmd(t), testConfig()); err == nil {
		t.Error("expected missing name to fail")
	}

	cfg := testConfig()
	cfg.AWSConfig.ImageId = ""
	if _, err := launchSpec(newSpecCmd(t, "--name", "worker"), cfg); err == nil {
		t.Error("expected missing AMI to fail")
	}
}

func TestLaunchSpecNoExpiry(t *testing.T) {
	cfg := testConfig()
	cfg.AWSConfig.ValidForMinutes = 0

	spec, err := launchSpec(newSpecCmd(t, "--name", "worker"), cfg)
	if err != nil {
		t.Fatal(err)
	}
	if !spec.ValidUntil.IsZero() {
		t.Errorf("valid until = %s, want zero", spec.ValidUntil)
	}
}

func TestFindInstance(t *testing.T) {
	ledger, err := db.NewDB(filepath.Join(t.TempDir(), "spot_instances.db"), nil)
	if err != nil {
		t.Fatal(err)
	}
	m := &Managed{db: ledger}

	live, err := ledger.CreateInstance(&types.SpotInstance{SpotRequestID: "sir-live", AllocatedID: "i-live", State: types.StateRunning})
	if err != nil {
		t.Fatal(err)
	}
	// requested but never assigned an instance
	if _, err := ledger.CreateInstance(&types.SpotInstance{SpotRequestID: "sir-pending", State: types.StateRequested}); err != nil {
		t.Fatal(err)
	}

	if i, err := m.findInstance(""); err == nil {
		t.Fatalf("empty id matched %s", i.CedanaID)
	}

	for _, id := range []string{live.CedanaID, "i-live", "sir-live"} {
		i, err := m.findInstance(id)
		if err != nil {
			t.Fatalf("findInstance(%q): %v", id, err)
		}
		if i.CedanaID != live.CedanaID {
			t.Errorf("findInstance(%q) = %s, want %s", id, i.CedanaID, live.CedanaID)
		}
	}

	if _, err := m.findInstance("sir-unknown"); err == nil {
		t.Error("expected an error for an unknown id")
	}
}
