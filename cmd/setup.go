package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/ec2"
	aws_helpers "github.com/cedana/cedana-spot/aws"
	"github.com/cedana/cedana-spot/db"
	"github.com/cedana/cedana-spot/pkg/flags"
	"github.com/cedana/cedana-spot/server"
	"github.com/cedana/cedana-spot/types"
	"github.com/cedana/cedana-spot/utils"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// Env bundles what every command needs to talk to EC2.
type Env struct {
	cfg    *utils.SpotConfig
	logger *zerolog.Logger
	client *ec2.Client
}

func setupEnv(ctx context.Context) (*Env, error) {
	logger := utils.GetLogger()

	cfg, err := utils.InitSpotConfig()
	if err != nil {
		return nil, err
	}

	client, err := aws_helpers.MakeClient(ctx, cfg.AWSConfig)
	if err != nil {
		return nil, fmt.Errorf("could not create aws client: %w", err)
	}

	return &Env{
		cfg:    cfg,
		logger: &logger,
		client: client,
	}, nil
}

func (e *Env) poller() aws_helpers.Poller {
	return aws_helpers.Poller{
		MaxRetries: e.cfg.Polling.MaxRetries,
		Interval:   e.cfg.Polling.Interval(),
		Logger:     e.logger,
	}
}

// Managed extends Env with the instance ledger and the event publisher.
type Managed struct {
	*Env
	db   *db.DB
	pub  server.Publisher
	spot *aws_helpers.Spot
}

func setupManaged(ctx context.Context) (*Managed, error) {
	e, err := setupEnv(ctx)
	if err != nil {
		return nil, err
	}

	ledger, err := db.NewDB(e.cfg.DBPath, e.logger)
	if err != nil {
		return nil, err
	}

	pub, err := server.NewPublisher(e.cfg.Connection, e.logger)
	if err != nil {
		return nil, err
	}

	return &Managed{
		Env: e,
		db:  ledger,
		pub: pub,
		spot: &aws_helpers.Spot{
			Logger:    e.logger,
			Client:    e.client,
			Poller:    e.poller(),
			Region:    e.cfg.AWSConfig.Region,
			Ledger:    ledger,
			Publisher: pub,
		},
	}, nil
}

func (m *Managed) Close() {
	m.pub.Close()
}

// findInstance looks id up as a cedana id, then as an instance id, then as a
// spot request id.
func (m *Managed) findInstance(id string) (*types.SpotInstance, error) {
	if id == "" {
		return nil, errors.New("an instance id is required")
	}
	if i, err := m.db.GetInstanceByCedanaID(id); err == nil {
		return i, nil
	}
	if i, err := m.db.GetInstanceByProviderID(id); err == nil {
		return i, nil
	}
	i, err := m.db.GetInstanceBySpotRequestID(id)
	if err != nil {
		return nil, fmt.Errorf("no instance in the ledger matches %s", id)
	}
	return i, nil
}

func addLaunchSpecFlags(cmd *cobra.Command) {
	cmd.Flags().StringP(flags.NameFlag.Full, flags.NameFlag.Short, "", "name tag for the spot request")
	cmd.Flags().String(flags.AMIFlag.Full, "", "AMI image id (default aws.image_id)")
	cmd.Flags().StringP(flags.InstanceTypeFlag.Full, flags.InstanceTypeFlag.Short, "", "instance type (default aws.instance_type)")
	cmd.Flags().String(flags.SecurityGroupFlag.Full, "", "security group (default aws.security_group)")
	cmd.Flags().String(flags.KeyNameFlag.Full, "", "EC2 key pair name (default aws.ssh_key_name)")
	cmd.Flags().String(flags.AZFlag.Full, "", "availability zone, any zone if empty (default aws.availability_zone)")
	cmd.Flags().Duration(flags.ValidForFlag.Full, 0, "how long the spot request stays valid (default aws.valid_for_minutes)")
}

func stringFlagOr(cmd *cobra.Command, name, fallback string) string {
	v, _ := cmd.Flags().GetString(name)
	if v == "" {
		return fallback
	}
	return v
}

// launchSpec merges command flags over the configured aws defaults.
func launchSpec(cmd *cobra.Command, cfg *utils.SpotConfig) (aws_helpers.LaunchSpec, error) {
	a := cfg.AWSConfig

	name, _ := cmd.Flags().GetString(flags.NameFlag.Full)
	if name == "" {
		return aws_helpers.LaunchSpec{}, fmt.Errorf("--%s is required", flags.NameFlag.Full)
	}

	spec := aws_helpers.LaunchSpec{
		Name:             name,
		AMI:              stringFlagOr(cmd, flags.AMIFlag.Full, a.ImageId),
		InstanceType:     stringFlagOr(cmd, flags.InstanceTypeFlag.Full, a.InstanceType),
		SecurityGroup:    stringFlagOr(cmd, flags.SecurityGroupFlag.Full, a.SecurityGroup),
		SSHKeyName:       stringFlagOr(cmd, flags.KeyNameFlag.Full, a.SSHKeyName),
		AvailabilityZone: stringFlagOr(cmd, flags.AZFlag.Full, a.AvailabilityZone),
		Region:           a.Region,
		BlockDevice: aws_helpers.BlockDevice{
			DeviceName:   a.BlockDevice.DeviceName,
			VolumeSizeGB: a.BlockDevice.VolumeSizeGB,
			VolumeType:   a.BlockDevice.VolumeType,
			Encrypted:    a.BlockDevice.Encrypted,
		},
	}
	if spec.AMI == "" || spec.InstanceType == "" {
		return spec, fmt.Errorf("an AMI and an instance type are required, pass --%s/--%s or set them in the config",
			flags.AMIFlag.Full, flags.InstanceTypeFlag.Full)
	}

	validFor, _ := cmd.Flags().GetDuration(flags.ValidForFlag.Full)
	if validFor == 0 {
		validFor = a.ValidFor()
	}
	if validFor > 0 {
		spec.ValidUntil = time.Now().Add(validFor)
	}

	return spec, nil
}
