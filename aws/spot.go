package aws

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/rs/zerolog"
)

const (
	maxRetry = 60
	waitTime = 5 * time.Second
)

// DefaultPoller checks every 5s for up to 60 attempts.
var DefaultPoller = Poller{
	MaxRetries: maxRetry,
	Interval:   waitTime,
}

var DefaultBlockDevice = BlockDevice{
	DeviceName:   "/dev/sda1",
	VolumeSizeGB: 8,
	VolumeType:   "gp2",
	Encrypted:    false,
}

type BlockDevice struct {
	DeviceName   string
	VolumeSizeGB int32
	VolumeType   string
	Encrypted    bool
}

// LaunchSpec describes a single spot instance request.
type LaunchSpec struct {
	Name          string
	AMI           string
	InstanceType  string
	SecurityGroup string
	SSHKeyName    string
	ValidUntil    time.Time
	// optional, the provider picks a zone when empty
	AvailabilityZone string
	// zero value means DefaultBlockDevice
	BlockDevice BlockDevice
	// base64 encoded, optional
	UserData string
	// used to tag CapacityError, optional
	Region string
}

// Poller re-runs a describe call at a fixed interval until the wanted field
// shows up or MaxRetries attempts have been made.
type Poller struct {
	MaxRetries int
	Interval   time.Duration
	Logger     *zerolog.Logger
}

func (p Poller) logger() *zerolog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	nop := zerolog.Nop()
	return &nop
}

// poll returns "" with a nil error when the budget runs out.
func (p Poller) poll(ctx context.Context, field string, check func(context.Context) (string, error)) (string, error) {
	for retry := 0; retry < p.MaxRetries; retry++ {
		v, err := check(ctx)
		if err != nil {
			return "", err
		}
		if v != "" {
			return v, nil
		}

		p.logger().Debug().Int("attempt", retry+1).Int("max_retries", p.MaxRetries).Msgf("%s not assigned yet", field)

		if retry == p.MaxRetries-1 {
			break
		}
		t := time.NewTimer(p.Interval)
		select {
		case <-ctx.Done():
			t.Stop()
			return "", ctx.Err()
		case <-t.C:
		}
	}

	return "", nil
}

func buildSpotRequest(spec LaunchSpec) *ec2.RequestSpotInstancesInput {
	bd := spec.BlockDevice
	if bd == (BlockDevice{}) {
		bd = DefaultBlockDevice
	}

	var az *string
	if spec.AvailabilityZone != "" {
		az = aws.String(spec.AvailabilityZone)
	}

	launch := &types.RequestSpotLaunchSpecification{
		SecurityGroups: []string{spec.SecurityGroup},
		BlockDeviceMappings: []types.BlockDeviceMapping{
			{
				DeviceName: aws.String(bd.DeviceName),
				Ebs: &types.EbsBlockDevice{
					DeleteOnTermination: aws.Bool(true),
					VolumeSize:          aws.Int32(bd.VolumeSizeGB),
					VolumeType:          types.VolumeType(bd.VolumeType),
					Encrypted:           aws.Bool(bd.Encrypted),
				},
			},
		},
		ImageId:      aws.String(spec.AMI),
		InstanceType: types.InstanceType(spec.InstanceType),
		KeyName:      aws.String(spec.SSHKeyName),
		Placement: &types.SpotPlacement{
			AvailabilityZone: az,
			Tenancy:          types.TenancyDefault,
		},
		Monitoring: &types.RunInstancesMonitoringEnabled{
			Enabled: aws.Bool(false),
		},
	}
	if spec.UserData != "" {
		launch.UserData = aws.String(spec.UserData)
	}

	input := &ec2.RequestSpotInstancesInput{
		AvailabilityZoneGroup: az,
		InstanceCount:         aws.Int32(1),
		LaunchSpecification:   launch,
		TagSpecifications: []types.TagSpecification{
			{
				ResourceType: types.ResourceTypeSpotInstancesRequest,
				Tags: []types.Tag{
					{
						Key:   aws.String("Name"),
						Value: aws.String(spec.Name),
					},
				},
			},
		},
		ClientToken: generateToken(),
	}
	if !spec.ValidUntil.IsZero() {
		input.ValidUntil = aws.Time(spec.ValidUntil)
	}

	return input
}

// RequestSpotInstance submits a one-instance spot request and returns its id,
// or "" if the provider did not return a request.
func RequestSpotInstance(ctx context.Context, api EC2SpotAPI, spec LaunchSpec) (string, error) {
	out, err := api.RequestSpotInstances(ctx, buildSpotRequest(spec))
	if err != nil {
		return "", asCapacityError(err, spec.Region)
	}

	if len(out.SpotInstanceRequests) == 0 {
		return "", nil
	}
	return StringPtrToString(out.SpotInstanceRequests[0].SpotInstanceRequestId), nil
}

// WaitForSpotInstance polls the spot request until an instance id is assigned.
// Returns "" if none shows up within the retry budget.
func WaitForSpotInstance(ctx context.Context, api EC2SpotAPI, requestID string) (string, error) {
	return DefaultPoller.WaitForSpotInstance(ctx, api, requestID)
}

// GetPublicDNSName polls the instance until a public dns name is assigned.
// Returns "" if none shows up within the retry budget.
func GetPublicDNSName(ctx context.Context, api EC2SpotAPI, instanceID string) (string, error) {
	return DefaultPoller.GetPublicDNSName(ctx, api, instanceID)
}

func (p Poller) WaitForSpotInstance(ctx context.Context, api EC2SpotAPI, requestID string) (string, error) {
	input := &ec2.DescribeSpotInstanceRequestsInput{
		SpotInstanceRequestIds: []string{requestID},
	}

	return p.poll(ctx, "instance id", func(ctx context.Context) (string, error) {
		out, err := api.DescribeSpotInstanceRequests(ctx, input)
		if err != nil {
			return "", err
		}
		if len(out.SpotInstanceRequests) == 0 {
			return "", nil
		}
		return StringPtrToString(out.SpotInstanceRequests[0].InstanceId), nil
	})
}

func (p Poller) GetPublicDNSName(ctx context.Context, api EC2SpotAPI, instanceID string) (string, error) {
	input := &ec2.DescribeInstancesInput{
		InstanceIds: []string{instanceID},
	}

	return p.poll(ctx, "public dns name", func(ctx context.Context) (string, error) {
		out, err := api.DescribeInstances(ctx, input)
		if err != nil {
			return "", err
		}
		if len(out.Reservations) == 0 || len(out.Reservations[0].Instances) == 0 {
			return "", nil
		}
		return StringPtrToString(out.Reservations[0].Instances[0].PublicDnsName), nil
	})
}

func TerminateInstance(ctx context.Context, api EC2SpotAPI, instanceID string) error {
	_, err := api.TerminateInstances(ctx, &ec2.TerminateInstancesInput{
		InstanceIds: []string{instanceID},
	})
	return err
}

func CancelSpotInstanceRequest(ctx context.Context, api EC2SpotAPI, requestID string) error {
	_, err := api.CancelSpotInstanceRequests(ctx, &ec2.CancelSpotInstanceRequestsInput{
		SpotInstanceRequestIds: []string{requestID},
	})
	return err
}
