package aws

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/cedana/cedana-spot/utils"
	"github.com/google/uuid"
)

// EC2SpotAPI is the subset of the EC2 client used to drive a spot instance
// through its lifecycle. *ec2.Client satisfies it.
type EC2SpotAPI interface {
	RequestSpotInstances(ctx context.Context,
		params *ec2.RequestSpotInstancesInput,
		optFns ...func(*ec2.Options)) (*ec2.RequestSpotInstancesOutput, error)

	DescribeSpotInstanceRequests(ctx context.Context,
		params *ec2.DescribeSpotInstanceRequestsInput,
		optFns ...func(*ec2.Options)) (*ec2.DescribeSpotInstanceRequestsOutput, error)

	DescribeInstances(ctx context.Context,
		params *ec2.DescribeInstancesInput,
		optFns ...func(*ec2.Options)) (*ec2.DescribeInstancesOutput, error)

	TerminateInstances(ctx context.Context,
		params *ec2.TerminateInstancesInput,
		optFns ...func(*ec2.Options)) (*ec2.TerminateInstancesOutput, error)

	CancelSpotInstanceRequests(ctx context.Context,
		params *ec2.CancelSpotInstanceRequestsInput,
		optFns ...func(*ec2.Options)) (*ec2.CancelSpotInstanceRequestsOutput, error)
}

type S3GetObjectAPI interface {
	GetObject(ctx context.Context,
		params *s3.GetObjectInput,
		optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// LoadConfig resolves SDK configuration for the configured region. Static keys
// take precedence, then the named profile, then the default credential chain.
func LoadConfig(ctx context.Context, c utils.AWSConfig) (aws.Config, error) {
	opts := []func(*config.LoadOptions) error{
		config.WithRegion(c.Region),
	}

	if c.AccessKeyID != "" && c.SecretAccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(c.AccessKeyID, c.SecretAccessKey, ""),
		))
	} else if c.Profile != "" {
		opts = append(opts, config.WithSharedConfigProfile(c.Profile))
	}

	return config.LoadDefaultConfig(ctx, opts...)
}

func MakeClient(ctx context.Context, c utils.AWSConfig) (*ec2.Client, error) {
	cfg, err := LoadConfig(ctx, c)
	if err != nil {
		return nil, err
	}
	return ec2.NewFromConfig(cfg), nil
}

func MakeS3Client(ctx context.Context, c utils.AWSConfig) (*s3.Client, error) {
	cfg, err := LoadConfig(ctx, c)
	if err != nil {
		return nil, err
	}
	return s3.NewFromConfig(cfg), nil
}

func generateToken() *string {
	// https://docs.aws.amazon.com/AWSEC2/latest/APIReference/Run_Instance_Idempotency.html
	token := uuid.New().String()
	return &token
}

// stupid AWS returns everything as a pointer
func StringPtrToString(p *string) string {
	if p != nil {
		return *p
	}
	return ""
}
