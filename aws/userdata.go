package aws

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

const s3Scheme = "s3://"

// EC2 caps user data at 16KB before encoding
const maxUserDataBytes = 16 * 1024

// LoadUserData reads a user data script from a local path or an s3://bucket/key
// url and returns it base64 encoded, ready for the launch specification.
// An empty src returns "".
func LoadUserData(ctx context.Context, api S3GetObjectAPI, src string) (string, error) {
	if src == "" {
		return "", nil
	}

	var raw []byte
	var err error
	if strings.HasPrefix(src, s3Scheme) {
		raw, err = readS3Object(ctx, api, src)
	} else {
		raw, err = os.ReadFile(src)
	}
	if err != nil {
		return "", fmt.Errorf("could not read user data from %s: %w", src, err)
	}

	if len(raw) > maxUserDataBytes {
		return "", fmt.Errorf("user data from %s is %d bytes, limit is %d", src, len(raw), maxUserDataBytes)
	}

	return base64.StdEncoding.EncodeToString(raw), nil
}

func parseS3URL(src string) (bucket, key string, err error) {
	path := strings.TrimPrefix(src, s3Scheme)
	bucket, key, found := strings.Cut(path, "/")
	if !found || bucket == "" || key == "" {
		return "", "", fmt.Errorf("invalid s3 url %q, expected s3://bucket/key", src)
	}
	return bucket, key, nil
}

func readS3Object(ctx context.Context, api S3GetObjectAPI, src string) ([]byte, error) {
	if api == nil {
		return nil, fmt.Errorf("no s3 client configured")
	}

	bucket, key, err := parseS3URL(src)
	if err != nil {
		return nil, err
	}

	out, err := api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, err
	}
	defer out.Body.Close()

	return io.ReadAll(out.Body)
}
