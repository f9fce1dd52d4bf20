package aws

import (
	"errors"
	"strings"

	"github.com/aws/smithy-go"
	"github.com/cedana/cedana-spot/types"
)

// ErrWaitTimeout is returned by callers that treat an exhausted polling budget
// as a failure. The wait functions themselves return an empty string.
var ErrWaitTimeout = errors.New("timed out waiting for spot instance")

// IsNotFound reports whether err is an EC2 "*.NotFound" error, e.g.
// InvalidInstanceID.NotFound or InvalidSpotInstanceRequestID.NotFound.
func IsNotFound(err error) bool {
	var ae smithy.APIError
	if errors.As(err, &ae) {
		return strings.HasSuffix(ae.ErrorCode(), ".NotFound")
	}
	return false
}

// capacity errors are surfaced as types.CapacityError so callers can retry
// in a different zone or with a different instance type.
func asCapacityError(err error, region string) error {
	var ae smithy.APIError
	if !errors.As(err, &ae) {
		return err
	}

	switch ae.ErrorCode() {
	case "InsufficientInstanceCapacity":
		return &types.CapacityError{
			Code:    "capacity",
			Message: ae.ErrorMessage(),
			Region:  region,
		}
	case "MaxSpotInstanceCountExceeded":
		return &types.CapacityError{
			Code:    "capacity",
			Message: ae.ErrorMessage(),
			Region:  region,
		}
	}
	return err
}
