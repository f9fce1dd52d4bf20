package aws

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/ec2"
	cedana "github.com/cedana/cedana-spot/types"
)

// status codes that mean the provider is about to reclaim the instance
// https://docs.aws.amazon.com/AWSEC2/latest/UserGuide/spot-request-status.html
var interruptionCodes = map[string]bool{
	"marked-for-stop":                 true,
	"marked-for-termination":          true,
	"instance-terminated-no-capacity": true,
	"instance-terminated-by-price":    true,
}

// the provider gives a two minute warning before interrupting
const interruptionNotice = 2 * time.Minute

// GetSpotRequestStatus describes a single spot request. Returns nil if the
// provider doesn't know about it.
func GetSpotRequestStatus(ctx context.Context, api EC2SpotAPI, requestID string) (*cedana.ProviderEvent, error) {
	out, err := api.DescribeSpotInstanceRequests(ctx, &ec2.DescribeSpotInstanceRequestsInput{
		SpotInstanceRequestIds: []string{requestID},
	})
	if err != nil {
		return nil, err
	}

	if len(out.SpotInstanceRequests) == 0 {
		return nil, nil
	}

	// we only want 0th value
	req := out.SpotInstanceRequests[0]

	e := &cedana.ProviderEvent{
		SpotRequestID: StringPtrToString(req.SpotInstanceRequestId),
		InstanceID:    StringPtrToString(req.InstanceId),
		State:         string(req.State),
	}

	if req.Status != nil {
		e.FaultCode = StringPtrToString(req.Status.Code)
		e.Message = StringPtrToString(req.Status.Message)

		if interruptionCodes[e.FaultCode] {
			e.MarkedForTermination = true
			updated := time.Now()
			if req.Status.UpdateTime != nil {
				updated = *req.Status.UpdateTime
			}
			e.TerminationTime = updated.Add(interruptionNotice).Unix()
		}
	}

	return e, nil
}
