package pricing

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/rs/zerolog"
)

// gather pricing data for a single instance type

const productDescription = "Linux/UNIX"

type SpotPriceAPI interface {
	DescribeSpotPriceHistory(ctx context.Context,
		params *ec2.DescribeSpotPriceHistoryInput,
		optFns ...func(*ec2.Options)) (*ec2.DescribeSpotPriceHistoryOutput, error)
}

type PricePoint struct {
	AvailabilityZone string
	InstanceType     string
	Price            float64
	Timestamp        time.Time
}

type AWSPricingModel struct {
	client SpotPriceAPI
	logger *zerolog.Logger
}

func NewAWSPricingModel(client SpotPriceAPI, logger *zerolog.Logger) *AWSPricingModel {
	return &AWSPricingModel{
		client: client,
		logger: logger,
	}
}

// GetSpotPrice returns the most recent spot price for instanceType in each
// availability zone of the client's region, cheapest first. An empty az
// queries every zone.
func (apm *AWSPricingModel) GetSpotPrice(ctx context.Context, instanceType, az string) ([]PricePoint, error) {
	input := &ec2.DescribeSpotPriceHistoryInput{
		InstanceTypes:       []types.InstanceType{types.InstanceType(instanceType)},
		ProductDescriptions: []string{productDescription},
		StartTime:           aws.Time(time.Now()),
	}
	if az != "" {
		input.AvailabilityZone = aws.String(az)
	}

	latest := make(map[string]PricePoint)

	paginator := ec2.NewDescribeSpotPriceHistoryPaginator(apm.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("error fetching spot price history: %w", err)
		}

		for _, h := range page.SpotPriceHistory {
			p, err := strconv.ParseFloat(aws.ToString(h.SpotPrice), 64)
			if err != nil {
				apm.logger.Info().Err(err).Str("price", aws.ToString(h.SpotPrice)).Msg("could not parse spot price")
				continue
			}

			pp := PricePoint{
				AvailabilityZone: aws.ToString(h.AvailabilityZone),
				InstanceType:     string(h.InstanceType),
				Price:            p,
				Timestamp:        aws.ToTime(h.Timestamp),
			}
			if cur, ok := latest[pp.AvailabilityZone]; !ok || pp.Timestamp.After(cur.Timestamp) {
				latest[pp.AvailabilityZone] = pp
			}
		}
	}

	prices := make([]PricePoint, 0, len(latest))
	for _, pp := range latest {
		prices = append(prices, pp)
	}
	sort.Slice(prices, func(i, j int) bool {
		if prices[i].Price == prices[j].Price {
			return prices[i].AvailabilityZone < prices[j].AvailabilityZone
		}
		return prices[i].Price < prices[j].Price
	})

	apm.logger.Debug().Str("instance_type", instanceType).Int("zones", len(prices)).Msg("fetched spot prices")

	return prices, nil
}
