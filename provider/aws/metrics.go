package aws

import (
	"context"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/pkg/errors"
)

// observeWindow is the range of datapoints fetched per observation. The most
// recent datapoint in the window is the observed value.
const observeWindow = 10 * time.Minute

// Observe returns the most recent average for a CloudWatch metric. The
// metric name is "Namespace/MetricName"; a name without a namespace reads
// from AWS/EC2.
func (p *Provider) Observe(ctx context.Context, metric string) (float64, error) {
	namespace, name := "AWS/EC2", metric
	if i := strings.LastIndex(metric, "/"); i > 0 {
		namespace, name = metric[:i], metric[i+1:]
	}

	now := time.Now()
	input := &cloudwatch.GetMetricStatisticsInput{
		Namespace:  aws.String(namespace),
		MetricName: aws.String(name),
		StartTime:  aws.Time(now.Add(-observeWindow)),
		EndTime:    aws.Time(now),
		Period:     aws.Int64(60),
		Statistics: []cloudwatch.Statistic{cloudwatch.StatisticAverage},
	}
	resp, err := p.cloudwatch.GetMetricStatisticsRequest(input).Send(ctx)
	if err != nil {
		return 0, classify("metric", metric, err)
	}
	if len(resp.Datapoints) == 0 {
		return 0, errors.Errorf("no datapoints for metric %s", metric)
	}

	latest := resp.Datapoints[0]
	for _, dp := range resp.Datapoints[1:] {
		if dp.Timestamp != nil && latest.Timestamp != nil && dp.Timestamp.After(*latest.Timestamp) {
			latest = dp
		}
	}
	return aws.Float64Value(latest.Average), nil
}
