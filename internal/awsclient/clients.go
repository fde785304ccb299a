// Package awsclient builds the AWS service clients the harness talks to.
package awsclient

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"fnprobe/pkg/logging"
)

// Clients groups the service clients of one session. All share a single
// credential chain and region.
type Clients struct {
	Region string
	Lambda *lambda.Client
	Logs   *cloudwatchlogs.Client
	S3     *s3.Client
}

// Load resolves credentials from the default chain. An empty region falls
// back to the chain's own region (AWS_REGION, shared config).
func Load(ctx context.Context, region string) (*Clients, error) {
	var opts []func(*config.LoadOptions) error
	if region != "" {
		opts = append(opts, config.WithRegion(region))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}
	if cfg.Region == "" {
		return nil, fmt.Errorf("no AWS region configured: set region in the harness file or AWS_REGION")
	}
	logging.Debug("AWS", "Loaded AWS configuration for region %s", cfg.Region)
	return FromConfig(cfg), nil
}

// FromConfig builds the clients from an existing configuration.
func FromConfig(cfg aws.Config) *Clients {
	return &Clients{
		Region: cfg.Region,
		Lambda: lambda.NewFromConfig(cfg),
		Logs:   cloudwatchlogs.NewFromConfig(cfg),
		S3:     s3.NewFromConfig(cfg),
	}
}
