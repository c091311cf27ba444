package client

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/aws/aws-sdk-go-v2/service/ses"
)

// NewAWSConfig loads AWS configuration for the given region and shared
// profile. Both may be empty to use default resolution (the Lambda runtime
// provides credentials and region via its environment).
func NewAWSConfig(ctx context.Context, region, profile string) (aws.Config, error) {
	var cfgOpts []func(*config.LoadOptions) error
	if region != "" {
		cfgOpts = append(cfgOpts, config.WithRegion(region))
	}
	if profile != "" {
		cfgOpts = append(cfgOpts, config.WithSharedConfigProfile(profile))
	}
	return config.LoadDefaultConfig(ctx, cfgOpts...)
}

// NewLogsClient returns a CloudWatch Logs client for the loaded config.
func NewLogsClient(cfg aws.Config) *cloudwatchlogs.Client {
	return cloudwatchlogs.NewFromConfig(cfg)
}

// NewSESClient returns an SES client for the loaded config.
func NewSESClient(cfg aws.Config) *ses.Client {
	return ses.NewFromConfig(cfg)
}
