package client

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs/types"

	"github.com/Nao-Mk2/aws-error-monitor/internal/diag"
	"github.com/Nao-Mk2/aws-error-monitor/internal/model"
	"github.com/Nao-Mk2/aws-error-monitor/internal/query"
)

// InsightsAPI is the subset of the CloudWatch Logs Insights API we use.
type InsightsAPI interface {
	StartQuery(ctx context.Context, params *cloudwatchlogs.StartQueryInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.StartQueryOutput, error)
	GetQueryResults(ctx context.Context, params *cloudwatchlogs.GetQueryResultsInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.GetQueryResultsOutput, error)
}

// ErrQueryTimeout marks a submitted query that did not complete within the
// poll budget or the run's remaining time.
var ErrQueryTimeout = errors.New("query timed out")

const (
	defaultPollInterval = 2 * time.Second
	defaultPollBudget   = 60 * time.Second
)

// InsightsClient submits one Insights query per call and polls it to
// completion. A query that never completes within the budget is a timeout
// for that log group only; callers decide how to fold that into the run.
type InsightsClient struct {
	api          InsightsAPI
	pollInterval time.Duration
	pollBudget   time.Duration
	rec          diag.Recorder
}

// InsightsOption configures an InsightsClient.
type InsightsOption func(*InsightsClient)

// WithPollInterval overrides the delay between result polls.
func WithPollInterval(d time.Duration) InsightsOption {
	return func(c *InsightsClient) { c.pollInterval = d }
}

// WithPollBudget overrides the maximum total wait per query.
func WithPollBudget(d time.Duration) InsightsOption {
	return func(c *InsightsClient) { c.pollBudget = d }
}

// WithRecorder attaches a diagnostic recorder.
func WithRecorder(rec diag.Recorder) InsightsOption {
	return func(c *InsightsClient) { c.rec = rec }
}

// NewInsights creates an InsightsClient.
func NewInsights(api InsightsAPI, opts ...InsightsOption) *InsightsClient {
	c := &InsightsClient{
		api:          api,
		pollInterval: defaultPollInterval,
		pollBudget:   defaultPollBudget,
		rec:          diag.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run executes one LogQuery and returns the matched records in result order.
func (c *InsightsClient) Run(ctx context.Context, q query.LogQuery) ([]model.ErrorRecord, error) {
	started, err := c.api.StartQuery(ctx, &cloudwatchlogs.StartQueryInput{
		LogGroupName: aws.String(q.LogGroup),
		QueryString:  aws.String(q.Query),
		StartTime:    aws.Int64(q.Start.Unix()),
		EndTime:      aws.Int64(q.End.Unix()),
	})
	if err != nil {
		return nil, fmt.Errorf("start query for %s: %w", q.LogGroup, err)
	}
	queryID := aws.ToString(started.QueryId)
	c.rec.QuerySubmitted(q.LogGroup, queryID)

	began := time.Now()
	deadline := began.Add(c.pollBudget)
	for {
		res, err := c.api.GetQueryResults(ctx, &cloudwatchlogs.GetQueryResultsInput{
			QueryId: started.QueryId,
		})
		if err != nil {
			return nil, fmt.Errorf("get results for query %s: %w", queryID, err)
		}
		elapsed := time.Since(began)
		switch res.Status {
		case types.QueryStatusComplete:
			records := recordsFromRows(res.Results)
			c.rec.QueryCompleted(q.LogGroup, queryID, len(records), elapsed)
			return records, nil
		case types.QueryStatusFailed, types.QueryStatusCancelled, types.QueryStatusTimeout:
			return nil, fmt.Errorf("query %s finished with status %s", queryID, res.Status)
		}
		c.rec.QueryPolled(q.LogGroup, queryID, string(res.Status), elapsed)

		if time.Now().After(deadline) {
			return nil, fmt.Errorf("query %s for %s after %s: %w", queryID, q.LogGroup, elapsed.Round(time.Second), ErrQueryTimeout)
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("query %s for %s: %w", queryID, q.LogGroup, ErrQueryTimeout)
		case <-time.After(c.pollInterval):
		}
	}
}

// insightsTimeLayout is the format Insights uses for @timestamp values.
const insightsTimeLayout = "2006-01-02 15:04:05.000"

func recordsFromRows(rows [][]types.ResultField) []model.ErrorRecord {
	records := make([]model.ErrorRecord, 0, len(rows))
	for _, row := range rows {
		var rec model.ErrorRecord
		for _, f := range row {
			switch aws.ToString(f.Field) {
			case "@timestamp":
				if ts, err := time.Parse(insightsTimeLayout, aws.ToString(f.Value)); err == nil {
					rec.Timestamp = ts.UTC()
				}
			case "@logStream":
				rec.LogStream = aws.ToString(f.Value)
			case "@message":
				rec.Message = aws.ToString(f.Value)
			}
		}
		records = append(records, rec)
	}
	return records
}
