package monitor

import (
	"time"

	"github.com/Nao-Mk2/aws-error-monitor/internal/model"
)

// Aggregate reduces per-group outcomes into one MonitoringReport. outcomes
// must be in configuration declaration order, which the report preserves
// regardless of query completion order. Failed groups are listed with their
// reason and contribute zero to the total; retained records are capped at
// the configured per-group limit while counts keep the full match totals.
func Aggregate(cfg Config, start, end time.Time, outcomes []model.LogGroupResult) model.MonitoringReport {
	rep := model.MonitoringReport{
		Project:     cfg.Project,
		Environment: cfg.Environment,
		Service:     cfg.Service,
		ServiceType: string(cfg.ServiceType),
		WindowStart: start,
		WindowEnd:   end,
		Groups:      make([]model.LogGroupResult, 0, len(outcomes)),
		Recipients:  cfg.Recipients,
	}
	limit := cfg.recordCap()
	for _, o := range outcomes {
		if !o.Failed() {
			rep.TotalErrors += o.Count
			for _, rec := range o.Records {
				if rec.Timestamp.IsZero() {
					continue
				}
				if rep.FirstError.IsZero() || rec.Timestamp.Before(rep.FirstError) {
					rep.FirstError = rec.Timestamp
				}
				if rec.Timestamp.After(rep.LastError) {
					rep.LastError = rec.Timestamp
				}
			}
			if len(o.Records) > limit {
				o.Records = o.Records[:limit]
			}
		}
		rep.Groups = append(rep.Groups, o)
	}
	return rep
}
