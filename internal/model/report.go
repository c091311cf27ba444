package model

import "time"

// MonitoringReport aggregates the outcomes of all log groups for one
// invocation. Groups follows the configuration declaration order. The report
// is built once by the aggregation step and read-only afterwards.
type MonitoringReport struct {
	Project     string
	Environment string
	Service     string
	ServiceType string

	WindowStart time.Time
	WindowEnd   time.Time

	TotalErrors int
	Groups      []LogGroupResult

	// FirstError and LastError bound the matched timestamps across all
	// successful groups; zero when no errors were found.
	FirstError time.Time
	LastError  time.Time

	Recipients []string
}

// AffectedGroups counts groups that completed with at least one match.
func (r MonitoringReport) AffectedGroups() int {
	n := 0
	for _, g := range r.Groups {
		if !g.Failed() && g.Count > 0 {
			n++
		}
	}
	return n
}

// AllFailed reports whether every configured group failed to query.
func (r MonitoringReport) AllFailed() bool {
	if len(r.Groups) == 0 {
		return false
	}
	for _, g := range r.Groups {
		if !g.Failed() {
			return false
		}
	}
	return true
}

// EmailMessage is the composed alert derived from a MonitoringReport.
type EmailMessage struct {
	Subject        string
	Body           string
	AttachmentName string
	Attachment     []byte
	Recipients     []string
}
