// Package report renders a MonitoringReport into the alert email body and
// its plain-text attachment. Output is deterministic for a fixed report and
// invocation timestamp.
package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/Nao-Mk2/aws-error-monitor/internal/model"
	"github.com/Nao-Mk2/aws-error-monitor/internal/query"
)

const (
	lineWidth  = 80
	timeLayout = "2006-01-02 15:04:05"
	// stampLayout names the attachment file from the invocation time.
	stampLayout = "20060102_1504"
)

// Formatter turns a MonitoringReport into an EmailMessage.
type Formatter struct {
	extract *query.Extract
}

// Option configures a Formatter.
type Option func(*Formatter)

// WithExtract adds a per-record extracted field to the attachment detail
// blocks, using the custom query definition's JMESPath expression.
func WithExtract(e *query.Extract) Option {
	return func(f *Formatter) { f.extract = e }
}

// New creates a Formatter.
func New(opts ...Option) *Formatter {
	f := &Formatter{}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Format derives the alert email from the report. invoked is the invocation
// timestamp used for the attachment filename.
func (f *Formatter) Format(rep model.MonitoringReport, invoked time.Time) model.EmailMessage {
	return model.EmailMessage{
		Subject:        fmt.Sprintf("[%s] ALERT: %s Errors", rep.Environment, rep.Service),
		Body:           f.body(rep),
		AttachmentName: AttachmentName(rep, invoked),
		Attachment:     []byte(f.attachment(rep)),
		Recipients:     rep.Recipients,
	}
}

// AttachmentName returns
// <project>_<servicetype>_errors_<env>_<YYYYMMDD>_<HHMM>.txt for the
// invocation's own timestamp.
func AttachmentName(rep model.MonitoringReport, invoked time.Time) string {
	return fmt.Sprintf("%s_%s_errors_%s_%s.txt",
		strings.ToLower(rep.Project),
		rep.ServiceType,
		strings.ToLower(rep.Environment),
		invoked.UTC().Format(stampLayout),
	)
}

func (f *Formatter) body(rep model.MonitoringReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s Error Alert - %s\n\n", rep.Project, rep.Service, rep.Environment)
	b.WriteString(rule('=') + "\n\n")

	b.WriteString("MONITORING PERIOD\n")
	fmt.Fprintf(&b, "  Time Range: %s to %s UTC\n",
		rep.WindowStart.UTC().Format(timeLayout), rep.WindowEnd.UTC().Format(timeLayout))
	fmt.Fprintf(&b, "  Duration: %d minutes\n\n", durationMinutes(rep))

	b.WriteString("ALERT SUMMARY\n")
	fmt.Fprintf(&b, "  Total Errors Found: %d\n", rep.TotalErrors)
	fmt.Fprintf(&b, "  Project: %s\n", rep.Project)
	fmt.Fprintf(&b, "  Environment: %s\n", rep.Environment)
	fmt.Fprintf(&b, "  Service: %s\n", rep.Service)
	fmt.Fprintf(&b, "  Affected Log Groups: %d\n\n", rep.AffectedGroups())

	b.WriteString("LOG GROUP BREAKDOWN\n")
	for _, g := range rep.Groups {
		if g.Failed() {
			fmt.Fprintf(&b, "  - %s: %s\n", g.LogGroup, failureLabel(g))
			continue
		}
		fmt.Fprintf(&b, "  - %s: %d errors\n", g.LogGroup, g.Count)
	}

	b.WriteString("\n" + rule('=') + "\n\n")
	b.WriteString("DETAILED INFORMATION\n")
	b.WriteString("Please review the attached file for complete error logs, timestamps, and\n")
	b.WriteString("log stream information. The attachment contains full error messages and\n")
	b.WriteString("context for troubleshooting.\n\n")
	b.WriteString("RECOMMENDED ACTIONS\n")
	b.WriteString("1. Review the attached error report\n")
	b.WriteString("2. Check CloudWatch Logs for additional context\n")
	b.WriteString("3. Investigate affected log groups and streams\n")
	b.WriteString("4. Correlate errors with application deployments or infrastructure changes\n\n")
	b.WriteString(rule('=') + "\n\n")
	fmt.Fprintf(&b, "This is an automated alert from the %s monitoring system.\n", rep.Project)
	fmt.Fprintf(&b, "Environment: %s\n", rep.Environment)
	return b.String()
}

func (f *Formatter) attachment(rep model.MonitoringReport) string {
	var b strings.Builder
	b.WriteString(rule('=') + "\n")
	fmt.Fprintf(&b, "%s - %s ERROR REPORT [%s]\n",
		strings.ToUpper(rep.Project), strings.ToUpper(rep.Service), rep.Environment)
	b.WriteString(rule('=') + "\n\n")

	b.WriteString("MONITORING PERIOD\n")
	b.WriteString(rule('-') + "\n")
	fmt.Fprintf(&b, "Start Time:  %s UTC\n", rep.WindowStart.UTC().Format(timeLayout))
	fmt.Fprintf(&b, "End Time:    %s UTC\n", rep.WindowEnd.UTC().Format(timeLayout))
	fmt.Fprintf(&b, "Duration:    %d minutes\n\n", durationMinutes(rep))

	b.WriteString("ERROR SUMMARY\n")
	b.WriteString(rule('-') + "\n")
	fmt.Fprintf(&b, "Total Errors Found:     %d\n", rep.TotalErrors)
	fmt.Fprintf(&b, "Project:                %s\n", rep.Project)
	fmt.Fprintf(&b, "Environment:            %s\n", rep.Environment)
	fmt.Fprintf(&b, "Service:                %s\n", rep.Service)
	fmt.Fprintf(&b, "Affected Log Groups:    %d\n", rep.AffectedGroups())
	if rep.TotalErrors > 0 {
		fmt.Fprintf(&b, "First Error Occurred:   %s UTC\n", rep.FirstError.UTC().Format(timeLayout))
		fmt.Fprintf(&b, "Last Error Occurred:    %s UTC\n", rep.LastError.UTC().Format(timeLayout))
	}
	b.WriteString("\n")

	b.WriteString("ERROR BREAKDOWN BY LOG GROUP\n")
	b.WriteString(rule('-') + "\n")
	for _, g := range rep.Groups {
		fmt.Fprintf(&b, "  %s\n", g.LogGroup)
		if g.Failed() {
			fmt.Fprintf(&b, "    %s\n\n", failureLabel(g))
			continue
		}
		pct := 0.0
		if rep.TotalErrors > 0 {
			pct = float64(g.Count) / float64(rep.TotalErrors) * 100
		}
		fmt.Fprintf(&b, "    %4d errors (%5.1f%%)\n\n", g.Count, pct)
	}

	b.WriteString(rule('=') + "\n\n")
	b.WriteString("DETAILED ERROR LOGS\n")
	b.WriteString(rule('=') + "\n\n")

	for _, g := range rep.Groups {
		b.WriteString("\n" + strings.Repeat("#", lineWidth) + "\n")
		fmt.Fprintf(&b, "LOG GROUP: %s\n", g.LogGroup)
		if g.Failed() {
			fmt.Fprintf(&b, "QUERY FAILED: %s\n", failureDetail(g))
			b.WriteString(strings.Repeat("#", lineWidth) + "\n\n")
			continue
		}
		fmt.Fprintf(&b, "Error Count: %d\n", g.Count)
		b.WriteString(strings.Repeat("#", lineWidth) + "\n\n")

		for i, rec := range g.Records {
			fmt.Fprintf(&b, "ERROR #%d\n", i+1)
			fmt.Fprintf(&b, "Timestamp:   %s\n", rec.Timestamp.UTC().Format(timeLayout))
			fmt.Fprintf(&b, "Log Stream:  %s\n", rec.LogStream)
			fmt.Fprintf(&b, "Message:     %s\n", rec.Message)
			if f.extract != nil {
				if v, ok := ExtractField(rec.Message, f.extract.Path); ok {
					fmt.Fprintf(&b, "%-12s %s\n", f.extract.Name+":", v)
				}
			}
			b.WriteString(rule('-') + "\n\n")
		}
		if g.Count > len(g.Records) {
			fmt.Fprintf(&b, "... and %d more errors (truncated for readability)\n\n", g.Count-len(g.Records))
		}
	}

	b.WriteString(rule('=') + "\n")
	b.WriteString("Full details available in CloudWatch Logs Insights\n")
	b.WriteString(rule('=') + "\n")
	b.WriteString("END OF REPORT\n")
	b.WriteString(rule('=') + "\n")
	return b.String()
}

func durationMinutes(rep model.MonitoringReport) int {
	return int(rep.WindowEnd.Sub(rep.WindowStart) / time.Minute)
}

func failureLabel(g model.LogGroupResult) string {
	if g.Failure == model.FailureTimeout {
		return "query timed out"
	}
	return "query failed"
}

func failureDetail(g model.LogGroupResult) string {
	if g.FailureDetail != "" {
		return fmt.Sprintf("%s (%s)", failureLabel(g), g.FailureDetail)
	}
	return failureLabel(g)
}

func rule(c rune) string {
	return strings.Repeat(string(c), lineWidth)
}
