package query

import (
	"fmt"
	"strings"
	"time"
)

// ServiceType selects the error-matching terms for a monitored workload.
type ServiceType string

const (
	ServiceLambda ServiceType = "lambda"
	ServiceECS    ServiceType = "ecs"
	ServiceRDS    ServiceType = "rds"
	ServiceCustom ServiceType = "custom"
)

// ParseServiceType validates a configured service type string.
func ParseServiceType(s string) (ServiceType, error) {
	switch st := ServiceType(strings.ToLower(strings.TrimSpace(s))); st {
	case ServiceLambda, ServiceECS, ServiceRDS, ServiceCustom:
		return st, nil
	default:
		return "", fmt.Errorf("unknown service type %q", s)
	}
}

// Term is one match clause in the Insights filter expression. A Term with a
// Field matches on that field's value; otherwise it is a regex match against
// @message.
type Term struct {
	Pattern         string `json:"pattern"`
	CaseInsensitive bool   `json:"caseInsensitive,omitempty"`
	Field           string `json:"field,omitempty"`
}

func (t Term) clause() string {
	if t.Field != "" {
		return fmt.Sprintf("%s = %q", t.Field, t.Pattern)
	}
	if t.CaseInsensitive {
		return fmt.Sprintf("@message like /%s/i", t.Pattern)
	}
	return fmt.Sprintf("@message like /%s/", t.Pattern)
}

var lambdaTerms = []Term{
	{Pattern: "ERROR"},
	{Pattern: "Error"},
	{Pattern: "Exception"},
	{Pattern: "exception"},
	{Pattern: "Traceback"},
	{Pattern: "failed", CaseInsensitive: true},
	{Pattern: "FAILED"},
	{Pattern: "ERROR", Field: "@level"},
	{Pattern: "FATAL", Field: "@level"},
}

var ecsTerms = []Term{
	{Pattern: "An unexpected error"},
	{Pattern: "unhandled exception", CaseInsensitive: true},
	{Pattern: "ERROR"},
	{Pattern: "Error"},
	{Pattern: "FATAL"},
	{Pattern: "Fatal"},
	{Pattern: "failed", CaseInsensitive: true},
	{Pattern: "exception", CaseInsensitive: true},
}

var rdsTerms = []Term{
	{Pattern: "ERROR:"},
	{Pattern: "FATAL:"},
	{Pattern: "PANIC:"},
	{Pattern: "deadlock", CaseInsensitive: true},
	{Pattern: "connection reset", CaseInsensitive: true},
	{Pattern: "could not connect", CaseInsensitive: true},
	{Pattern: "syntax error", CaseInsensitive: true},
	{Pattern: "duplicate key", CaseInsensitive: true},
	{Pattern: "constraint violation", CaseInsensitive: true},
}

// LogQuery is one Insights query bound to a log group and an absolute
// [Start, End) window.
type LogQuery struct {
	LogGroup string
	Query    string
	Start    time.Time
	End      time.Time
}

// resultLimit bounds how many rows Insights returns per query.
const resultLimit = 10000

// Builder constructs Insights queries for a fixed service type. For
// ServiceCustom the term set comes from an external Definition; the builder
// only substitutes it into the template.
type Builder struct {
	serviceType ServiceType
	terms       []Term
}

// NewBuilder returns a Builder for the given service type. def is required
// for ServiceCustom and ignored otherwise.
func NewBuilder(st ServiceType, def *Definition) (*Builder, error) {
	switch st {
	case ServiceLambda:
		return &Builder{serviceType: st, terms: lambdaTerms}, nil
	case ServiceECS:
		return &Builder{serviceType: st, terms: ecsTerms}, nil
	case ServiceRDS:
		return &Builder{serviceType: st, terms: rdsTerms}, nil
	case ServiceCustom:
		if def == nil || len(def.Terms) == 0 {
			return nil, fmt.Errorf("service type %q requires a query definition with at least one term", st)
		}
		return &Builder{serviceType: st, terms: def.Terms}, nil
	default:
		return nil, fmt.Errorf("unknown service type %q", st)
	}
}

// ServiceType returns the type the builder was constructed for.
func (b *Builder) ServiceType() ServiceType { return b.serviceType }

// Terms returns the term set in clause order.
func (b *Builder) Terms() []Term { return b.terms }

// Build returns the LogQuery for one log group over [start, end).
func (b *Builder) Build(group string, start, end time.Time) LogQuery {
	clauses := make([]string, 0, len(b.terms))
	for _, t := range b.terms {
		clauses = append(clauses, t.clause())
	}
	q := fmt.Sprintf(
		"fields @timestamp, @message, @logStream\n| sort @timestamp desc\n| limit %d\n| filter %s",
		resultLimit,
		strings.Join(clauses, "\n  or "),
	)
	return LogQuery{LogGroup: group, Query: q, Start: start, End: end}
}
