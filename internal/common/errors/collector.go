package errors

import (
	"strings"
	"time"
)

// Failure records one scoped error, e.g. a single (template, format) job.
type Failure struct {
	Scope     string
	Err       error
	Code      ErrorCode
	Message   string
	Timestamp time.Time
}

// Logger is the minimal logging surface the collector needs.
type Logger interface {
	Error(msg string, fields map[string]interface{})
}

// Collector accumulates scoped failures without aborting the surrounding
// run. The pipeline uses it so one failed conversion does not stop the
// remaining templates and formats.
type Collector struct {
	logger   Logger
	failures []Failure
}

func NewCollector(logger Logger) *Collector {
	return &Collector{logger: logger}
}

// Add records a failure under the given scope and logs it.
func (c *Collector) Add(scope string, err error) {
	f := Failure{
		Scope:     scope,
		Err:       err,
		Code:      CodeOf(err),
		Message:   err.Error(),
		Timestamp: time.Now().UTC(),
	}
	c.failures = append(c.failures, f)

	if c.logger != nil {
		c.logger.Error("job failed", map[string]interface{}{
			"scope": scope,
			"code":  string(f.Code),
			"error": f.Message,
		})
	}
}

// Failures returns all recorded failures in insertion order.
func (c *Collector) Failures() []Failure {
	return c.failures
}

// Empty reports whether no failure has been recorded.
func (c *Collector) Empty() bool {
	return len(c.failures) == 0
}

// Summary returns a single-line description of all failures.
func (c *Collector) Summary() string {
	if c.Empty() {
		return ""
	}
	parts := make([]string, 0, len(c.failures))
	for _, f := range c.failures {
		parts = append(parts, f.Scope+": "+f.Message)
	}
	return strings.Join(parts, "; ")
}
