package core

import (
	"fmt"
	"strings"
)

// =============================================================================
// Severity
// =============================================================================

// Severity indicates the importance of a validation issue.
type Severity string

// Severity levels for issues.
const (
	// SeverityError marks a record that cannot be cited correctly as-is.
	SeverityError Severity = "error"
	// SeverityWarn marks missing recommended data or a questionable format.
	SeverityWarn Severity = "warn"
	// SeverityInfo is a hint that needs a human look.
	SeverityInfo Severity = "info"
)

// String returns the string representation of the severity.
func (s Severity) String() string {
	return string(s)
}

// Rank orders severities from most to least important (error = 0).
func (s Severity) Rank() int {
	switch s {
	case SeverityError:
		return 0
	case SeverityWarn:
		return 1
	case SeverityInfo:
		return 2
	default:
		return 3
	}
}

// AtLeast reports whether s is as important as threshold or more.
func (s Severity) AtLeast(threshold Severity) bool {
	return s.Rank() <= threshold.Rank()
}

// ParseSeverity converts a string to a Severity value.
// "warning" is accepted as an alias for "warn".
func ParseSeverity(s string) (Severity, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "error":
		return SeverityError, true
	case "warn", "warning":
		return SeverityWarn, true
	case "info":
		return SeverityInfo, true
	default:
		return SeverityWarn, false
	}
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Severity) UnmarshalText(b []byte) error {
	v, ok := ParseSeverity(string(b))
	if !ok {
		return fmt.Errorf("unknown severity %q", string(b))
	}
	*s = v
	return nil
}

// =============================================================================
// Issue
// =============================================================================

// Issue codes used by the validator and the project loader.
const (
	CodeMissingRequired    = "missing_required"
	CodeMissingRecommended = "missing_recommended"
	CodeBadValue           = "bad_value"
	CodeBadFormat          = "bad_format"
	CodeSuspicious         = "suspicious"
	CodeFileParseError     = "file_parse_error"
)

// Issue is a single validation finding, either for one record or for the
// whole project (file read errors and the like).
type Issue struct {
	Severity    Severity `json:"severity"`
	Field       string   `json:"field"`
	Message     string   `json:"message"`
	RecordID    string   `json:"record_id,omitempty"`
	Suggestions []string `json:"suggestions"`
	Code        string   `json:"code,omitempty"`
	RuleID      string   `json:"rule_id,omitempty"`
}

// IssueCounts tallies issues per severity.
type IssueCounts struct {
	Errors int `json:"errors"`
	Warns  int `json:"warns"`
	Infos  int `json:"infos"`
}

// CountIssues tallies the given issues.
func CountIssues(issues []Issue) IssueCounts {
	var c IssueCounts
	for _, it := range issues {
		switch it.Severity {
		case SeverityError:
			c.Errors++
		case SeverityWarn:
			c.Warns++
		case SeverityInfo:
			c.Infos++
		}
	}
	return c
}
