package validate

import (
	"github.com/autocitation/autocite/pkg/core"
)

// Analyzer runs validation rules against records.
type Analyzer struct {
	config        *AnalyzerConfig
	disabledRules map[string]bool
}

// AnalyzerConfig holds configuration for the analyzer.
type AnalyzerConfig struct {
	// DisabledRules contains rule IDs to skip
	DisabledRules map[string]bool

	// SeverityOverrides changes the default severity of rules
	SeverityOverrides map[string]core.Severity
}

// NewAnalyzerConfig creates a default configuration.
func NewAnalyzerConfig() *AnalyzerConfig {
	return &AnalyzerConfig{
		DisabledRules:     make(map[string]bool),
		SeverityOverrides: make(map[string]core.Severity),
	}
}

// NewAnalyzer creates a new analyzer with optional configuration.
func NewAnalyzer(config *AnalyzerConfig) *Analyzer {
	if config == nil {
		config = NewAnalyzerConfig()
	}
	if config.DisabledRules == nil {
		config.DisabledRules = make(map[string]bool)
	}
	return &Analyzer{
		config:        config,
		disabledRules: config.DisabledRules,
	}
}

// ValidateRecord runs every enabled rule on rec, replaces rec.Issues with
// the result and returns it.
func (a *Analyzer) ValidateRecord(rec *core.Record) []core.Issue {
	if rec == nil {
		return nil
	}

	var issues []core.Issue
	for _, rule := range GetAll() {
		if a.isDisabled(rule.ID) {
			continue
		}

		for _, issue := range rule.Check(rec) {
			issue.RuleID = rule.ID
			issue.RecordID = rec.ID
			issue.Severity = a.getSeverity(rule.ID, rule.Severity)
			issues = append(issues, issue)
		}
	}

	rec.Issues = issues
	return issues
}

// ValidateRecords validates every record and returns the flattened issues.
func (a *Analyzer) ValidateRecords(records []*core.Record) []core.Issue {
	var all []core.Issue
	for _, r := range records {
		all = append(all, a.ValidateRecord(r)...)
	}
	return all
}

func (a *Analyzer) isDisabled(ruleID string) bool {
	return a.disabledRules[ruleID]
}

func (a *Analyzer) getSeverity(ruleID string, defaultSev core.Severity) core.Severity {
	if a.config != nil {
		if sev, ok := a.config.SeverityOverrides[ruleID]; ok {
			return sev
		}
	}
	return defaultSev
}

// Disable disables a rule by ID.
func (a *Analyzer) Disable(ruleID string) {
	a.disabledRules[ruleID] = true
}

// Enable enables a previously disabled rule.
func (a *Analyzer) Enable(ruleID string) {
	delete(a.disabledRules, ruleID)
}
