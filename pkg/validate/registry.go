package validate

import (
	"sort"
	"sync"

	"github.com/autocitation/autocite/pkg/core"
)

// Rule groups, in the order their issues are reported.
const (
	GroupRequired   = "required"
	GroupType       = "type"
	GroupFormat     = "format"
	GroupSuspicious = "suspicious"
)

var groupOrder = map[string]int{
	GroupRequired:   0,
	GroupType:       1,
	GroupFormat:     2,
	GroupSuspicious: 3,
}

// globalRegistry is the single global registry for validation rules.
var globalRegistry = &Registry{
	rules: make(map[string]RuleDef),
}

// Registry stores registered validation rules.
type Registry struct {
	mu    sync.RWMutex
	rules map[string]RuleDef // keyed by ID
}

// RuleDef is a validation rule definition.
type RuleDef struct {
	ID          string        // Unique identifier, e.g., "RQ01"
	Name        string        // Human-readable name, e.g., "title-required"
	Group       string        // One of the Group* constants
	Description string        // Human-readable description
	Severity    core.Severity // Default severity
	Check       Check         // The check function
}

// Check inspects one record. Returned issues need only Field, Message, Code
// and Suggestions; the analyzer fills in the rest.
type Check func(rec *core.Record) []core.Issue

// Register adds a rule to the global registry.
// Call this from init() functions in rule packages.
func Register(rule RuleDef) {
	globalRegistry.mu.Lock()
	defer globalRegistry.mu.Unlock()
	globalRegistry.rules[rule.ID] = rule
}

// GetAll returns all registered rules ordered by group, then ID.
func GetAll() []RuleDef {
	globalRegistry.mu.RLock()
	defer globalRegistry.mu.RUnlock()

	rules := make([]RuleDef, 0, len(globalRegistry.rules))
	for _, rule := range globalRegistry.rules {
		rules = append(rules, rule)
	}
	sortRules(rules)
	return rules
}

// GetByID returns a rule by its ID.
func GetByID(id string) (RuleDef, bool) {
	globalRegistry.mu.RLock()
	defer globalRegistry.mu.RUnlock()
	rule, ok := globalRegistry.rules[id]
	return rule, ok
}

// GetByGroup returns all rules in a specific group.
func GetByGroup(group string) []RuleDef {
	var rules []RuleDef
	for _, rule := range GetAll() {
		if rule.Group == group {
			rules = append(rules, rule)
		}
	}
	return rules
}

// Count returns the number of registered rules.
func Count() int {
	globalRegistry.mu.RLock()
	defer globalRegistry.mu.RUnlock()
	return len(globalRegistry.rules)
}

// Clear removes all registered rules. Used for testing.
func Clear() {
	globalRegistry.mu.Lock()
	defer globalRegistry.mu.Unlock()
	globalRegistry.rules = make(map[string]RuleDef)
}

func sortRules(rules []RuleDef) {
	sort.Slice(rules, func(i, j int) bool {
		gi, gj := groupRank(rules[i].Group), groupRank(rules[j].Group)
		if gi != gj {
			return gi < gj
		}
		return rules[i].ID < rules[j].ID
	})
}

func groupRank(group string) int {
	if r, ok := groupOrder[group]; ok {
		return r
	}
	return len(groupOrder)
}
