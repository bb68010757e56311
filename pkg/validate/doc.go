// Package validate checks records for missing, malformed and suspicious data.
//
// Checks are registered as rules, in the same way lint rules are: each rule
// lives in the rules subpackage and registers itself from init(). Import
// that package for its side effect before validating:
//
//	import _ "github.com/autocitation/autocite/pkg/validate/rules"
//
// # Rule Groups
//
//   - required (RQ*): fields every reference needs
//   - type (TY*): fields a specific record type needs
//   - format (FM*): values present but malformed
//   - suspicious (SU*): values that look like parse or data-entry errors
//
// An Analyzer runs the registered rules, skipping disabled ones and applying
// severity overrides from configuration.
package validate
