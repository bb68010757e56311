// Package core defines the shared language of the autocite system.
//
// This package contains:
//   - Bibliographic entities (Record, PersonName, Issue)
//   - Project state (Project, ProjectSettings)
//   - Enumerations shared by every stage (Severity, RecordType, SourceFormat)
//
// The Golden Rule: pkg/core imports only the standard library and x/ packages.
// All other packages depend on core, not the reverse.
package core
