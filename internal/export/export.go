// Package export writes project outputs: the formatted reference list, the
// records and issues workbooks, and a CSL-JSON dump.
package export

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/autocitation/autocite/pkg/core"
	"github.com/autocitation/autocite/pkg/csl"
)

// Output file names.
const (
	ReferencesFile = "references.txt"
	RecordsFile    = "records.xlsx"
	IssuesFile     = "issues.xlsx"
	CSLJSONFile    = "records.json"
)

func ensureParent(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}
	return nil
}

// WriteReferencesText writes text right-trimmed with one trailing newline.
func WriteReferencesText(text, path string) error {
	if err := ensureParent(path); err != nil {
		return err
	}
	data := strings.TrimRight(text, " \t\r\n") + "\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil { //nolint:gosec // output is meant to be shared
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// WriteCSLJSON writes records as a CSL-JSON array.
func WriteCSLJSON(records []*core.Record, path string) error {
	if err := ensureParent(path); err != nil {
		return err
	}
	data, err := json.MarshalIndent(csl.RecordsToItems(records), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode CSL-JSON: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil { //nolint:gosec // output is meant to be shared
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
