// Package csl renders bibliographies with Citation Style Language styles.
//
// Records are first converted to CSL-JSON items (RecordToItem). A Style is
// parsed from CSL XML and combined with a locale into a Processor, which
// renders plain-text bibliography entries. The processor implements the
// subset of CSL 1.0 used by common author-date and numeric styles: macros,
// sort keys, text, names, dates, numbers, labels, groups and conditionals.
// Font and display attributes are ignored since output is plain text.
//
// Styles and locales for English and Korean are bundled in the binary;
// bundled styles are addressed as "embedded:<file>.csl".
package csl
