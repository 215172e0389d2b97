// Package csvio reads spreadsheet exports into items and writes the narrow
// status export.
//
// The reader is deliberately forgiving: it accepts a byte-order mark, mixed
// line endings, quoted fields holding commas, and thousands separators in the
// numeric columns. Rows it cannot make sense of are skipped, never reported.
// Only an input that yields no rows at all is surfaced as ErrNoRows by
// ParseReader.
package csvio
