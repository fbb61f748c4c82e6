// Package dataprocessing implements the reconciliation pipeline stages that
// turn uploaded files and warehouse rows into one dated demand series.
//
// # Data Flow
//
//	upload text/xlsx -> ParseText/ParseWorkbook -> typed records
//	warehouse rows   -> Normalize              -> forecast series
//	sales + items    -> FilterSales            -> segment slice
//	segment slice    -> Aggregate              -> actual-only history
//	history+forecast -> Merge                  -> merged series
//
// Every stage is a pure function: inputs are never modified and the same
// inputs always produce the same output.
//
// # Absent Values
//
// Forecast fields are pointers. A nil field is absent, which the exporter
// writes as an empty cell, while 0 is a real observation. The parser differs
// on purpose: a malformed numeric upload cell becomes 0 so a bad line never
// aborts an upload.
package dataprocessing
