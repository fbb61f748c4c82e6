// Package exporter writes forecast series to CSV and xlsx.
//
// WriteSeries and WriteWorkbook emit the fixed column order
// date, actual, xgboost, randomForest, lightGbm, dnn, consensus with absent
// values left blank, so an export read back through the normalizer yields
// the same series. CSVWriter places files in the configured reports
// directory.
package exporter
