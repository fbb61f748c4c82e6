// Package files manages the archive of forecast exports in the reports
// directory. File names follow exporter.ExportFilename, so the source and
// run date of every report can be read back from its name.
package files
