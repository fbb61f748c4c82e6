// Package warehouse reads externally produced forecast series from a
// BigQuery table through the REST API.
//
// A Settings value names the project, dataset and table plus an opaque
// bearer token. Client.FetchSeries runs
//
//	SELECT * FROM `project.dataset.table` ORDER BY date ASC LIMIT n
//
// converts every cell to a domain.Scalar using the result schema, and
// hands the rows to the column normalizer. Failures are classified by
// ClassifyError into credential, table, permission and network errors.
package warehouse
