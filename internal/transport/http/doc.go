// Package http implements the HTTP handlers of the demand planner.
//
// Handlers stay thin: they decode and validate requests with the shared
// validator, call a service and render the response. Failures go through
// errors.ErrorHandler, which answers with RFC 7807 problem details.
//
// # Routes
//
//	GET    /api/health, /api/health/ready, /api/health/live
//	GET    /api/version
//	GET    /api/planning/uploads
//	POST   /api/planning/uploads/{kind}      multipart "file" or raw body
//	DELETE /api/planning/uploads/{kind}
//	GET    /api/planning/segments
//	PUT    /api/planning/segments
//	GET    /api/planning/drivers
//	PUT    /api/planning/drivers/{id}
//	POST   /api/planning/drivers/reset
//	GET    /api/planning/warehouse
//	PUT    /api/planning/warehouse
//	POST   /api/planning/warehouse/test
//	POST   /api/planning/forecast
//	GET    /api/planning/forecast
//	GET    /api/planning/export?format=csv|xlsx&coalesce=true
//	GET    /api/reports
//	GET    /api/reports/{name}
//	GET    /api/events                       websocket upgrade
//	GET    /metrics
package http
