// Package forecast produces the external forecast series and the written
// insights that accompany it.
//
// GeminiGenerator sends the recent sales history, item master, promotions
// and scenario drivers to a Gemini model with a JSON response schema and
// decodes the returned points. NoopGenerator is used when no provider is
// configured.
package forecast
