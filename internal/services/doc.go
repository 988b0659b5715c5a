// Package services contains the application services that sit between the
// HTTP transport and the integration clients: the market-data update
// pipeline, the quote surface, export file processing, and health reporting.
//
// Services depend on narrow consumer-side interfaces rather than concrete
// clients so tests can substitute fakes without a running gateway or
// datastore.
package services
