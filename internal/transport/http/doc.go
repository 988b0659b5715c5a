// Package http contains the chi handlers for the bridge's HTTP surface:
// quote and series retrieval, the market-data update trigger, the economic
// calendar, export processing, fund-admin pass-through, and the position
// report.
//
// Handlers depend on interfaces declared in this package, not on concrete
// services, and render failures as RFC 7807 problem documents through the
// shared error handler.
package http
