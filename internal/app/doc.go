// Package app wires the data bridge together: configuration, logging,
// OpenTelemetry, the terminal and datastore clients, the domain services
// and the chi router, plus the server lifecycle (Start, Stop, Run).
//
// The wiring order matters: config and logger first, then telemetry,
// then clients, then services, then routes. Optional integrations
// (fund administrator, positions source) are skipped when their
// configuration is absent and their endpoints are simply not mounted.
package app
