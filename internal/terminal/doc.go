// Package terminal talks to the market-data gateway that fronts the trading
// terminal. The gateway exposes reference (point-in-time) and historical
// (dated series) lookups plus a health probe; this package wraps them in a
// rate-limited HTTP client with a typed error taxonomy so callers can tell a
// dead terminal apart from a bad ticker.
package terminal
