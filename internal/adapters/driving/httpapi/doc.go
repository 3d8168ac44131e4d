// Package httpapi exposes the ingest and query services over a minimal
// JSON HTTP API.
package httpapi
