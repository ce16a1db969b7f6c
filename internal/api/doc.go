// Package api hosts the HTTP server, middleware, and REST handlers for the
// scan service. Notable routes:
//   - GET /healthz, /readyz for Kubernetes probes.
//   - GET /metrics for Prometheus scraping.
//   - GET /api/municipalities for the selectable regions.
//   - POST /api/scan/start to queue a scan session.
//   - GET /api/scan/{scan_id}/status and /results for polling.
package api
