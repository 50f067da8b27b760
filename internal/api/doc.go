// Package api hosts the HTTP server, middleware, and REST handlers. Routes:
//   - GET /healthz for liveness checks.
//   - GET /metrics for Prometheus scraping.
//   - POST /v1/scrape and /v1/discover-links for single-domain work.
//   - POST /v1/batches and GET /v1/batches/{batch_id} for windowed batches
//     that run in the background.
package api
