// Package api implements the bridge's optional HTTP status server.
//
// Endpoints:
//   - GET /api/v1/health: bus connection state and the last poll cycle
//   - GET /api/v1/snapshot: the last payload sent to heating/state
//   - GET /metrics: Prometheus exposition of the poller collectors
//
// The server is read-only; control operations stay in the CLI command mode.
//
// Lifecycle:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
package api
