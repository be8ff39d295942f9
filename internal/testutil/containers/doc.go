// Package containers starts throwaway Docker services for integration tests:
// MySQL for the repositories, Redis for the distributed evaluation lock and
// Mosquitto for the alert event publisher.
//
// Files carry the "integration" build tag; run them with
//
//	go test -tags=integration ./...
//
// Packages usually start one container in TestMain and call Reset or
// ClearRetained between tests rather than paying the startup cost per test.
package containers
