// Package api implements the HTTP REST API and WebSocket server for API Studio Core.
//
// This package provides:
//   - Account endpoints: register, login, logout, profile
//   - Session listing and revocation, and the admin audit listing
//   - Project CRUD and membership under per-project roles
//   - A WebSocket feed of security events for administrators
//   - Liveness, readiness and Prometheus metrics endpoints
//
// # Authentication
//
// Protected routes expect "Authorization: Bearer <token>". The middleware
// verifies the token, loads its subject and then checks the session the
// token names against the store, so revocation takes effect on the next
// request. WebSocket connections use single-use tickets to keep tokens out
// of URLs.
//
// # Authorization
//
// Global admins may read any user's sessions and the audit log. Project
// routes are gated only by the caller's role on that project
// (owner > developer > viewer); being a global admin grants nothing there.
//
// Errors are returned as {"error":{"code":"...","message":"..."}}.
//
// The server follows the same lifecycle pattern as other components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
package api
