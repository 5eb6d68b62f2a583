// Package project manages projects and the per-project role assignments that
// gate access to them.
//
// Roles form a strict order owner > developer > viewer. A user with no
// assignment has no role at all, which is not the same as viewer. The global
// admin role from the auth package has no effect here.
//
// SQLiteDirectory does not gate its own mutations; HTTP handlers ask the
// Evaluator first. Every decision reads the store, nothing is cached.
package project
