// Package auth provides authentication and session management for API Studio Core.
//
// It implements:
//   - Argon2id password hashing (bcrypt hashes are verified and upgraded)
//   - HS256 bearer tokens carrying {sub, email, role, session_id, iat, exp}
//   - Server-side sessions that can be revoked independently of the token
//   - A static global role model (user, admin) for session administration
//
// Authenticating a request is two separate checks: ParseToken validates the
// token itself, then ValidateSession confirms the referenced session is still
// active. A token with a valid signature and expiry that names a revoked
// session fails the second check only.
//
// The global admin role never grants project access; project roles live in
// the project package.
package auth
