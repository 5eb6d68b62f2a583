// Package ratelimit throttles login attempts per client address using a
// fixed window counter in Redis.
//
// Redis holds nothing but these counters. Sessions and project roles are
// always read from the database, never cached here.
//
// The limiter fails open: if Redis is unreachable, Allow reports the attempt
// as allowed together with the error so the caller can log it. Losing the
// throttle is preferable to locking every user out.
package ratelimit
