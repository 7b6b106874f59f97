// Readmark - WeChat Library Reading Companion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/readmark

/*
Package opac is a client for the library system's patron loan-history API.

Every request carries an X-Hw-ApiAuth header: a compact JSON object holding
the app id, a random nonce, the Unix timestamp and the lowercase hex MD5 of

	appId=<id>&noncestr=<nonce>&timestamp=<ts>&key=<appKey>

Loan history is paged. LoanHistory stops at the first failing page and
returns whatever was collected before it together with the error, so callers
can degrade to partial or empty history.

BreakerClient wraps Client with a gobreaker circuit breaker. Business errors
reported by the API (a non-zero code, typically an unknown patron) do not
count toward tripping the breaker.

CachedSource keeps complete histories for library.cache_ttl (HW_CACHE_TTL) so
a reader pressing the recommend button twice costs one upstream fetch.
*/
package opac
