// Package tokenauth implements stateless token based authentication and
// authorization: issuance, verification and refresh of signed access/refresh
// token pairs, per-request reconstruction of an authentication context
// without a server side session store, and a pluggable path-scoped
// authorization engine.
//
// Token lifecycle:
//   - Manager.Create issues an access/refresh pair. The access token carries
//     the subject uid, an optional run-as uid, and a bit-packed snapshot of
//     the account status. The refresh token is bound to both the access token
//     and the password hash at issuance, so a password change implicitly
//     invalidates every outstanding refresh token.
//   - Manager.Restore rebuilds an Authentication from the access token on
//     every request. The status flags decoded from the token, not the live
//     principal store, are authoritative for that request. A server side lock
//     therefore takes effect at the next refresh, not immediately. That
//     trade-off is deliberate; do not "fix" it by adding a live store check.
//
// Request integration:
//   - Restorer extracts a candidate token (query arg, then header, then
//     cookie), restores it at most once per request, and caches the outcome
//     on the request carrier. Adapters for go-router, fiber, and net/http
//     live under middleware/ and share this one code path.
//   - Engine evaluates exclude patterns and path-scoped checkers against the
//     restored Authentication.
//   - Responder renders failures as a JSON error body, a login redirect, or a
//     Basic challenge depending on the negotiated content type.
//
// When no signing key is configured the codec falls back to unsigned tokens.
// That mode is insecure by default and only suitable for local development;
// see NewCodec.
package tokenauth
