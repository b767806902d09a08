// Package microsoft is the Microsoft Graph adapter used to provision teams.
//
// This package provides:
//   - A Graph client bound to one delegated access token
//   - Classification of Graph failures into domain error kinds
//   - Rate limiting for Microsoft Graph API requests
//   - OAuth2 helpers for the Microsoft identity platform (PKCE and device code)
//
// # Clients
//
// A Client carries the token of the user it acts for. The GatewayFactory
// creates one per provisioning run so no authenticated state is shared
// between users.
//
// # Error Classification
//
// Non-2xx responses are turned into *domain.Error values once, in Client.do:
//   - 409, "already exist" messages and nameAlreadyExists: conflict
//   - "license information" messages: license restricted
//   - 429 and 5xx: transient (Retry-After is honoured by the rate limiter)
//   - 404: not found; 401/403: permission denied; 413: payload too large
//
// Transport failures are transient and flagged as network errors.
//
// # Pagination
//
// Collection endpoints return @odata.nextLink until the last page; listAll
// follows it transparently.
//
// # Rate Limits
//
// Teams write operations are throttled per app and per tenant well below the
// global Graph quota. This package implements conservative rate limiting to
// avoid hitting them.
package microsoft
