// Package upstream is the GitHub REST client behind the governed tools.
//
// Requests are authenticated with a static personal access token through
// oauth2, paced by a token-bucket transport, and bounded by a client
// timeout. Idempotent reads are retried on rate-limit and 5xx responses;
// issue creation is never retried.
package upstream
