// Package session implements aegis's session/credential lifecycle engine.
//
// It issues short-lived signed bearer tokens paired with long-lived rotating
// refresh secrets, detects refresh replay through family lineage, and supports
// per-token, per-family, and global-per-account revocation.
//
// Bearer tokens are JWTs (HS256) carrying {subject, epoch, iat, exp} and are
// self-contained: verification consults storage only for the epoch cross-check
// against the live account. Refresh secrets are opaque random strings stored
// hashed in Postgres; every rotation revokes the predecessor record and
// inserts a successor in the same family inside one transaction, so two
// concurrent refreshes of the same secret cannot both win.
//
// The engine itself is stateless and safe for unbounded concurrent use; all
// mutable state lives in the account directory and the refresh record store.
// Transport (HTTP cookie/header plumbing) is intentionally out of scope here.
package session
