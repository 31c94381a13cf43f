// Package authapi exposes the session lifecycle over HTTP: registration,
// login, refresh rotation, logout, and the authenticated /me endpoint.
//
// Refresh secrets travel either in the JSON body or, for browser clients, in
// an HttpOnly cookie scoped to the refresh path with a CSRF double-submit
// check. Error responses never distinguish a wrong password from an unknown
// email.
package authapi
