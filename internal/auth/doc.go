// Package auth issues and verifies the bearer tokens of the pool
// controller's HTTP API.
//
// Tokens are HS256 JWTs carrying the subject and one of two roles:
//
//	viewer    reads state and displays, watches the WebSocket feed
//	operator  everything a viewer can do, plus pressing buttons
//
// The role-permission table is static; no database lookup is involved.
// Tokens are minted offline with cmd/pooltoken.
package auth
