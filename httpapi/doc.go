// Package httpapi exposes a fitAuth Engine over HTTP.
//
// Routes:
//
//	POST     /auth/register
//	POST     /auth/login
//	GET|POST /auth/logout                  (bearer)
//	POST     /auth/reset-password
//	POST     /auth/reset-password/confirm
//	GET      /auth/me                      (bearer)
//
// Every response is JSON. Failures carry {"error": <message>} and, for
// validation failures, an "errors" map keyed by request field.
package httpapi
