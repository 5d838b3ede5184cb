// Package httpapi mounts the session engine on net/http.
//
// It is a thin adapter: all decisions are delegated to gsnauth.Engine, and
// this package only translates them into cookies, status codes, and the
// uniform error envelope {"code", "message"}. One resolved cookie policy
// governs all cookies on a response so set and clear never disagree on
// attributes.
package httpapi
