// Package cookie computes one consistent attribute set for all session
// cookies in a response, derived from the connection scheme, the deployment
// environment, and the configured same-site mode.
//
// The same resolver must be used at login, rotate, and logout: browsers only
// overwrite or clear a cookie when the attributes match the ones it was set
// with.
package cookie
