// Package prometheus renders engine metrics in Prometheus text
// exposition format.
//
// [New] accepts a [gsnauth.Engine] and exposes an [net/http.Handler]
// for the scrape endpoint. Counter names are prefixed gsnauth_*_total;
// the single histogram is gsnauth_verify_latency_seconds. Nothing is
// registered globally; callers mount the handler themselves.
package prometheus
