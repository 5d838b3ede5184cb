// Package internaldefs holds the metric name and bucket definitions
// shared by the exporter implementations.
//
// Counter and histogram definitions live here so the Prometheus and
// OTel exporters always expose identical names and bounds. A change
// here affects every exporter at once.
package internaldefs
