// Package metrics exports coordinator activity as Prometheus metrics and
// serves them over HTTP when metrics.bind is configured.
package metrics
