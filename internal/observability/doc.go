// Package observability wires error reporting and trace export. Metrics
// live in the metrics subpackage.
package observability
