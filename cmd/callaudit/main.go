// Callaudit records every audited service call into a queryable call
// history.
//
// It serves an HTTP API whose operations are wrapped by the capture
// interceptor, persists the resulting records asynchronously, and exposes
// them through the call history API and this command line.
//
// Usage:
//
//	# Start the server with default configuration
//	callaudit run
//
//	# Start with a configuration file
//	callaudit run --config /etc/callaudit/config.yaml
//
//	# List the latest calls
//	callaudit history list --limit 20
//
//	# Show every call of one request chain
//	callaudit history correlation 3f2b9c1e-...
//
//	# Export failed calls to CSV
//	callaudit export --failures --format csv --output failures.csv
//
//	# Apply retention now
//	callaudit prune
package main

func main() {
	Execute()
}
