// Package app wires the retailcast HTTP service together: configuration,
// logging, OpenTelemetry, the basket, forecast and ingest services, and the
// chi router that exposes them.
//
// # Initialization Flow
//
//	1. Load configuration from defaults, an optional YAML file and RETAILCAST_* variables
//	2. Initialize the slog logger and OpenTelemetry providers
//	3. Create business metrics and the services that record them
//	4. Register readiness checks
//	5. Build the router and the HTTP server
//
// # Usage
//
//	application, err := app.NewApplication()
//	if err != nil {
//	    return err
//	}
//	return application.Run()
//
// Run blocks until SIGINT or SIGTERM, then drains in-flight requests within
// the configured shutdown timeout and flushes telemetry. Initialization
// errors are returned to the caller; the package never calls os.Exit.
package app
