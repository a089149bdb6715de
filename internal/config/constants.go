package config

import "retailcast/pkg/contracts"

// Application constants
const (
	AppName    = "RetailCast"
	AppVersion = contracts.Version

	// EnvPrefix namespaces every environment variable, e.g. RETAILCAST_SERVER_PORT
	EnvPrefix = "RETAILCAST"
	// ConfigFileEnv names an explicit YAML config file
	ConfigFileEnv = "RETAILCAST_CONFIG_FILE"

	// Trace exporters
	TraceExporterNone   = "none"
	TraceExporterStdout = "stdout"
)

// API endpoints
const (
	APIBasePath       = "/api/v1"
	BasketEndpoint    = "/api/v1/basket"
	ForecastEndpoint  = "/api/v1/forecast"
	SalesEndpoint     = "/api/v1/sales"
	HealthEndpoint    = "/api/health"
	MetricsEndpoint   = "/metrics"
	VersionEndpoint   = "/api/version"
	ReadinessEndpoint = "/api/health/ready"
	LivenessEndpoint  = "/api/health/live"
)
