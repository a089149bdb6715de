// Package config loads and validates the RetailCast configuration.
//
// # Configuration Sources
//
// Configuration is loaded from the following sources in order of precedence:
//
//  1. Environment variables (highest priority)
//  2. A YAML file named by RETAILCAST_CONFIG_FILE, or config.yaml / configs/config.yaml
//  3. Default values (lowest priority)
//
// A file value replaces a setting only while the environment left that
// setting at its default.
//
// # Environment Variables
//
// Variables follow the pattern RETAILCAST_<SECTION>_<FIELD>:
//
//	RETAILCAST_SERVER_PORT=9090
//	RETAILCAST_ANALYSIS_MIN_SUPPORT=0.02
//	RETAILCAST_FORECAST_MAX_HORIZON_DAYS=180
//	RETAILCAST_TELEMETRY_TRACE_EXPORTER=stdout
//
// # Sections
//
// Analysis carries the default rule thresholds and the miner resource limits;
// use AnalysisConfig.Thresholds and AnalysisConfig.MinerOptions to hand them to
// the basket package. Forecast carries the ensemble settings, exposed through
// ForecastConfig.EnsembleOptions.
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Tests that need no environment use config.Default().
package config
