package telemetry

// Config holds configuration for the tracer
type Config struct {
	// ServiceName is the name of the service
	ServiceName string

	// ServiceVersion is the version of the service
	ServiceVersion string

	// Enabled determines whether tracing is enabled
	// When false, a noop tracer is used
	Enabled bool

	// Endpoint is the OTLP/HTTP collector endpoint (host:port)
	// If empty, spans are recorded but not exported
	Endpoint string

	// Insecure disables TLS towards the collector
	Insecure bool

	// SampleRate is the fraction of runs to trace (0.0 to 1.0)
	SampleRate float64
}

// DefaultConfig returns the configuration used when nothing is set:
// tracing off
func DefaultConfig() Config {
	return Config{
		ServiceName:    "auditd",
		ServiceVersion: "dev",
		SampleRate:     1.0,
	}
}
