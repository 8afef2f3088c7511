// Package telemetry provides OpenTelemetry tracing and metrics for toolgate.
//
// Telemetry is off by default. When enabled, spans and metrics are exported
// over OTLP (grpc or http/protobuf) to a collector. Initialization failures
// never stop the server; the instance reports itself degraded and hands out
// the global no-op providers instead.
//
//	telemetry:
//	  enabled: true
//	  endpoint: "localhost:4317"
//	  protocol: grpc
//	  sampling:
//	    rate: 1.0
//	  metrics:
//	    enabled: true
//	    export_interval: 15s
//
// Tests use NewTestTelemetry, which records spans and metrics in memory.
package telemetry
