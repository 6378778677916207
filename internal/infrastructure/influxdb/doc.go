// Package influxdb provides the optional attribute telemetry writer.
//
// When enabled, numeric attribute values flowing through the event bus are
// recorded as device_metrics points for dashboards and history queries.
// Writes are non-blocking and batched; InfluxDB unavailability never
// affects core event routing.
package influxdb
