// Package influxdb records pool controller telemetry in InfluxDB v2.
//
// Every minute cycle produces one "pool_cycle" point tagged with the site
// and the season/winter mode. Nothing is ever read back; the bucket exists
// for dashboards.
//
// Telemetry is optional. Connect returns ErrDisabled when the influxdb
// section is switched off and the controller runs without it.
package influxdb
