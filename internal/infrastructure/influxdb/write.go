package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names written by the controller.
const (
	measurementCycle = "pool_cycle"
)

// CycleSample is what one minute-cycle of the controller looks like from
// the outside: the readings it used and the decision it reached.
type CycleSample struct {
	Time            time.Time
	Site            string
	WinterMode      bool
	WaterTemp       float64
	OutdoorTemp     float64
	TemperatureMax  float64
	FiltrationOn    bool
	TreatmentOn     bool
	BoosterOn       bool
	BackwashStep    int
	FrostLatch      bool
	ForcedOn        bool
	TotalStop       bool
	WindowStart     int64
	WindowEnd       int64
	CycleDurationMs int64
}

// WriteCycle records one controller cycle. The write is non-blocking;
// points are batched and flushed by the client library.
func (c *Client) WriteCycle(s CycleSample) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(cyclePoint(s))
}

// WritePoint writes a custom point stamped with the current time.
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(write.NewPoint(measurement, tags, fields, time.Now()))
}

func cyclePoint(s CycleSample) *write.Point {
	mode := "season"
	if s.WinterMode {
		mode = "winter"
	}
	ts := s.Time
	if ts.IsZero() {
		ts = time.Now()
	}

	return write.NewPoint(
		measurementCycle,
		map[string]string{
			"site": s.Site,
			"mode": mode,
		},
		map[string]interface{}{
			"water_temp":        s.WaterTemp,
			"outdoor_temp":      s.OutdoorTemp,
			"temperature_max":   s.TemperatureMax,
			"filtration":        s.FiltrationOn,
			"treatment":         s.TreatmentOn,
			"booster":           s.BoosterOn,
			"backwash_step":     s.BackwashStep,
			"frost_latch":       s.FrostLatch,
			"forced_on":         s.ForcedOn,
			"total_stop":        s.TotalStop,
			"window_start":      s.WindowStart,
			"window_end":        s.WindowEnd,
			"cycle_duration_ms": s.CycleDurationMs,
		},
		ts,
	)
}
