package state

// BackwashMode is the valve position requested by the backwash sequence.
type BackwashMode int

const (
	// ModeNormal lets the engine follow the schedule.
	ModeNormal BackwashMode = 0
	// ModeReposition stops everything while the operator moves the valve.
	ModeReposition BackwashMode = 1
	// ModeFlowThrough runs filtration only, for washing or rinsing.
	ModeFlowThrough BackwashMode = 2
)

// State is the controller's persisted state. The zero value is the
// factory default. State is comparable; Store relies on that to detect
// changes.
type State struct {
	// Filtration window, epoch seconds. Zero means not computed yet.
	FiltrationStart int64 `json:"filtration_start"`
	FiltrationEnd   int64 `json:"filtration_end"`
	PauseStart      int64 `json:"pause_start"`
	PauseEnd        int64 `json:"pause_end"`

	// WindowFresh is set when a window is computed and cleared once the
	// window has been entered.
	WindowFresh bool `json:"window_fresh"`

	// TemperatureMax is the peak water temperature seen since the last
	// recompute; zero means none.
	TemperatureMax float64 `json:"temperature_max"`

	FrostLatch        bool `json:"frost_latch"`
	TemperatureActive bool `json:"temperature_active"`
	// SolarActive is set by an external integration and only read here.
	SolarActive   bool `json:"solar_active"`
	WinterActive  bool `json:"winter_active"`
	BoosterActive bool `json:"booster_active"`
	ForcedOn      bool `json:"forced_on"`
	TotalStop     bool `json:"total_stop"`

	BackwashStep int          `json:"backwash_step"`
	BackwashMode BackwashMode `json:"backwash_mode"`

	// CountdownEnd is the epoch second the running booster or backwash
	// sub-step ends.
	CountdownEnd int64 `json:"countdown_end"`

	// WinterMode selects winter over season resolution.
	WinterMode bool `json:"winter_mode"`
}

// HasWindow reports whether both window bounds are set.
func (s State) HasWindow() bool {
	return s.FiltrationStart != 0 && s.FiltrationEnd != 0
}

// HasPause reports whether the stored window carries a pause.
func (s State) HasPause() bool {
	return s.PauseStart != s.PauseEnd
}

// AnyRunFlag reports whether any flag asks filtration to run.
func (s State) AnyRunFlag() bool {
	return s.TemperatureActive || s.SolarActive || s.WinterActive || s.BoosterActive || s.ForcedOn
}
