// Package schedule computes the daily filtration window.
//
// Everything here is pure: given a water temperature, a pivot clock time
// and a distribution policy it returns epoch-second boundaries and the
// strings shown on the status displays. The controller decides when to
// recompute and persists the result.
//
// Season windows may carry a pause carved out around the pivot. Winter
// windows never do, and their duration never drops below a configured
// minimum.
package schedule
