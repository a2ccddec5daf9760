package fleet

import (
	"sync"

	"github.com/warp/fleet-engine/generic"
)

// =============================================================================
// RANGE PICKER - Two-click booking range selection
// =============================================================================
//
//   Empty --pick(selectable)--> StartPicked
//   StartPicked --pick(other selectable, clear range)--> RangeComplete
//   StartPicked --pick(same day | blocked day | blocked range)--> StartPicked
//   RangeComplete --pick(day)--> StartPicked(day), or Empty if day is blocked
//
// There is no terminal state.

type RangeState int

const (
	RangeEmpty RangeState = iota
	RangeStartPicked
	RangeComplete
)

func (s RangeState) String() string {
	switch s {
	case RangeStartPicked:
		return "start_picked"
	case RangeComplete:
		return "range_complete"
	default:
		return "empty"
	}
}

// PickResult reports what a pick did.
type PickResult struct {
	State    RangeState
	Accepted bool
	// Start and End are set when the pick completed a range.
	Start, End generic.Day
	// Blocked lists unselectable days inside a rejected candidate range.
	Blocked []generic.Day
}

// RangePicker is not safe for concurrent use; wrap it in a PickerSession.
type RangePicker struct {
	cal   Calendar
	state RangeState
	start generic.Day
	end   generic.Day
}

func NewRangePicker(cal Calendar) *RangePicker {
	return &RangePicker{cal: cal}
}

func (p *RangePicker) State() RangeState { return p.state }

// Start returns the picked start day while in StartPicked or RangeComplete.
func (p *RangePicker) Start() (generic.Day, bool) {
	return p.start, p.state != RangeEmpty
}

// Selection returns the completed range.
func (p *RangePicker) Selection() (start, end generic.Day, ok bool) {
	if p.state != RangeComplete {
		return generic.Day{}, generic.Day{}, false
	}
	return p.start, p.end, true
}

// Reset installs a freshly derived calendar and clears the selection.
func (p *RangePicker) Reset(cal Calendar) {
	p.cal = cal
	p.state = RangeEmpty
	p.start, p.end = generic.Day{}, generic.Day{}
}

// Pick applies one click.
func (p *RangePicker) Pick(day generic.Day) PickResult {
	switch p.state {
	case RangeStartPicked:
		return p.pickEnd(day)
	case RangeComplete:
		p.state = RangeEmpty
		p.start, p.end = generic.Day{}, generic.Day{}
		return p.pickStart(day)
	default:
		return p.pickStart(day)
	}
}

func (p *RangePicker) pickStart(day generic.Day) PickResult {
	if !p.selectable(day) {
		return PickResult{State: p.state}
	}
	p.state = RangeStartPicked
	p.start = day
	return PickResult{State: p.state, Accepted: true}
}

func (p *RangePicker) pickEnd(day generic.Day) PickResult {
	if day.Equal(p.start) || !p.selectable(day) {
		return PickResult{State: p.state}
	}

	from, to := generic.MinDay(p.start, day), generic.MaxDay(p.start, day)
	var blocked []generic.Day
	for d := from; d.BeforeOrEqual(to); d = d.AddDays(1) {
		if !p.selectable(d) {
			blocked = append(blocked, d)
		}
	}
	if len(blocked) > 0 {
		return PickResult{State: p.state, Blocked: blocked}
	}

	p.state = RangeComplete
	p.start, p.end = from, to
	return PickResult{State: p.state, Accepted: true, Start: from, End: to}
}

// Days outside the classified window are never selectable.
func (p *RangePicker) selectable(day generic.Day) bool {
	dc, ok := p.cal.Get(day)
	return ok && IsSelectable(dc)
}

// =============================================================================
// DAY PICKER - Single-click maintenance scheduling
// =============================================================================

type DayPicker struct {
	cal      Calendar
	selected generic.Day
	ok       bool
}

func NewDayPicker(cal Calendar) *DayPicker {
	return &DayPicker{cal: cal}
}

// Pick accepts day iff it is schedulable; an accepted pick replaces the
// previous selection.
func (p *DayPicker) Pick(day generic.Day) bool {
	dc, ok := p.cal.Get(day)
	if !ok || !IsSchedulable(dc) {
		return false
	}
	p.selected, p.ok = day, true
	return true
}

func (p *DayPicker) Selected() (generic.Day, bool) { return p.selected, p.ok }

func (p *DayPicker) Reset(cal Calendar) {
	p.cal = cal
	p.selected, p.ok = generic.Day{}, false
}

// =============================================================================
// PICKER SESSION - Discards classifications computed for a stale vehicle
// =============================================================================

// Ticket tags one classification request.
type Ticket struct {
	Vehicle    VehicleID
	generation uint64
}

// PickerSession owns both pickers for whichever vehicle is selected.
// A slow classification for vehicle A that lands after the user switched to
// vehicle B is dropped instead of overwriting B's calendar.
type PickerSession struct {
	mu         sync.Mutex
	vehicle    VehicleID
	generation uint64
	ready      bool
	rng        *RangePicker
	day        *DayPicker
}

func NewPickerSession() *PickerSession {
	return &PickerSession{
		rng: NewRangePicker(Calendar{}),
		day: NewDayPicker(Calendar{}),
	}
}

// Select switches the session to vehicle (or refreshes it after a data
// change) and returns the ticket the next classification must carry.
// Both pickers are cleared until that classification arrives.
func (s *PickerSession) Select(vehicle VehicleID) Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
	s.vehicle = vehicle
	s.ready = false
	s.rng.Reset(Calendar{})
	s.day.Reset(Calendar{})
	return Ticket{Vehicle: vehicle, generation: s.generation}
}

// Apply installs cal if t is still the latest ticket. Returns false for a
// stale result.
func (s *PickerSession) Apply(t Ticket, cal Calendar) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.generation != s.generation || t.Vehicle != s.vehicle {
		return false
	}
	s.rng.Reset(cal)
	s.day.Reset(cal)
	s.ready = true
	return true
}

// Vehicle returns the selected vehicle and whether its calendar has arrived.
func (s *PickerSession) Vehicle() (VehicleID, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.vehicle, s.ready
}

// PickRange forwards to the range picker under the session lock.
func (s *PickerSession) PickRange(day generic.Day) PickResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Pick(day)
}

// PickDay forwards to the day picker under the session lock.
func (s *PickerSession) PickDay(day generic.Day) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.day.Pick(day)
}
