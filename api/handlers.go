/*
handlers.go - HTTP API handlers for the fleet engine

PURPOSE:
  Exposes availability calendars, range picking and revenue dashboards via
  REST. Handles HTTP request/response and JSON serialization; all
  computation is delegated to package fleet.

ENDPOINTS:
  Vehicles:
    GET    /api/vehicles                          List vehicles
    GET    /api/vehicles/{id}/calendar            Classified days
    POST   /api/vehicles/{id}/range-picks         Replay booking range clicks
    POST   /api/vehicles/{id}/maintenance-pick    Check a maintenance day

  Dashboard:
    GET    /api/dashboard/summary                 Today's cards
    GET    /api/dashboard/revenue                 Monthly revenue, year over year
    GET    /api/dashboard/daily                   Daily revenue series

  Reports:
    GET    /api/reports/monthly.csv               Per-booking attribution

  Sync:
    POST   /api/sync                              Sync the mirror now
    GET    /api/sync/status                       Latest run per collection

  Scenarios:
    GET    /api/scenarios                         List demo fleets
    GET    /api/scenarios/current                 Loaded demo fleet
    POST   /api/scenarios/load                    Load a demo fleet

REQUEST FLOW:
  1. Parse path/query/body
  2. Load a fresh snapshot from the mirror (never cached across requests)
  3. Call the engine
  4. Serialize response

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Unparseable dates, unknown statuses, bad bodies
  - 404: Unknown vehicle
  - 409: Sync already running
  - 503: Sync disabled

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/warp/fleet-engine/fleet"
	"github.com/warp/fleet-engine/generic"
	"github.com/warp/fleet-engine/source"
	"github.com/warp/fleet-engine/store/sqlite"
)

// Longest window a single request may classify or bucket.
const maxWindowDays = 366

// SyncHistory exposes past sync runs.
type SyncHistory interface {
	LatestSyncRuns(ctx context.Context) ([]sqlite.SyncRun, error)
}

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Loader *source.Loader
	Sync   *SyncScheduler // nil when no upstream is configured
	Runs   SyncHistory    // may be nil
	Mirror Mirror         // target of demo scenarios; nil disables them
	Logger *slog.Logger

	// Defaults when a request does not pass its own statuses.
	Blocking  []fleet.BookingStatus
	Countable []fleet.BookingStatus

	Now func() time.Time

	scenario scenarioState
}

// NewHandler creates a handler reading snapshots through loader.
func NewHandler(loader *source.Loader, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{Loader: loader, Logger: logger, Now: time.Now}
}

func (h *Handler) today() generic.Day { return generic.DayOf(h.Now()) }

func (h *Handler) countable() fleet.StatusSet {
	return fleet.NewStatusSet(h.Countable, fleet.DefaultCountable)
}

// =============================================================================
// VEHICLE HANDLERS
// =============================================================================

// ListVehicles returns all vehicles.
func (h *Handler) ListVehicles(w http.ResponseWriter, r *http.Request) {
	snap := h.Loader.Load(r.Context())

	dtos := make([]VehicleDTO, len(snap.Vehicles))
	for i, v := range snap.Vehicles {
		dtos[i] = toVehicleDTO(v)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetCalendar classifies every day of the window for one vehicle.
// Query: from, to (default today .. today+30), blocking, today.
func (h *Handler) GetCalendar(w http.ResponseWriter, r *http.Request) {
	today, err := dayParam(r, "today", h.today())
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid today", err)
		return
	}
	from, err := dayParam(r, "from", today)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid from date", err)
		return
	}
	to, err := dayParam(r, "to", from.AddDays(30))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid to date", err)
		return
	}
	if err := checkWindow(from, to); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid window", err)
		return
	}
	blocking, err := statusesParam(r, "blocking", h.Blocking)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid blocking statuses", err)
		return
	}

	snap := h.Loader.Load(r.Context())
	vehicle, ok := h.vehicle(w, r, snap)
	if !ok {
		return
	}

	c := fleet.Classifier{Today: today, Blocking: blocking}
	cal := c.ClassifySnapshot(vehicle.ID, from, to, snap)

	days := make([]DayDTO, 0, len(cal))
	for _, dc := range cal.Sorted() {
		days = append(days, toDayDTO(dc))
	}
	writeJSON(w, http.StatusOK, CalendarResponse{
		VehicleID: string(vehicle.ID),
		From:      from.Key(),
		To:        to.Key(),
		Today:     today.Key(),
		Blocking:  statusNames(fleet.NewStatusSet(blocking, fleet.DefaultBlocking)),
		Days:      days,
	})
}

// ReplayRangePicks feeds the clicks to a range picker and reports every step.
func (h *Handler) ReplayRangePicks(w http.ResponseWriter, r *http.Request) {
	var req RangePicksRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if len(req.Picks) == 0 {
		writeError(w, http.StatusBadRequest, "picks is required", nil)
		return
	}

	picks := make([]generic.Day, len(req.Picks))
	latest := h.today()
	for i, p := range req.Picks {
		d, err := generic.ParseDay(p)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid pick", err)
			return
		}
		picks[i] = d
		latest = generic.MaxDay(latest, d)
	}

	from, err := parseDayOr(req.From, h.today())
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid from date", err)
		return
	}
	to, err := parseDayOr(req.To, latest)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid to date", err)
		return
	}
	if err := checkWindow(from, to); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid window", err)
		return
	}

	snap := h.Loader.Load(r.Context())
	vehicle, ok := h.vehicle(w, r, snap)
	if !ok {
		return
	}

	c := fleet.Classifier{Today: h.today(), Blocking: h.Blocking}
	picker := fleet.NewRangePicker(c.ClassifySnapshot(vehicle.ID, from, to, snap))

	resp := RangePicksResponse{VehicleID: string(vehicle.ID), Steps: make([]PickStepDTO, 0, len(picks))}
	for _, d := range picks {
		res := picker.Pick(d)
		resp.Steps = append(resp.Steps, PickStepDTO{
			Date:     d.Key(),
			Accepted: res.Accepted,
			State:    res.State.String(),
			Blocked:  dayKeys(res.Blocked),
		})
	}

	resp.State = picker.State().String()
	if start, ok := picker.Start(); ok {
		resp.Start = start.Key()
	}
	if start, end, ok := picker.Selection(); ok {
		resp.Start, resp.End = start.Key(), end.Key()
	}
	writeJSON(w, http.StatusOK, resp)
}

// PickMaintenanceDay reports whether a day can take a maintenance slot.
func (h *Handler) PickMaintenanceDay(w http.ResponseWriter, r *http.Request) {
	var req MaintenancePickRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	d, err := generic.ParseDay(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date", err)
		return
	}

	snap := h.Loader.Load(r.Context())
	vehicle, ok := h.vehicle(w, r, snap)
	if !ok {
		return
	}

	c := fleet.Classifier{Today: h.today(), Blocking: h.Blocking}
	cal := c.ClassifySnapshot(vehicle.ID, d, d, snap)
	picker := fleet.NewDayPicker(cal)
	dc, _ := cal.Get(d)

	writeJSON(w, http.StatusOK, MaintenancePickResponse{
		VehicleID: string(vehicle.ID),
		Date:      d.Key(),
		Status:    string(dc.Status),
		Accepted:  picker.Pick(d),
	})
}

func (h *Handler) vehicle(w http.ResponseWriter, r *http.Request, snap fleet.Snapshot) (fleet.Vehicle, bool) {
	id := fleet.VehicleID(chi.URLParam(r, "id"))
	v, ok := snap.Vehicle(id)
	if !ok {
		writeError(w, http.StatusNotFound, "Vehicle not found", fmt.Errorf("%w: %s", generic.ErrVehicleNotFound, id))
		return fleet.Vehicle{}, false
	}
	return v, true
}

// =============================================================================
// DASHBOARD HANDLERS
// =============================================================================

// GetSummary returns the dashboard cards. Query: date (default today).
func (h *Handler) GetSummary(w http.ResponseWriter, r *http.Request) {
	d, err := dayParam(r, "date", h.today())
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date", err)
		return
	}

	snap := h.Loader.Load(r.Context())
	writeJSON(w, http.StatusOK, toSummaryDTO(fleet.Summarize(snap, d, h.countable())))
}

// GetMonthlyRevenue returns twelve monthly buckets for year and year-1.
func (h *Handler) GetMonthlyRevenue(w http.ResponseWriter, r *http.Request) {
	year, err := intParam(r, "year", h.today().Year())
	if err != nil || year < 1 || year > 9999 {
		writeError(w, http.StatusBadRequest, "Invalid year", err)
		return
	}

	snap := h.Loader.Load(r.Context())
	bookings := fleet.FilterBookings(snap.Bookings, h.countable())

	current, total := toBucketDTOs(fleet.MonthlyBuckets(bookings, year))
	previous, _ := toBucketDTOs(fleet.MonthlyBuckets(bookings, year-1))
	writeJSON(w, http.StatusOK, RevenueResponse{Year: year, Current: current, Previous: previous, Total: total})
}

// GetDailyRevenue returns one bucket per day. Query: from, to (default
// the current month).
func (h *Handler) GetDailyRevenue(w http.ResponseWriter, r *http.Request) {
	today := h.today()
	from, err := dayParam(r, "from", generic.NewDay(today.Year(), today.Month(), 1))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid from date", err)
		return
	}
	to, err := dayParam(r, "to", generic.NewDay(from.Year(), from.Month()+1, 0))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid to date", err)
		return
	}
	if err := checkWindow(from, to); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid window", err)
		return
	}

	snap := h.Loader.Load(r.Context())
	bookings := fleet.FilterBookings(snap.Bookings, h.countable())

	current, total := toBucketDTOs(fleet.DailyRevenue(bookings, from, to))
	writeJSON(w, http.StatusOK, RevenueResponse{Current: current, Total: total})
}

// =============================================================================
// REPORT HANDLERS
// =============================================================================

// ExportMonthlyReport streams the per-booking attribution of one month as
// CSV. Query: year, month (default the current month).
func (h *Handler) ExportMonthlyReport(w http.ResponseWriter, r *http.Request) {
	today := h.today()
	year, err := intParam(r, "year", today.Year())
	if err != nil || year < 1 || year > 9999 {
		writeError(w, http.StatusBadRequest, "Invalid year", err)
		return
	}
	month, err := intParam(r, "month", int(today.Month()))
	if err != nil || month < 1 || month > 12 {
		writeError(w, http.StatusBadRequest, "Invalid month", err)
		return
	}

	snap := h.Loader.Load(r.Context())
	rows := fleet.MonthlyReport(snap, year, time.Month(month), h.countable())

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="revenue-%04d-%02d.csv"`, year, month))
	w.WriteHeader(http.StatusOK)

	cw := csv.NewWriter(w)
	cw.Write([]string{"booking_id", "vehicle_id", "vehicle", "start", "end", "days_in_month", "total_price", "attributed_revenue"})
	for _, row := range rows {
		cw.Write([]string{
			row.BookingID,
			string(row.VehicleID),
			row.VehicleLabel,
			row.WindowStart.Key(),
			row.WindowEnd.Key(),
			strconv.Itoa(row.OverlapDays),
			row.TotalPrice.StringFixed(2),
			row.AttributedRevenue.StringFixed(2),
		})
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		h.Logger.Error("writing csv report", "error", err)
	}
}

// =============================================================================
// SYNC HANDLERS
// =============================================================================

// TriggerSync runs an upstream sync immediately.
func (h *Handler) TriggerSync(w http.ResponseWriter, r *http.Request) {
	if h.Sync == nil {
		writeError(w, http.StatusServiceUnavailable, "Sync is disabled: no upstream configured", nil)
		return
	}
	results, err := h.Sync.RunNow(r.Context())
	if errors.Is(err, ErrSyncInProgress) {
		writeError(w, http.StatusConflict, "Sync already running", err)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Sync failed", err)
		return
	}
	writeJSON(w, http.StatusOK, SyncResponse{Results: results})
}

// GetSyncStatus returns the latest run of each collection.
func (h *Handler) GetSyncStatus(w http.ResponseWriter, r *http.Request) {
	if h.Runs == nil {
		writeJSON(w, http.StatusOK, []sqlite.SyncRun{})
		return
	}
	runs, err := h.Runs.LatestSyncRuns(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load sync runs", err)
		return
	}
	if runs == nil {
		runs = []sqlite.SyncRun{}
	}
	writeJSON(w, http.StatusOK, runs)
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

func parseDayOr(s string, def generic.Day) (generic.Day, error) {
	if strings.TrimSpace(s) == "" {
		return def, nil
	}
	return generic.ParseDay(s)
}

func dayParam(r *http.Request, name string, def generic.Day) (generic.Day, error) {
	return parseDayOr(r.URL.Query().Get(name), def)
}

func intParam(r *http.Request, name string, def int) (int, error) {
	s := strings.TrimSpace(r.URL.Query().Get(name))
	if s == "" {
		return def, nil
	}
	return strconv.Atoi(s)
}

// statusesParam parses a comma-separated status list; absent means def.
func statusesParam(r *http.Request, name string, def []fleet.BookingStatus) ([]fleet.BookingStatus, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return def, nil
	}
	var out []fleet.BookingStatus
	for _, part := range strings.Split(raw, ",") {
		s := fleet.BookingStatus(strings.ToUpper(strings.TrimSpace(part)))
		switch s {
		case fleet.BookingPending, fleet.BookingConfirmed, fleet.BookingActive, fleet.BookingCompleted, fleet.BookingCancelled:
			out = append(out, s)
		default:
			return nil, fmt.Errorf("%w: %q", generic.ErrUnknownStatus, part)
		}
	}
	return out, nil
}

func checkWindow(from, to generic.Day) error {
	if to.Before(from) {
		return generic.ErrInvalidInterval
	}
	if generic.DaysBetween(from, to) >= maxWindowDays {
		return fmt.Errorf("window longer than %d days", maxWindowDays)
	}
	return nil
}
