/*
scenarios_test.go - Tests for the demo fleets

Each scenario is loaded into a mirror and read back through the regular
endpoints, so these double as end-to-end tests of the record mapping.
"Today" is 2025-06-10 as in handlers_test.go.
*/
package api

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/fleet-engine/factory"
	"github.com/warp/fleet-engine/store/memory"
	"github.com/warp/fleet-engine/store/sqlite"
)

func newScenarioHandler(t *testing.T) (*Handler, *memory.Memory) {
	t.Helper()
	mirror := memory.New()
	h := newTestHandler(t, mirror)
	h.Mirror = mirror
	return h, mirror
}

func loadScenario(t *testing.T, h *Handler, id string) {
	t.Helper()
	rec := do(t, h, http.MethodPost, "/api/scenarios/load", LoadScenarioRequest{ScenarioID: id})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func calendarByDate(t *testing.T, h *Handler, target string) map[string]DayDTO {
	t.Helper()
	rec := do(t, h, http.MethodGet, target, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	out := map[string]DayDTO{}
	for _, d := range decodeBody[CalendarResponse](t, rec).Days {
		out[d.Date] = d
	}
	return out
}

func TestListScenarios(t *testing.T) {
	h, _ := newScenarioHandler(t)

	rec := do(t, h, http.MethodGet, "/api/scenarios", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	list := decodeBody[[]ScenarioDTO](t, rec)
	require.Len(t, list, 3)
	assert.Equal(t, "month-boundary", list[0].ID)
	assert.Equal(t, "busy-week", list[1].ID)
	assert.Equal(t, "legacy-fields", list[2].ID)
}

func TestScenario_MonthBoundary(t *testing.T) {
	h, _ := newScenarioHandler(t)
	loadScenario(t, h, "month-boundary")

	resp := decodeBody[RevenueResponse](t, do(t, h, http.MethodGet, "/api/dashboard/revenue?year=2025", nil))

	// May: half of mb-2. June: mb-2's other half, a quarter of mb-1 and mb-3.
	assert.InDelta(t, 140, resp.Current[4].Revenue, 0.01)
	assert.InDelta(t, 310, resp.Current[5].Revenue, 0.01)
	assert.InDelta(t, 300, resp.Current[6].Revenue, 0.01)
	assert.InDelta(t, 750, resp.Total, 0.01)
}

func TestScenario_BusyWeek(t *testing.T) {
	h, _ := newScenarioHandler(t)
	loadScenario(t, h, "busy-week")

	vehicles := decodeBody[[]VehicleDTO](t, do(t, h, http.MethodGet, "/api/vehicles", nil))
	assert.Len(t, vehicles, 3)

	car := calendarByDate(t, h, "/api/vehicles/car-1/calendar?from=2025-06-09&to=2025-06-25")
	assert.Equal(t, "PAST", car["2025-06-09"].Status)
	assert.Equal(t, "BOOKED", car["2025-06-11"].Status)
	assert.Equal(t, "BOOKED", car["2025-06-14"].Status)
	assert.Equal(t, "MAINTENANCE", car["2025-06-15"].Status)
	assert.Equal(t, "AVAILABLE", car["2025-06-16"].Status)
	require.Equal(t, "PRICED", car["2025-06-21"].Status)
	assert.Equal(t, 110.0, *car["2025-06-21"].Price)

	van := calendarByDate(t, h, "/api/vehicles/van-1/calendar?from=2025-06-10&to=2025-06-20")
	assert.Equal(t, "MAINTENANCE", van["2025-06-11"].Status)
	assert.Equal(t, "AVAILABLE", van["2025-06-13"].Status, "pending does not block by default")
	require.Equal(t, "PRICED", van["2025-06-16"].Status)
	assert.Equal(t, 180.0, *van["2025-06-16"].Price)
	assert.Equal(t, "AVAILABLE", van["2025-06-18"].Status, "cancelled never blocks")

	golf := calendarByDate(t, h, "/api/vehicles/car-2/calendar?from=2025-06-10&to=2025-06-17")
	assert.Equal(t, "BOOKED", golf["2025-06-16"].Status)
	assert.Equal(t, "AVAILABLE", golf["2025-06-17"].Status)
}

func TestScenario_LegacyFieldsSkipsMalformedRecords(t *testing.T) {
	h, mirror := newScenarioHandler(t)
	loadScenario(t, h, "legacy-fields")

	vehicles := decodeBody[[]VehicleDTO](t, do(t, h, http.MethodGet, "/api/vehicles", nil))
	require.Len(t, vehicles, 2)
	assert.Equal(t, "Renault Clio", vehicles[0].Label)
	assert.Equal(t, 55.0, vehicles[0].PricePerDay)
	assert.Equal(t, "AB-123-CD", vehicles[1].Label)

	clio := calendarByDate(t, h, "/api/vehicles/101/calendar?from=2025-06-10&to=2025-06-22")
	assert.Equal(t, "BOOKED", clio["2025-06-10"].Status)
	assert.Equal(t, "BOOKED", clio["2025-06-12"].Status)
	assert.Equal(t, "MAINTENANCE", clio["2025-06-15"].Status)
	require.Equal(t, "PRICED", clio["2025-06-21"].Status)
	assert.Equal(t, 110.0, *clio["2025-06-21"].Price)

	plate := calendarByDate(t, h, "/api/vehicles/102/calendar?from=2025-06-10&to=2025-06-17")
	assert.Equal(t, "BOOKED", plate["2025-06-14"].Status, "epoch millis start, no end")
	assert.Equal(t, "AVAILABLE", plate["2025-06-15"].Status)
	assert.Equal(t, "AVAILABLE", plate["2025-06-17"].Status, "unknown status code is skipped")

	// Malformed records stay in the mirror; only the snapshot drops them.
	raw, err := mirror.FetchBookings(context.Background())
	require.NoError(t, err)
	assert.Len(t, raw, 4)
	assert.Len(t, h.Loader.Load(context.Background()).Bookings, 2)
}

func TestScenario_ReplacesPreviousFleet(t *testing.T) {
	h, mirror := newScenarioHandler(t)
	loadScenario(t, h, "busy-week")
	loadScenario(t, h, "month-boundary")

	maintenance, err := mirror.FetchMaintenance(context.Background())
	require.NoError(t, err)
	assert.Empty(t, maintenance)

	current := decodeBody[ScenarioDTO](t, do(t, h, http.MethodGet, "/api/scenarios/current", nil))
	assert.Equal(t, "month-boundary", current.ID)
}

func TestScenario_IntoSqliteMirror(t *testing.T) {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	h := newTestHandler(t, store)
	h.Mirror = store
	loadScenario(t, h, "legacy-fields")

	vehicles := decodeBody[[]VehicleDTO](t, do(t, h, http.MethodGet, "/api/vehicles", nil))
	assert.Len(t, vehicles, 2)
	assert.Len(t, h.Loader.Load(context.Background()).Bookings, 2)
}

func TestLoadScenario_Errors(t *testing.T) {
	h, mirror := newScenarioHandler(t)

	rec := do(t, h, http.MethodPost, "/api/scenarios/load", LoadScenarioRequest{ScenarioID: "nope"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/scenarios/load", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	h.Mirror = failingMirror{}
	rec = do(t, h, http.MethodPost, "/api/scenarios/load", LoadScenarioRequest{ScenarioID: "busy-week"})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	h.Mirror = nil
	rec = do(t, h, http.MethodPost, "/api/scenarios/load", LoadScenarioRequest{ScenarioID: "busy-week"})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	vehicles, err := mirror.FetchVehicles(context.Background())
	require.NoError(t, err)
	assert.Empty(t, vehicles)

	current := do(t, h, http.MethodGet, "/api/scenarios/current", nil)
	assert.Equal(t, http.StatusOK, current.Code)
	assert.JSONEq(t, "null", current.Body.String())
}

type failingMirror struct{}

func (failingMirror) ReplaceCollection(context.Context, string, []factory.Record) error {
	return errors.New("disk full")
}
