/*
scenarios.go - Demo fleets for testing and demonstrations

PURPOSE:

	Provides pre-built fleets that populate the mirror with realistic raw
	records, dated relative to today so calendars and dashboards always
	have something current to show.

AVAILABLE SCENARIOS:

	month-boundary: Bookings straddling month ends (proration)
	busy-week:      Back-to-back bookings, maintenance and seasonal pricing
	legacy-fields:  Old backend field names, status codes, epoch millis and
	                a few malformed records that get skipped

HOW SCENARIOS WORK:
 1. Build raw records for each collection
 2. Replace every collection in the mirror
 3. Remember the loaded scenario

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "busy-week"}

NOTE:

	Scenarios overwrite the mirror. The next upstream sync overwrites the
	scenario. Only use in development/demo environments.

SEE ALSO:
  - factory/record.go: Field name variants used by legacy-fields
*/
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/warp/fleet-engine/factory"
	"github.com/warp/fleet-engine/generic"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

type scenario struct {
	ScenarioDTO
	build func(today generic.Day) map[string][]factory.Record
}

var scenarios = []scenario{
	{ScenarioDTO{"month-boundary", "Month Boundary", "Bookings straddling month ends, prorated per day"}, monthBoundaryFleet},
	{ScenarioDTO{"busy-week", "Busy Week", "Back-to-back bookings, maintenance and seasonal pricing"}, busyWeekFleet},
	{ScenarioDTO{"legacy-fields", "Legacy Fields", "Old field names, status codes and malformed records"}, legacyFieldsFleet},
}

// scenarioState tracks the loaded scenario across requests.
type scenarioState struct {
	mu      sync.Mutex
	current string
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	out := make([]ScenarioDTO, len(scenarios))
	for i, s := range scenarios {
		out[i] = s.ScenarioDTO
	}
	writeJSON(w, http.StatusOK, out)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.scenario.mu.Lock()
	current := h.scenario.current
	h.scenario.mu.Unlock()

	for _, s := range scenarios {
		if s.ID == current {
			writeJSON(w, http.StatusOK, s.ScenarioDTO)
			return
		}
	}
	writeJSON(w, http.StatusOK, nil)
}

// LoadScenario writes a demo fleet into the mirror.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	if h.Mirror == nil {
		writeError(w, http.StatusServiceUnavailable, "Scenarios are disabled: no writable mirror", nil)
		return
	}
	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	for _, s := range scenarios {
		if s.ID != req.ScenarioID {
			continue
		}
		if err := h.loadFleet(r.Context(), s.build(h.today())); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to load scenario", err)
			return
		}
		h.scenario.mu.Lock()
		h.scenario.current = s.ID
		h.scenario.mu.Unlock()
		h.Logger.Info("scenario loaded", "scenario", s.ID)
		writeJSON(w, http.StatusOK, s.ScenarioDTO)
		return
	}
	writeError(w, http.StatusNotFound, "Unknown scenario: "+req.ScenarioID, nil)
}

func (h *Handler) loadFleet(ctx context.Context, records map[string][]factory.Record) error {
	for _, collection := range factory.Collections {
		if err := h.Mirror.ReplaceCollection(ctx, collection, records[collection]); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// FLEETS
// =============================================================================

func vehicle(id, label string, price float64) factory.Record {
	return factory.Record{"id": id, "label": label, "pricePerDay": price}
}

func bookingRecord(id, vehicleID string, from, to generic.Day, price float64, status string) factory.Record {
	return factory.Record{
		"id":            id,
		"vehicleId":     vehicleID,
		"startDateTime": from.Key() + "T10:00:00",
		"endDateTime":   to.Key() + "T09:00:00",
		"totalPrice":    price,
		"status":        status,
	}
}

func monthBoundaryFleet(today generic.Day) map[string][]factory.Record {
	monthEnd := generic.NewDay(today.Year(), today.Month()+1, 0)
	lastMonthEnd := generic.NewDay(today.Year(), today.Month(), 0)

	return map[string][]factory.Record{
		factory.CollectionVehicles: {
			vehicle("car-1", "Toyota Corolla", 80),
			vehicle("car-2", "VW Golf", 70),
		},
		factory.CollectionBookings: {
			// 1 day this month, 3 next month
			bookingRecord("mb-1", "car-1", monthEnd, monthEnd.AddDays(3), 400, "CONFIRMED"),
			// 2 days each side of the previous month end
			bookingRecord("mb-2", "car-2", lastMonthEnd.AddDays(-1), lastMonthEnd.AddDays(2), 280, "COMPLETED"),
			bookingRecord("mb-3", "car-2", today, today, 70, "ACTIVE"),
		},
	}
}

func busyWeekFleet(today generic.Day) map[string][]factory.Record {
	return map[string][]factory.Record{
		factory.CollectionVehicles: {
			vehicle("car-1", "Toyota Corolla", 80),
			vehicle("car-2", "VW Golf", 70),
			vehicle("van-1", "Ford Transit", 120),
		},
		factory.CollectionBookings: {
			bookingRecord("bw-1", "car-1", today.AddDays(-2), today.AddDays(1), 320, "ACTIVE"),
			bookingRecord("bw-2", "car-1", today.AddDays(2), today.AddDays(4), 240, "CONFIRMED"),
			bookingRecord("bw-3", "car-2", today, today.AddDays(6), 490, "CONFIRMED"),
			bookingRecord("bw-4", "van-1", today.AddDays(3), today.AddDays(3), 120, "PENDING"),
			bookingRecord("bw-5", "van-1", today.AddDays(8), today.AddDays(9), 240, "CANCELLED"),
		},
		factory.CollectionMaintenance: {
			{"id": "mt-1", "vehicleId": "car-1", "scheduledDate": today.AddDays(5).Key(), "status": "SCHEDULED"},
			{"id": "mt-2", "vehicleId": "van-1", "scheduledDate": today.AddDays(1).Key(), "status": "IN_PROGRESS"},
			{"id": "mt-3", "vehicleId": "car-2", "scheduledDate": today.AddDays(-3).Key(), "status": "FINISHED"},
		},
		factory.CollectionPricingRules: {
			{"id": "pr-1", "vehicleId": "car-1", "effectiveDate": today.AddDays(10).Key(), "expiryDate": today.AddDays(14).Key(), "pricePerDay": 110},
			{"id": "pr-2", "vehicleId": "van-1", "effectiveDate": today.AddDays(6).Key(), "expiryDate": today.AddDays(7).Key(), "holidayMultiplier": 1.5},
		},
	}
}

func legacyFieldsFleet(today generic.Day) map[string][]factory.Record {
	return map[string][]factory.Record{
		factory.CollectionVehicles: {
			{"id": 101, "brand": "Renault", "model": "Clio", "price_per_day": "55"},
			{"id": 102, "license_plate": "AB-123-CD", "dailyRate": 60},
		},
		factory.CollectionBookings: {
			{"id": 1, "vehicle": map[string]any{"id": 101}, "start_datetime": today.Key() + " 08:00:00", "end_datetime": today.AddDays(2).Key() + " 18:00:00", "total_price": "165.00"},
			{"id": 2, "vehicle_id": 102, "startDatetime": float64(today.AddDays(4).Start().UnixMilli()), "price": 60},
			{"id": 3, "vehicleId": 102, "startDate": "next week"},
			{"id": 4, "startDate": today.Key()},
		},
		factory.CollectionMaintenance: {
			{"id": "lm-1", "vehicle_id": 101, "scheduled_date": today.AddDays(5).Key(), "status": 2},
			{"id": "lm-2", "vehicle_id": 102, "date": today.AddDays(6).Key(), "status": 4},
			{"id": "lm-3", "vehicle_id": 102, "date": today.AddDays(7).Key(), "status": 9},
		},
		factory.CollectionPricingRules: {
			{"id": "lp-1", "vehicle_id": 101, "effective_date": today.AddDays(10).Key(), "expiredDate": today.AddDays(12).Key(), "holiday_multiplier": 2},
		},
	}
}
