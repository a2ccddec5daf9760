/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the fleet engine types from the external API contract:
  - Days are rendered as "YYYY-MM-DD" keys
  - Money is rendered as a float rounded to cents

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

TYPES:
  Vehicles:   VehicleDTO
  Calendar:   CalendarResponse, DayDTO
  Pickers:    RangePicksRequest, RangePicksResponse, PickStepDTO,
              MaintenancePickRequest, MaintenancePickResponse
  Dashboard:  SummaryDTO, RevenueResponse, RevenueBucketDTO
  Sync:       SyncResponse

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"github.com/shopspring/decimal"
	"github.com/warp/fleet-engine/fleet"
	"github.com/warp/fleet-engine/generic"
)

// =============================================================================
// VEHICLES & CALENDAR
// =============================================================================

type VehicleDTO struct {
	ID          string  `json:"id"`
	Label       string  `json:"label"`
	PricePerDay float64 `json:"pricePerDay"`
}

// DayDTO is one classified day. Price is set only for PRICED days.
type DayDTO struct {
	Date        string   `json:"date"`
	Status      string   `json:"status"`
	Price       *float64 `json:"price,omitempty"`
	Selectable  bool     `json:"selectable"`
	Schedulable bool     `json:"schedulable"`
}

type CalendarResponse struct {
	VehicleID string   `json:"vehicleId"`
	From      string   `json:"from"`
	To        string   `json:"to"`
	Today     string   `json:"today"`
	Blocking  []string `json:"blocking"`
	Days      []DayDTO `json:"days"`
}

// =============================================================================
// PICKERS
// =============================================================================

// RangePicksRequest replays clicks on a range picker. From/To bound the
// classified window; they default to today and the latest pick.
type RangePicksRequest struct {
	Picks []string `json:"picks"`
	From  string   `json:"from,omitempty"`
	To    string   `json:"to,omitempty"`
}

type PickStepDTO struct {
	Date     string   `json:"date"`
	Accepted bool     `json:"accepted"`
	State    string   `json:"state"`
	Blocked  []string `json:"blocked,omitempty"`
}

type RangePicksResponse struct {
	VehicleID string        `json:"vehicleId"`
	State     string        `json:"state"`
	Start     string        `json:"start,omitempty"`
	End       string        `json:"end,omitempty"`
	Steps     []PickStepDTO `json:"steps"`
}

type MaintenancePickRequest struct {
	Date string `json:"date"`
}

type MaintenancePickResponse struct {
	VehicleID string `json:"vehicleId"`
	Date      string `json:"date"`
	Status    string `json:"status"`
	Accepted  bool   `json:"accepted"`
}

// =============================================================================
// DASHBOARD
// =============================================================================

type SummaryDTO struct {
	Date             string  `json:"date"`
	TodayRevenue     float64 `json:"todayRevenue"`
	ThisMonthRevenue float64 `json:"thisMonthRevenue"`
	LastMonthRevenue float64 `json:"lastMonthRevenue"`
	PickupsToday     int     `json:"pickupsToday"`
	ReturnsToday     int     `json:"returnsToday"`
	ActiveBookings   int     `json:"activeBookings"`
	BusyVehicles     int     `json:"busyVehicles"`
	IdleVehicles     int     `json:"idleVehicles"`
	TotalVehicles    int     `json:"totalVehicles"`
	UtilizationPct   float64 `json:"utilizationPct"`
}

type RevenueBucketDTO struct {
	Key     string  `json:"key"`
	Revenue float64 `json:"revenue"`
}

// RevenueResponse carries a year and, for the monthly view, the year before.
type RevenueResponse struct {
	Year     int                `json:"year,omitempty"`
	Current  []RevenueBucketDTO `json:"current"`
	Previous []RevenueBucketDTO `json:"previous,omitempty"`
	Total    float64            `json:"total"`
}

// =============================================================================
// SYNC
// =============================================================================

type SyncResponse struct {
	Results []SyncResult `json:"results"`
}

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func money(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}

func toVehicleDTO(v fleet.Vehicle) VehicleDTO {
	return VehicleDTO{ID: string(v.ID), Label: v.Label, PricePerDay: money(v.PricePerDay)}
}

func toDayDTO(dc fleet.DayClassification) DayDTO {
	dto := DayDTO{
		Date:        dc.Date.Key(),
		Status:      string(dc.Status),
		Selectable:  fleet.IsSelectable(dc),
		Schedulable: fleet.IsSchedulable(dc),
	}
	if dc.Price.Valid {
		p := money(dc.Price.Decimal)
		dto.Price = &p
	}
	return dto
}

func toBucketDTOs(buckets []fleet.RevenueBucket) ([]RevenueBucketDTO, float64) {
	out := make([]RevenueBucketDTO, len(buckets))
	total := decimal.Zero
	for i, b := range buckets {
		out[i] = RevenueBucketDTO{Key: b.Key, Revenue: money(b.Revenue)}
		total = total.Add(b.Revenue)
	}
	return out, money(total)
}

func toSummaryDTO(s fleet.DashboardSummary) SummaryDTO {
	return SummaryDTO{
		Date:             s.Date.Key(),
		TodayRevenue:     money(s.TodayRevenue),
		ThisMonthRevenue: money(s.ThisMonthRevenue),
		LastMonthRevenue: money(s.LastMonthRevenue),
		PickupsToday:     s.PickupsToday,
		ReturnsToday:     s.ReturnsToday,
		ActiveBookings:   s.ActiveBookings,
		BusyVehicles:     s.BusyVehicles,
		IdleVehicles:     s.IdleVehicles,
		TotalVehicles:    s.TotalVehicles,
		UtilizationPct:   money(s.UtilizationPct),
	}
}

func dayKeys(days []generic.Day) []string {
	if len(days) == 0 {
		return nil
	}
	out := make([]string, len(days))
	for i, d := range days {
		out[i] = d.Key()
	}
	return out
}

func statusNames(set fleet.StatusSet) []string {
	out := make([]string, 0, len(set))
	for _, s := range []fleet.BookingStatus{fleet.BookingPending, fleet.BookingConfirmed, fleet.BookingActive, fleet.BookingCompleted, fleet.BookingCancelled} {
		if set.Has(s) {
			out = append(out, string(s))
		}
	}
	return out
}
