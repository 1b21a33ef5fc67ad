package model

import "time"

// LogEntry is an operational or financial record: a task performed, a
// production figure, a sale.  It may reference a crop or an animal and is
// always attributed to the user who recorded it.
//
// Fields:
//
//	Type         – crop, livestock, maintenance, production, sale or other.
//	Category     – free-form grouping chosen by the farm.
//	Description  – what happened, at least 5 characters.
//	Date         – when it happened; defaults to the time of recording.
//	Quantity     – optional amount in Unit.
//	Cost, Income – optional money figures, non-negative.
//	CropID       – optional crops.id.
//	AnimalID     – optional livestock.id.
//	RecordedByID – users.id of the author.
type LogEntry struct {
	ID           uint64    `json:"id"`
	Type         string    `json:"type"`
	Category     string    `json:"category"`
	Description  string    `json:"description"`
	Date         time.Time `json:"date"`
	Quantity     *float64  `json:"quantity"`
	Unit         *string   `json:"unit"`
	Cost         *float64  `json:"cost"`
	Income       *float64  `json:"income"`
	Notes        *string   `json:"notes"`
	CropID       *uint64   `json:"cropId"`
	AnimalID     *uint64   `json:"livestockId"`
	RecordedByID uint64    `json:"recordedById"`
	CreatedAt    time.Time `json:"createdAt"`

	RecordedBy *UserSummary `json:"recordedBy,omitempty"`
	Crop       *CropRef     `json:"crop,omitempty"`
	Animal     *AnimalRef   `json:"livestock,omitempty"`
}

// CropRef is the short crop reference embedded in log entries.
type CropRef struct {
	ID   uint64 `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
}

// AnimalRef is the short animal reference embedded in log entries.
type AnimalRef struct {
	ID   uint64 `json:"id"`
	Tag  string `json:"tag"`
	Type string `json:"type"`
}

var (
	LogEntryTypes = []string{"crop", "livestock", "maintenance", "production", "sale", "other"}
	LogEntryUnits = []string{"kg", "tonnes", "liters", "units", "meters", "hectares", "other"}
)
