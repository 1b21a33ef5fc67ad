package model

import "time"

// Crop is a planted field tracked from sowing to completion.  Rows live in
// the `crops` table; ResponsibleID references the user who created it.
//
// Fields:
//
//	ID                   – primary key identifier.
//	Name                 – crop name.
//	Type                 – vegetable, fruit, cereal, greens, legume or other.
//	Area                 – planted surface, non-negative.
//	Unit                 – meters or hectares.
//	Location             – field or plot description.
//	PlantingDate         – sowing date.
//	EstimatedHarvestDate – optional expected harvest date.
//	Status               – sowing, growing, flowering, harvest or completed.
//	Yield                – optional harvest yield, non-negative.
//	Notes                – free text.
//	ResponsibleID        – users.id of the creator.
//	CreatedAt            – creation timestamp.
type Crop struct {
	ID                   uint64       `json:"id"`
	Name                 string       `json:"name"`
	Type                 string       `json:"type"`
	Area                 float64      `json:"area"`
	Unit                 string       `json:"unit"`
	Location             string       `json:"location"`
	PlantingDate         Date         `json:"plantingDate"`
	EstimatedHarvestDate *Date        `json:"estimatedHarvestDate"`
	Status               string       `json:"status"`
	Yield                *float64     `json:"yield"`
	Notes                *string      `json:"notes"`
	ResponsibleID        uint64       `json:"responsibleId"`
	CreatedAt            time.Time    `json:"createdAt"`
	Responsible          *UserSummary `json:"responsible,omitempty"`
}

// Enumerations accepted for crops.  The validator tags in the handler layer
// spell out the same sets.
var (
	CropTypes    = []string{"vegetable", "fruit", "cereal", "greens", "legume", "other"}
	CropUnits    = []string{"meters", "hectares"}
	CropStatuses = []string{"sowing", "growing", "flowering", "harvest", "completed"}
)

const (
	DefaultCropUnit   = "hectares"
	DefaultCropStatus = "sowing"
)
