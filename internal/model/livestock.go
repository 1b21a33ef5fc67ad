package model

import "time"

// Animal is one head of livestock in the `livestock` table.  Tag is the
// farm's unique ear tag or identifier.
type Animal struct {
	ID            uint64       `json:"id"`
	Tag           string       `json:"tag"`
	Type          string       `json:"type"`
	Breed         string       `json:"breed"`
	BirthDate     Date         `json:"birthDate"`
	Sex           string       `json:"sex"`
	InitialWeight *float64     `json:"initialWeight"`
	CurrentWeight *float64     `json:"currentWeight"`
	HealthStatus  string       `json:"healthStatus"`
	Notes         *string      `json:"notes"`
	ResponsibleID uint64       `json:"responsibleId"`
	Active        bool         `json:"active"`
	CreatedAt     time.Time    `json:"createdAt"`
	Responsible   *UserSummary `json:"responsible,omitempty"`
}

var (
	AnimalTypes    = []string{"bovine", "porcine", "ovine", "caprine", "poultry", "other"}
	AnimalSexes    = []string{"male", "female"}
	HealthStatuses = []string{"excellent", "good", "fair", "sick"}
)

const DefaultHealthStatus = "good"
