package storage

import "time"

type Mold struct {
	ID               string     `json:"id"`
	Code             string     `json:"mold_code" validate:"required"`
	Name             string     `json:"mold_name"`
	Model            string     `json:"model"`
	Size             string     `json:"size"`
	Vendor           string     `json:"vendor"`
	Location         string     `json:"location"`
	Status           string     `json:"status"`
	Cavity           int        `json:"cavity" validate:"gte=0"`
	Material         string     `json:"material"`
	Weight           float64    `json:"weight" validate:"gte=0"`
	MakerDate        string     `json:"maker_date"`
	ImageFront       string     `json:"image_front"`
	ImageSide        string     `json:"image_side"`
	ShotCount        int64      `json:"shot_count" validate:"gte=0"`
	ShotLimit        int64      `json:"shot_limit" validate:"gte=0"`
	MaintenanceShots int64      `json:"maintenance_shots" validate:"gte=0"`
	LastMaintenance  string     `json:"last_maintenance"`
	Owner            string     `json:"owner"`
	Note             string     `json:"note"`
	CreatedAt        *time.Time `json:"created_at,omitempty"`
	UpdatedAt        *time.Time `json:"updated_at,omitempty"`
}

// ShotUsage доля выработанного ресурса, 0 если лимит не задан.
func (m Mold) ShotUsage() float64 {
	if m.ShotLimit <= 0 {
		return 0
	}
	return float64(m.ShotCount) / float64(m.ShotLimit)
}

type MoldField struct {
	Key     string
	Display string
}

// MoldFields maps sanitised storage keys to the names shown in tables and spreadsheets.
var MoldFields = []MoldField{
	{"mold_code", "Mold Code"},
	{"mold_name", "Mold Name"},
	{"model", "Model"},
	{"size", "Size"},
	{"vendor", "Vendor"},
	{"location", "Location"},
	{"status", "Status"},
	{"cavity", "Cavity"},
	{"material", "Material"},
	{"weight", "Weight (kg)"},
	{"maker_date", "Maker Date"},
	{"image_front", "Front Image"},
	{"image_side", "Side Image"},
	{"shot_count", "Shot Count"},
	{"shot_limit", "Shot Limit"},
	{"maintenance_shots", "Shots Since Maintenance"},
	{"last_maintenance", "Last Maintenance"},
	{"owner", "Owner"},
	{"note", "Note"},
}

func MoldDisplayName(key string) string {
	for _, f := range MoldFields {
		if f.Key == key {
			return f.Display
		}
	}
	return key
}

func MoldFieldKey(display string) (string, bool) {
	for _, f := range MoldFields {
		if f.Display == display {
			return f.Key, true
		}
	}
	return "", false
}

type MoldFilter struct {
	Code     string
	Vendor   string
	Location string
	Status   string
	Model    string
}

type ActionLog struct {
	ID        int64          `json:"id"`
	UserID    string         `json:"userId"`
	Action    string         `json:"action"`
	Details   map[string]any `json:"details"`
	Timestamp time.Time      `json:"timestamp"`
}
