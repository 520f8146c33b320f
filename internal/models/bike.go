package models

const (
	GeometryRoad     = "road"
	GeometryMountain = "mountain"
	GeometryHybrid   = "hybrid"
)

// Bike describes a listed bicycle. The catalog is loaded from config and
// never mutated by the booking flow; owner-side add/update happens elsewhere.
type Bike struct {
	ID               string  `yaml:"id" json:"id"`
	Name             string  `yaml:"name" json:"name"`
	Geometry         string  `yaml:"geometry" json:"geometry"`
	HourlyPriceCents int64   `yaml:"hourly_price_cents" json:"hourly_price_cents"`
	Latitude         float64 `yaml:"latitude" json:"latitude"`
	Longitude        float64 `yaml:"longitude" json:"longitude"`
	ImageURL         string  `yaml:"image_url" json:"image_url"`
	SortOrder        int64   `yaml:"sort_order" json:"sort_order"`
	IsActive         bool    `yaml:"is_active" json:"is_active"`
}

func ValidGeometry(g string) bool {
	switch g {
	case GeometryRoad, GeometryMountain, GeometryHybrid:
		return true
	}
	return false
}
