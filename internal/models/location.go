package models

// Location is a resolved geographic position for a client address. Every field
// is always populated; enrichment fills missing sub-fields with sentinels so
// downstream aggregation never branches on absent keys.
type Location struct {
	Country     string     `json:"country"`
	CountryCode string     `json:"country_code"`
	Region      string     `json:"region"`
	City        string     `json:"city"`
	Timezone    string     `json:"timezone"`
	Coordinates [2]float64 `json:"coordinates"` // [latitude, longitude]
}
