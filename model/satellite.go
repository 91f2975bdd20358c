package model

// SatelliteInfo identifies a tracked satellite. Field names follow the
// position service payload.
type SatelliteInfo struct {
	ID                int    `json:"satid"`
	Name              string `json:"satname"`
	TransactionsCount int    `json:"transactionscount,omitempty"`
}

// PositionSample is one entry of a position time series. The sample's index
// in its series is its offset in seconds from the start of the series.
//
// A nil coordinate means the satellite is not plottable for that sample.
type PositionSample struct {
	SatLatitude  *float64 `json:"satlatitude"`
	SatLongitude *float64 `json:"satlongitude"`
	SatAltitude  float64  `json:"sataltitude,omitempty"`
	Azimuth      float64  `json:"azimuth,omitempty"`
	Elevation    float64  `json:"elevation,omitempty"`
	RA           float64  `json:"ra,omitempty"`
	Dec          float64  `json:"dec,omitempty"`
	Timestamp    int64    `json:"timestamp,omitempty"`
	Eclipsed     bool     `json:"eclipsed,omitempty"`
}

// Coordinates returns the sample as a GeoPoint. ok is false when either
// coordinate is missing.
func (s PositionSample) Coordinates() (GeoPoint, bool) {
	if s.SatLongitude == nil || s.SatLatitude == nil {
		return GeoPoint{}, false
	}
	return GeoPoint{Longitude: *s.SatLongitude, Latitude: *s.SatLatitude}, true
}

// Sample builds a PositionSample with both coordinates present.
func Sample(lon, lat float64) PositionSample {
	return PositionSample{SatLongitude: &lon, SatLatitude: &lat}
}

// SatelliteTrack is the full position series fetched for one satellite.
// Positions is nil when the source payload carried no positions sequence.
type SatelliteTrack struct {
	Info      SatelliteInfo    `json:"info"`
	Positions []PositionSample `json:"positions"`
}

// Len returns the number of samples in the track.
func (t SatelliteTrack) Len() int { return len(t.Positions) }

// CatalogEntry is a known satellite with its two-line element set.
type CatalogEntry struct {
	ID    int    `json:"satid"`
	Name  string `json:"satname"`
	Line1 string `json:"line1,omitempty"`
	Line2 string `json:"line2,omitempty"`
}

// Info returns the entry's identity as carried by position payloads.
func (e CatalogEntry) Info() SatelliteInfo {
	return SatelliteInfo{ID: e.ID, Name: e.Name}
}
