package model

// FireRecord is one MODIS active-fire detection.
type FireRecord struct {
	Latitude   float64 `parquet:"latitude" json:"latitude"`
	Longitude  float64 `parquet:"longitude" json:"longitude"`
	Brightness float64 `parquet:"brightness" json:"brightness"`
	Scan       float64 `parquet:"scan" json:"scan"`
	Track      float64 `parquet:"track" json:"track"`
	AcqDate    string  `parquet:"acq_date" json:"acq_date"`
	AcqTime    string  `parquet:"acq_time" json:"acq_time"`
	Satellite  string  `parquet:"satellite" json:"satellite"`
	Instrument string  `parquet:"instrument" json:"instrument"`
	Confidence int32   `parquet:"confidence" json:"confidence"`
	Version    string  `parquet:"version" json:"version"`
	BrightT31  float64 `parquet:"bright_t31" json:"bright_t31"`
	FRP        float64 `parquet:"frp" json:"frp"`
	DayNight   string  `parquet:"daynight" json:"daynight"`
	Type       string  `parquet:"type" json:"type"`
	Country    string  `parquet:"country" json:"country"`
	Year       string  `parquet:"year" json:"year"`
}

// DisplayColumns is the projection served to the map view.
var DisplayColumns = []string{"latitude", "longitude", "brightness", "acq_date", "acq_time", "daynight", "type"}

// Column returns the string form of a partition-key column.
func (r FireRecord) Column(name string) string {
	switch name {
	case "year":
		return r.Year
	case "country":
		return r.Country
	case "daynight":
		return r.DayNight
	case "type":
		return r.Type
	case "acq_date":
		return r.AcqDate
	case "satellite":
		return r.Satellite
	}
	return ""
}

// Filter is an equality predicate: a row matches when, for every column, its
// value equals one of the listed values.
type Filter map[string][]string

// Match applies f to r. An empty filter matches everything.
func (f Filter) Match(r FireRecord) bool {
	for col, allowed := range f {
		if len(allowed) == 0 {
			continue
		}
		v := r.Column(col)
		ok := false
		for _, a := range allowed {
			if a == v {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	return true
}
