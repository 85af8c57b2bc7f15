package obsseq

import "time"

// LocationModel says whether observations carry a 3-D sphere location
// (longitude, latitude, vertical + unit) or a single scalar coordinate.
// One file uses exactly one model; it is fixed by the first decoded record.
type LocationModel int

const (
	LocationUnknown LocationModel = iota
	Location3D
	Location1D
)

func (m LocationModel) String() string {
	switch m {
	case Location3D:
		return "loc3d"
	case Location1D:
		return "loc1d"
	default:
		return "unknown"
	}
}

// verticalUnits maps the integer vertical-coordinate code found in loc3d
// payloads to its unit name.
var verticalUnits = map[int]string{
	-2: "undefined",
	-1: "surface (m)",
	1:  "model level",
	2:  "pressure (Pa)",
	3:  "height (m)",
	4:  "scale height",
}

// epoch is the reference date for observation times. Times in the file are
// encoded as (seconds, days) offsets from it.
var epoch = time.Date(1601, time.January, 1, 0, 0, 0, 0, time.UTC)

// TimeFromOffsets converts a (seconds, days) pair into an absolute UTC
// timestamp on the proleptic Gregorian calendar. No leap-second handling.
func TimeFromOffsets(seconds, days int) time.Time {
	return epoch.AddDate(0, 0, days).Add(time.Duration(seconds) * time.Second)
}

// Record is one decoded observation. Copies is parallel to the owning
// table's CopyNames. Longitude, Latitude, Vertical and VertUnit are set
// only for the 3-D model (angles in radians after table assembly);
// Location only for the 1-D model. Bias and SqErr are valid only when the
// owning table's HasBias is true.
type Record struct {
	ObsNum int
	Copies []float64

	Longitude float64
	Latitude  float64
	Vertical  float64
	VertUnit  string

	Location float64

	Type      string
	Seconds   int
	Days      int
	Time      time.Time
	ObsErrVar float64

	Bias  float64
	SqErr float64
}
