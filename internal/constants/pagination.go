package constants

// Populate paths used by list endpoints
const (
	PopulateCourses  = "courses"
	PopulateBootcamp = "bootcamp"
)

// Fields embedded when a course or review lists its bootcamp
var BootcampSummaryFields = []string{"name", "description"}

// Gorm association names for single-record preloads
const (
	PreloadBootcamp = "Bootcamp"
)
