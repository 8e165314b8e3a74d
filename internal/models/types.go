package models

// Sentinel values written into records during extraction
const (
	Anonymous    = "Anonymous"
	Hidden       = "hidden"
	NotAvailable = "N/A"
)

// SalaryRecord represents one compensation entry scraped from a levels.fyi listing.
// The csv tags are the persisted header names, in column order.
type SalaryRecord struct {
	Company               string `csv:"Company"`
	Location              string `csv:"Location"`
	LevelName             string `csv:"Level Name"`
	Role                  string `csv:"Role"`
	YearsOfExperience     string `csv:"Years of Experience"`
	YearsAtCompany        string `csv:"Years at Company"`
	TotalCompensation     string `csv:"Total Compensation"`
	CompensationBreakdown string `csv:"Compensation Breakdown"`
}

// CSVHeader is the header row of a persisted salary file
var CSVHeader = []string{
	"Company",
	"Location",
	"Level Name",
	"Role",
	"Years of Experience",
	"Years at Company",
	"Total Compensation",
	"Compensation Breakdown",
}

// PageStatus classifies the outcome of fetching or extracting a single page
type PageStatus int

const (
	PageOK PageStatus = iota
	PageStructuralMismatch
	PageFetchTimeout
	PageFetchFailed
)

func (s PageStatus) String() string {
	switch s {
	case PageOK:
		return "ok"
	case PageStructuralMismatch:
		return "structural_mismatch"
	case PageFetchTimeout:
		return "fetch_timeout"
	case PageFetchFailed:
		return "fetch_failed"
	default:
		return "unknown"
	}
}

// PageResult is what a page fetcher hands back for one URL.
// HTML may be partial when Status is PageFetchTimeout.
type PageResult struct {
	URL    string
	HTML   string
	Status PageStatus
	Err    error
}
