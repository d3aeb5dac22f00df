package engine

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
)

// QuarterReport is one district's results for one finished quarter.
type QuarterReport struct {
	RunID      uuid.UUID   `json:"run_id" db:"run_id"`
	Quarter    int         `json:"quarter" db:"quarter"`
	RegionID   uint64      `json:"region_id" db:"region_id"`
	RegionName string      `json:"region_name" db:"region_name"`
	Share      RegionShare `json:"share" db:"-"`

	ComplianceRate float64 `json:"compliance_rate" db:"compliance_rate"`
	Units          int     `json:"units" db:"units"`
	Fines          float64 `json:"fines" db:"fines"`
	Incentives     float64 `json:"incentives" db:"incentives"`
}

// RenderReports formats a quarter's district reports as a delimited console
// table.
func RenderReports(reports []QuarterReport) string {
	if len(reports) == 0 {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "=== Quarter %d ===\n", reports[0].Quarter+1)
	fmt.Fprintf(&b, "%-14s | %6s | %5s | %-22s | %10s | %10s\n",
		"district", "comp", "units", "share edu/enf/inc", "fines", "incentives")
	for _, r := range reports {
		share := fmt.Sprintf("%.2f/%.2f/%.2f", r.Share.Edu, r.Share.Enf, r.Share.Inc)
		fmt.Fprintf(&b, "%-14s | %5.1f%% | %5d | %-22s | %10s | %10s\n",
			r.RegionName,
			r.ComplianceRate*100,
			r.Units,
			share,
			"₱"+humanize.CommafWithDigits(r.Fines, 0),
			"₱"+humanize.CommafWithDigits(r.Incentives, 0))
	}
	return b.String()
}
