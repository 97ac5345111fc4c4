package lifecycle

import (
	"time"

	"github.com/stockflow/stockflow-golang/internal/models"
)

// TimelineEntry is one row of the delivery timeline.
type TimelineEntry struct {
	Label   string
	Field   models.DateField
	Date    *time.Time
	Reached bool
}

// timelineLabels keeps the display names the admin UI has always used.
var timelineLabels = map[models.DateField]string{
	models.FieldOrderTaken:        "Order Taken",
	models.FieldOrderSend:         "Product Sent",
	models.FieldReachedNearBranch: "Reached Near Warehouse",
	models.FieldDelivered:         "Delivered",
}

// Timeline returns the four milestone entries in delivery order,
// whatever is or isn't stamped. It does not repair ordering violations;
// it displays what the record carries.
func Timeline(r *models.RequestRecord) []TimelineEntry {
	entries := make([]TimelineEntry, 0, len(models.DateFields))
	for _, f := range models.DateFields {
		d := r.Date(f)
		entries = append(entries, TimelineEntry{
			Label:   timelineLabels[f],
			Field:   f,
			Date:    d,
			Reached: d != nil,
		})
	}
	return entries
}

// FormatDate renders a milestone date the way the requests table always
// has: the date component only, or "Not Yet" for an unreached stage.
func FormatDate(t *time.Time) string {
	if t == nil {
		return "Not Yet"
	}
	return t.Format("2006-01-02")
}
