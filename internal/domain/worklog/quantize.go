package worklog

// quantum is one billable block: 15 minutes.
const quantum = 900

// QuantizeHours converts elapsed seconds to billable hours, rounded up to the
// nearest 0.25-hour block. Zero or negative input yields zero.
func QuantizeHours(seconds int64) float64 {
	if seconds <= 0 {
		return 0
	}
	blocks := (seconds + quantum - 1) / quantum
	return float64(blocks) * 0.25
}
