package output

// TruncationMarker is appended to every truncated long-text value.
const TruncationMarker = "... [truncated]"

// longTextFields are the keys whose string values max_description_length
// applies to.
var longTextFields = map[string]bool{
	"description": true,
	"notes":       true,
	"text":        true,
}

// truncateText cuts s to limit runes and appends the marker. The second
// result is false when s already fits.
func truncateText(s string, limit int) (string, bool) {
	if limit <= 0 {
		return s, false
	}

	count := 0
	for i := range s {
		if count == limit {
			return s[:i] + TruncationMarker, true
		}
		count++
	}
	return s, false
}
