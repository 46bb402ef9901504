package ui

import "fmt"

// FormatBytes renders a byte count in a human unit.
func FormatBytes(n uint64) string {
	const (
		kb = 1024
		mb = kb * 1024
		gb = mb * 1024
	)

	switch {
	case n >= gb:
		return fmt.Sprintf("%.2f GB", float64(n)/float64(gb))
	case n >= mb:
		return fmt.Sprintf("%.2f MB", float64(n)/float64(mb))
	case n >= kb:
		return fmt.Sprintf("%.2f KB", float64(n)/float64(kb))
	default:
		return fmt.Sprintf("%d B", n)
	}
}

// FormatProgress renders "current/total (pct%)" for transfer updates.
func FormatProgress(current, total uint64) string {
	if total == 0 {
		return FormatBytes(current)
	}
	pct := float64(current) / float64(total) * 100
	return fmt.Sprintf("%s/%s (%.1f%%)", FormatBytes(current), FormatBytes(total), pct)
}
