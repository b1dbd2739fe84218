package dashboard

import (
	"slices"

	"github.com/justestif/go-spotify-skip-tracker/internal/skips"
)

const (
	// DefaultHighSkipThreshold is the skip count from which a song counts as highly skipped.
	DefaultHighSkipThreshold = 3

	// DefaultTopN is the number of songs shown on the top-skipped chart.
	DefaultTopN = 10

	maxLabelRunes = 20
)

// ChartPoint is one bar of the top-skipped chart.
type ChartPoint struct {
	ID    string
	Label string
	Skips int
}

// SkipDistribution counts songs per skip bucket.
// Low is at most 2 skips, Medium 3 to 5, High 6 or more.
type SkipDistribution struct {
	Low    int
	Medium int
	High   int
}

// Total returns the number of songs across all buckets.
func (d SkipDistribution) Total() int {
	return d.Low + d.Medium + d.High
}

// Bucket names a skip count range.
type Bucket string

// Skip buckets.
const (
	BucketLow    Bucket = "low"
	BucketMedium Bucket = "medium"
	BucketHigh   Bucket = "high"
)

// BucketFor returns the bucket a skip count falls into.
func BucketFor(skipCount int) Bucket {
	switch {
	case skipCount <= 2:
		return BucketLow
	case skipCount <= 5:
		return BucketMedium
	default:
		return BucketHigh
	}
}

// Distribution partitions songs into the low, medium and high buckets.
func Distribution(songs []skips.Song) SkipDistribution {
	var d SkipDistribution
	for _, s := range songs {
		switch BucketFor(s.SkipCount) {
		case BucketLow:
			d.Low++
		case BucketMedium:
			d.Medium++
		case BucketHigh:
			d.High++
		}
	}
	return d
}

// AverageSkips returns the mean skip count per song, or 0 for no songs.
func AverageSkips(songs []skips.Song) float64 {
	if len(songs) == 0 {
		return 0
	}
	total := 0
	for _, s := range songs {
		total += s.SkipCount
	}
	return float64(total) / float64(len(songs))
}

// HighSkipCount returns how many songs have at least threshold skips.
func HighSkipCount(songs []skips.Song, threshold int) int {
	n := 0
	for _, s := range songs {
		if s.SkipCount >= threshold {
			n++
		}
	}
	return n
}

// TopSongs returns chart points for the n most skipped songs.
// Songs with equal skip counts keep their original order.
func TopSongs(songs []skips.Song, n int) []ChartPoint {
	if n <= 0 || len(songs) == 0 {
		return nil
	}

	sorted := slices.Clone(songs)
	slices.SortStableFunc(sorted, func(a, b skips.Song) int {
		return b.SkipCount - a.SkipCount
	})

	sorted = sorted[:min(n, len(sorted))]
	points := make([]ChartPoint, len(sorted))
	for i, s := range sorted {
		points[i] = ChartPoint{
			ID:    s.ID,
			Label: truncateLabel(s.Name),
			Skips: s.SkipCount,
		}
	}
	return points
}

// truncateLabel shortens long song names for chart axes.
func truncateLabel(name string) string {
	runes := []rune(name)
	if len(runes) <= maxLabelRunes {
		return name
	}
	return string(runes[:maxLabelRunes]) + "..."
}
