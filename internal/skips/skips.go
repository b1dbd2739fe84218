// Package skips defines the skip analytics domain shared by the backend and the dashboard.
package skips

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// AllPlaylists is the playlist filter sentinel meaning "every playlist".
const AllPlaylists = "all"

// ErrInvalidTimeframe is returned when a timeframe value is not recognised.
var ErrInvalidTimeframe = errors.New("invalid timeframe")

// Song is a track with its aggregated skip statistics.
type Song struct {
	ID          string     `json:"track_id"`
	Name        string     `json:"track_name"`
	Artist      string     `json:"artist_name,omitempty"`
	SkipCount   int        `json:"skip_count"`
	LastSkipped *time.Time `json:"last_skipped,omitempty"`
}

// Analytics holds aggregate totals for a filter selection.
type Analytics struct {
	TotalSkips   int `json:"total_skips"`
	SongsTracked int `json:"songs_tracked"`
}

// Playlist is a playlist reference used to populate the playlist filter.
type Playlist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Timeframe is a coarse time window applied to skip events.
type Timeframe string

// Supported timeframes.
const (
	TimeframeAll   Timeframe = "all"
	TimeframeWeek  Timeframe = "week"
	TimeframeMonth Timeframe = "month"
	TimeframeYear  Timeframe = "year"
)

// Timeframes returns every supported timeframe, widest first.
func Timeframes() []Timeframe {
	return []Timeframe{TimeframeAll, TimeframeYear, TimeframeMonth, TimeframeWeek}
}

// ParseTimeframe converts a query value into a Timeframe.
// An empty value means TimeframeAll.
func ParseTimeframe(s string) (Timeframe, error) {
	switch tf := Timeframe(strings.ToLower(strings.TrimSpace(s))); tf {
	case "":
		return TimeframeAll, nil
	case TimeframeAll, TimeframeWeek, TimeframeMonth, TimeframeYear:
		return tf, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidTimeframe, s)
	}
}

// Since returns the start of the window relative to now.
// The zero time means the window is unbounded.
func (tf Timeframe) Since(now time.Time) time.Time {
	switch tf {
	case TimeframeWeek:
		return now.AddDate(0, 0, -7)
	case TimeframeMonth:
		return now.AddDate(0, 0, -30)
	case TimeframeYear:
		return now.AddDate(0, 0, -365)
	default:
		return time.Time{}
	}
}

// Filters is the dashboard filter state.
type Filters struct {
	Playlist  string
	Timeframe Timeframe
}

// DefaultFilters returns filters selecting every playlist over all time.
func DefaultFilters() Filters {
	return Filters{Playlist: AllPlaylists, Timeframe: TimeframeAll}
}

// Normalize fills empty fields with their defaults.
func (f Filters) Normalize() Filters {
	if f.Playlist == "" {
		f.Playlist = AllPlaylists
	}
	if f.Timeframe == "" {
		f.Timeframe = TimeframeAll
	}
	return f
}

// PlaylistID returns the playlist to filter on, or "" for all playlists.
func (f Filters) PlaylistID() string {
	if f.Playlist == AllPlaylists {
		return ""
	}
	return f.Playlist
}

// Query encodes the filters as the playlist and timeframe query parameters.
func (f Filters) Query() url.Values {
	f = f.Normalize()
	return url.Values{
		"playlist":  {f.Playlist},
		"timeframe": {string(f.Timeframe)},
	}
}

// ParseFilters reads the playlist and timeframe query parameters.
func ParseFilters(q url.Values) (Filters, error) {
	tf, err := ParseTimeframe(q.Get("timeframe"))
	if err != nil {
		return Filters{}, err
	}
	return Filters{
		Playlist:  strings.TrimSpace(q.Get("playlist")),
		Timeframe: tf,
	}.Normalize(), nil
}
