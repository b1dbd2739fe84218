package dashboard

import (
	"strings"
	"testing"

	"github.com/justestif/go-spotify-skip-tracker/internal/skips"
)

func songsWithCounts(counts ...int) []skips.Song {
	songs := make([]skips.Song, len(counts))
	for i, c := range counts {
		songs[i] = skips.Song{
			ID:        string(rune('a' + i)),
			Name:      "Song " + string(rune('A'+i)),
			SkipCount: c,
		}
	}
	return songs
}

func TestAverageSkips(t *testing.T) {
	tests := []struct {
		name   string
		counts []int
		want   float64
	}{
		{name: "no songs", counts: nil, want: 0},
		{name: "single song", counts: []int{5}, want: 5},
		{name: "scenario", counts: []int{1, 4, 7}, want: 4},
		{name: "fractional", counts: []int{1, 2}, want: 1.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := AverageSkips(songsWithCounts(tt.counts...)); got != tt.want {
				t.Errorf("AverageSkips() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDistribution(t *testing.T) {
	tests := []struct {
		name   string
		counts []int
		want   SkipDistribution
	}{
		{name: "empty", counts: nil, want: SkipDistribution{}},
		{name: "scenario", counts: []int{1, 4, 7}, want: SkipDistribution{Low: 1, Medium: 1, High: 1}},
		{name: "boundaries", counts: []int{0, 2, 3, 5, 6, 100}, want: SkipDistribution{Low: 2, Medium: 2, High: 2}},
		{name: "all low", counts: []int{1, 1, 2}, want: SkipDistribution{Low: 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			songs := songsWithCounts(tt.counts...)
			got := Distribution(songs)
			if got != tt.want {
				t.Errorf("Distribution() = %+v, want %+v", got, tt.want)
			}
			if got.Total() != len(songs) {
				t.Errorf("Total() = %d, want %d", got.Total(), len(songs))
			}
		})
	}
}

func TestBucketForPartitions(t *testing.T) {
	for c := 0; c <= 20; c++ {
		b := BucketFor(c)
		var want Bucket
		switch {
		case c <= 2:
			want = BucketLow
		case c >= 3 && c <= 5:
			want = BucketMedium
		case c >= 6:
			want = BucketHigh
		}
		if b != want {
			t.Errorf("BucketFor(%d) = %q, want %q", c, b, want)
		}
	}
}

func TestHighSkipCount(t *testing.T) {
	songs := songsWithCounts(1, 3, 4, 2, 9)
	if got := HighSkipCount(songs, DefaultHighSkipThreshold); got != 3 {
		t.Errorf("HighSkipCount() = %d, want 3", got)
	}
	if got := HighSkipCount(songs, 10); got != 0 {
		t.Errorf("HighSkipCount(10) = %d, want 0", got)
	}
}

func TestTopSongs(t *testing.T) {
	songs := songsWithCounts(2, 9, 4, 9, 1)

	got := TopSongs(songs, 3)
	wantIDs := []string{"b", "d", "c"}
	if len(got) != len(wantIDs) {
		t.Fatalf("got %d points, want %d", len(got), len(wantIDs))
	}
	for i, id := range wantIDs {
		if got[i].ID != id {
			t.Errorf("point %d ID = %q, want %q", i, got[i].ID, id)
		}
	}
	if got[0].Skips != 9 {
		t.Errorf("point 0 Skips = %d, want 9", got[0].Skips)
	}

	// Input must not be reordered
	if songs[0].ID != "a" || songs[1].ID != "b" {
		t.Error("TopSongs() modified its input")
	}

	if all := TopSongs(songs, 50); len(all) != len(songs) {
		t.Errorf("TopSongs(50) returned %d points, want %d", len(all), len(songs))
	}
	if none := TopSongs(songs, 0); none != nil {
		t.Errorf("TopSongs(0) = %v, want nil", none)
	}
}

func TestTruncateLabel(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "short", in: "Creep", want: "Creep"},
		{name: "exactly twenty", in: strings.Repeat("x", 20), want: strings.Repeat("x", 20)},
		{name: "long", in: "Bohemian Rhapsody - Remastered 2011", want: "Bohemian Rhapsody - ..."},
		{name: "multibyte", in: strings.Repeat("é", 25), want: strings.Repeat("é", 20) + "..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := truncateLabel(tt.in); got != tt.want {
				t.Errorf("truncateLabel(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
