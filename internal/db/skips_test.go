package db

import (
	"testing"
	"time"
)

func TestFilterArgs(t *testing.T) {
	since := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name         string
		query        SkipQuery
		wantPlaylist *string
		wantSince    *time.Time
	}{
		{
			name:  "unbounded",
			query: SkipQuery{},
		},
		{
			name:         "playlist only",
			query:        SkipQuery{PlaylistID: "p1"},
			wantPlaylist: strPtr("p1"),
		},
		{
			name:         "playlist and since",
			query:        SkipQuery{PlaylistID: "p2", Since: since},
			wantPlaylist: strPtr("p2"),
			wantSince:    &since,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			playlist, gotSince := filterArgs(tt.query)

			switch {
			case tt.wantPlaylist == nil && playlist != nil:
				t.Errorf("playlist = %q, want nil", *playlist)
			case tt.wantPlaylist != nil && (playlist == nil || *playlist != *tt.wantPlaylist):
				t.Errorf("playlist = %v, want %q", playlist, *tt.wantPlaylist)
			}

			switch {
			case tt.wantSince == nil && gotSince != nil:
				t.Errorf("since = %v, want nil", *gotSince)
			case tt.wantSince != nil && (gotSince == nil || !gotSince.Equal(*tt.wantSince)):
				t.Errorf("since = %v, want %v", gotSince, *tt.wantSince)
			}
		})
	}
}

func strPtr(s string) *string { return &s }
