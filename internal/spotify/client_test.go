package spotify

import (
	"slices"
	"testing"

	"github.com/zmb3/spotify/v2"

	"github.com/justestif/go-spotify-skip-tracker/internal/skips"
	"github.com/justestif/go-spotify-skip-tracker/internal/tracker"
)

var _ tracker.PlaybackSource = (*Client)(nil)

func TestConvertPlayback(t *testing.T) {
	track := &spotify.FullTrack{
		SimpleTrack: spotify.SimpleTrack{
			ID:       "track123",
			Name:     "Test Song",
			Duration: 180000,
			Artists: []spotify.SimpleArtist{
				{Name: "Artist A"},
				{Name: "Artist B"},
			},
		},
		Album: spotify.SimpleAlbum{ID: "album1", Name: "Album"},
	}

	tests := []struct {
		name     string
		current  *spotify.CurrentlyPlaying
		expected *tracker.Playback
	}{
		{
			name:     "nil response",
			current:  nil,
			expected: nil,
		},
		{
			name:     "nothing loaded",
			current:  &spotify.CurrentlyPlaying{Playing: false},
			expected: nil,
		},
		{
			name: "playing from playlist",
			current: &spotify.CurrentlyPlaying{
				Playing:  true,
				Progress: 42000,
				Item:     track,
				PlaybackContext: spotify.PlaybackContext{
					Type: "playlist",
					URI:  "spotify:playlist:37i9dQZF1DX",
				},
			},
			expected: &tracker.Playback{
				Playing:    true,
				TrackID:    "track123",
				TrackName:  "Test Song",
				Artist:     "Artist A, Artist B",
				Album:      "Album",
				AlbumID:    "album1",
				PlaylistID: "37i9dQZF1DX",
				ProgressMs: 42000,
				DurationMs: 180000,
			},
		},
		{
			name: "paused in album context",
			current: &spotify.CurrentlyPlaying{
				Playing:  false,
				Progress: 1000,
				Item:     track,
				PlaybackContext: spotify.PlaybackContext{
					Type: "album",
					URI:  "spotify:album:album1",
				},
			},
			expected: &tracker.Playback{
				TrackID:    "track123",
				TrackName:  "Test Song",
				Artist:     "Artist A, Artist B",
				Album:      "Album",
				AlbumID:    "album1",
				ProgressMs: 1000,
				DurationMs: 180000,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := convertPlayback(tt.current)
			if tt.expected == nil {
				if got != nil {
					t.Fatalf("convertPlayback() = %+v, want nil", got)
				}
				return
			}
			if got == nil {
				t.Fatal("convertPlayback() = nil")
			}
			if *got != *tt.expected {
				t.Errorf("convertPlayback() = %+v, want %+v", *got, *tt.expected)
			}
		})
	}
}

func TestPlaylistIDFromURI(t *testing.T) {
	tests := []struct {
		uri      string
		expected string
	}{
		{"spotify:playlist:abc", "abc"},
		{"spotify:album:abc", ""},
		{"", ""},
	}

	for _, tt := range tests {
		if got := playlistIDFromURI(tt.uri); got != tt.expected {
			t.Errorf("playlistIDFromURI(%q) = %q, want %q", tt.uri, got, tt.expected)
		}
	}
}

func TestJoinArtists(t *testing.T) {
	if got := joinArtists(nil); got != "" {
		t.Errorf("joinArtists(nil) = %q, want empty", got)
	}
	got := joinArtists([]spotify.SimpleArtist{{Name: "Solo"}})
	if got != "Solo" {
		t.Errorf("joinArtists() = %q, want Solo", got)
	}
}

func TestConvertPlaylists(t *testing.T) {
	got := convertPlaylists([]spotify.SimplePlaylist{
		{ID: "p1", Name: "Morning"},
		{ID: "p2", Name: "Gym"},
	})
	want := []skips.Playlist{{ID: "p1", Name: "Morning"}, {ID: "p2", Name: "Gym"}}
	if !slices.Equal(got, want) {
		t.Errorf("convertPlaylists() = %v, want %v", got, want)
	}
}
