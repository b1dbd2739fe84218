package spotify

import (
	"context"
	"fmt"
	"strings"

	"github.com/zmb3/spotify/v2"

	"github.com/justestif/go-spotify-skip-tracker/internal/tracker"
)

const playlistURIPrefix = "spotify:playlist:"

// CurrentPlayback returns what the user is playing, or nil when nothing is loaded.
// It implements tracker.PlaybackSource.
func (c *Client) CurrentPlayback(ctx context.Context) (*tracker.Playback, error) {
	current, err := c.api.PlayerCurrentlyPlaying(ctx)
	if err != nil {
		return nil, fmt.Errorf("getting currently playing: %w", err)
	}
	return convertPlayback(current), nil
}

// convertPlayback converts Spotify's currently-playing object to a tracker.Playback.
// Returns nil when no track is loaded (nothing playing, or an episode/ad).
func convertPlayback(current *spotify.CurrentlyPlaying) *tracker.Playback {
	if current == nil || current.Item == nil || current.Item.ID == "" {
		return nil
	}

	item := current.Item
	pb := &tracker.Playback{
		Playing:    current.Playing,
		TrackID:    item.ID.String(),
		TrackName:  item.Name,
		Artist:     joinArtists(item.Artists),
		Album:      item.Album.Name,
		AlbumID:    item.Album.ID.String(),
		ProgressMs: int(current.Progress),
		DurationMs: int(item.Duration),
	}
	if current.PlaybackContext.Type == "playlist" {
		pb.PlaylistID = playlistIDFromURI(string(current.PlaybackContext.URI))
	}
	return pb
}

// joinArtists joins artist names with ", ".
func joinArtists(artists []spotify.SimpleArtist) string {
	names := make([]string, len(artists))
	for i, a := range artists {
		names[i] = a.Name
	}
	return strings.Join(names, ", ")
}

// playlistIDFromURI extracts the playlist ID from a "spotify:playlist:<id>" URI.
func playlistIDFromURI(uri string) string {
	id, ok := strings.CutPrefix(uri, playlistURIPrefix)
	if !ok {
		return ""
	}
	return id
}
