package spotify

import (
	"context"
	"errors"
	"fmt"

	"github.com/zmb3/spotify/v2"

	"github.com/justestif/go-spotify-skip-tracker/internal/skips"
)

const maxPlaylistsPerRequest = 50

// Playlists retrieves all of the current user's playlists.
func (c *Client) Playlists(ctx context.Context) ([]skips.Playlist, error) {
	page, err := c.api.CurrentUsersPlaylists(ctx, spotify.Limit(maxPlaylistsPerRequest))
	if err != nil {
		return nil, fmt.Errorf("fetching playlists: %w", err)
	}

	playlists := []skips.Playlist{}
	for {
		playlists = append(playlists, convertPlaylists(page.Playlists)...)

		err = c.api.NextPage(ctx, page)
		if errors.Is(err, spotify.ErrNoMorePages) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("fetching next page: %w", err)
		}
	}

	return playlists, nil
}

// convertPlaylists converts Spotify playlists to playlist references.
func convertPlaylists(in []spotify.SimplePlaylist) []skips.Playlist {
	out := make([]skips.Playlist, len(in))
	for i, p := range in {
		out[i] = skips.Playlist{
			ID:   p.ID.String(),
			Name: p.Name,
		}
	}
	return out
}
