// Package dashboard implements the skip dashboard view model.
//
// A Model loads songs, analytics and playlists from a Backend, keeps the
// active filters and the selection set, and exposes snapshots for rendering.
// Only the most recently issued refresh is ever applied.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/justestif/go-spotify-skip-tracker/internal/skips"
)

// ErrSuperseded is returned by Refresh when a newer refresh was issued before it completed.
var ErrSuperseded = errors.New("refresh superseded by a newer request")

// Backend is the skip analytics API consumed by the dashboard.
type Backend interface {
	Analytics(ctx context.Context, f skips.Filters) (skips.Analytics, error)
	SkippedSongs(ctx context.Context, f skips.Filters) ([]skips.Song, error)
	Playlists(ctx context.Context) ([]skips.Playlist, error)
	DeleteSongs(ctx context.Context, songIDs []string) error
}

// State is an immutable snapshot of the dashboard for rendering.
type State struct {
	Filters   skips.Filters
	Songs     []skips.Song
	Analytics skips.Analytics
	Playlists []skips.Playlist
	Selected  []string
	Loading   bool
	Err       error
}

// IsSelected reports whether the song is in the selection.
func (s State) IsSelected(id string) bool {
	_, found := slices.BinarySearch(s.Selected, id)
	return found
}

// Model is the dashboard view model. It is safe for concurrent use.
type Model struct {
	backend Backend
	logger  zerolog.Logger

	mu         sync.RWMutex
	filters    skips.Filters
	songs      []skips.Song
	analytics  skips.Analytics
	playlists  []skips.Playlist
	selection  Selection
	loading    bool
	generation uint64
	lastErr    error
}

// Option configures a Model.
type Option func(*Model)

// WithLogger sets the logger used for diagnostics.
func WithLogger(l zerolog.Logger) Option {
	return func(m *Model) {
		m.logger = l
	}
}

// WithFilters sets the initial filters.
func WithFilters(f skips.Filters) Option {
	return func(m *Model) {
		m.filters = f.Normalize()
	}
}

// New creates a dashboard model backed by the given API.
func New(backend Backend, opts ...Option) *Model {
	m := &Model{
		backend: backend,
		logger:  log.Logger,
		filters: skips.DefaultFilters(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Refresh loads analytics, songs and playlists for the filters and replaces
// the model state with the results. The filters become the current filters
// immediately. If any request fails the previous data is kept.
// Returns ErrSuperseded if another refresh was issued in the meantime.
func (m *Model) Refresh(ctx context.Context, f skips.Filters) error {
	f = f.Normalize()

	m.mu.Lock()
	m.generation++
	gen := m.generation
	m.filters = f
	m.loading = true
	m.mu.Unlock()

	var (
		analytics skips.Analytics
		songs     []skips.Song
		playlists []skips.Playlist
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		analytics, err = m.backend.Analytics(gctx, f)
		if err != nil {
			return fmt.Errorf("fetching analytics: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		songs, err = m.backend.SkippedSongs(gctx, f)
		if err != nil {
			return fmt.Errorf("fetching skipped songs: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		playlists, err = m.backend.Playlists(gctx)
		if err != nil {
			return fmt.Errorf("fetching playlists: %w", err)
		}
		return nil
	})
	err := g.Wait()

	m.mu.Lock()
	defer m.mu.Unlock()

	if gen != m.generation {
		m.logger.Debug().Uint64("generation", gen).Msg("dashboard: discarding superseded refresh")
		return ErrSuperseded
	}
	m.loading = false

	if err != nil {
		m.lastErr = err
		m.logger.Error().Err(err).
			Str("playlist", f.Playlist).
			Str("timeframe", string(f.Timeframe)).
			Msg("dashboard: refresh failed")
		return err
	}

	m.analytics = analytics
	m.songs = songs
	m.playlists = playlists
	m.lastErr = nil

	if dropped := m.selection.Retain(songIDSet(songs)); dropped > 0 {
		m.logger.Debug().Int("dropped", dropped).Msg("dashboard: removed stale selections")
	}

	return nil
}

// Reload refreshes the model with its current filters.
func (m *Model) Reload(ctx context.Context) error {
	return m.Refresh(ctx, m.Filters())
}

// Filters returns the current filters.
func (m *Model) Filters() skips.Filters {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.filters
}

// ToggleSelection flips the selection state of one loaded song.
// IDs that are not in the loaded song list are ignored.
func (m *Model) ToggleSelection(songID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.hasSong(songID) {
		return
	}
	m.selection.Toggle(songID)
}

// SetSelection replaces the selection with the given IDs, keeping only loaded
// songs. Duplicate IDs select a song once.
func (m *Model) SetSelection(songIDs ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := make([]string, 0, len(songIDs))
	for _, id := range songIDs {
		if m.hasSong(id) {
			ids = append(ids, id)
		}
	}
	m.selection = NewSelection(ids...)
}

// SelectAllAboveThreshold replaces the selection with every loaded song
// skipped at least threshold times.
func (m *Model) SelectAllAboveThreshold(threshold int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var ids []string
	for _, s := range m.songs {
		if s.SkipCount >= threshold {
			ids = append(ids, s.ID)
		}
	}
	m.selection = NewSelection(ids...)
}

// SelectHighSkips selects every song at or above DefaultHighSkipThreshold.
func (m *Model) SelectHighSkips() {
	m.SelectAllAboveThreshold(DefaultHighSkipThreshold)
}

// SelectAll selects every loaded song.
func (m *Model) SelectAll() {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := make([]string, len(m.songs))
	for i, s := range m.songs {
		ids[i] = s.ID
	}
	m.selection = NewSelection(ids...)
}

// ClearAll empties the selection.
func (m *Model) ClearAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.selection = Selection{}
}

// DeleteSelected deletes the selected songs with one bulk request, removes
// them from the selection and reloads the current filters. It does nothing when the
// selection is empty. On failure the selection is kept for a manual retry.
func (m *Model) DeleteSelected(ctx context.Context) error {
	m.mu.RLock()
	ids := m.selection.IDs()
	m.mu.RUnlock()

	if len(ids) == 0 {
		return nil
	}

	if err := m.backend.DeleteSongs(ctx, ids); err != nil {
		err = fmt.Errorf("deleting %d songs: %w", len(ids), err)
		m.mu.Lock()
		m.lastErr = err
		m.mu.Unlock()
		m.logger.Error().Err(err).Msg("dashboard: delete failed")
		return err
	}

	m.mu.Lock()
	m.selection.Remove(ids...)
	m.mu.Unlock()

	m.logger.Info().Int("count", len(ids)).Msg("dashboard: deleted songs")

	if err := m.Reload(ctx); err != nil && !errors.Is(err, ErrSuperseded) {
		return fmt.Errorf("reloading after delete: %w", err)
	}
	return nil
}

// Snapshot returns a copy of the current state.
func (m *Model) Snapshot() State {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return State{
		Filters:   m.filters,
		Songs:     slices.Clone(m.songs),
		Analytics: m.analytics,
		Playlists: slices.Clone(m.playlists),
		Selected:  m.selection.IDs(),
		Loading:   m.loading,
		Err:       m.lastErr,
	}
}

// hasSong reports whether id is in the loaded song list. Callers hold mu.
func (m *Model) hasSong(id string) bool {
	return slices.ContainsFunc(m.songs, func(s skips.Song) bool { return s.ID == id })
}

// songIDSet returns the IDs of songs as a set.
func songIDSet(songs []skips.Song) map[string]struct{} {
	set := make(map[string]struct{}, len(songs))
	for _, s := range songs {
		set[s.ID] = struct{}{}
	}
	return set
}
