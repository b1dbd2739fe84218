// Package tracker detects skipped songs from Spotify playback observations.
package tracker

import (
	"time"

	"github.com/justestif/go-spotify-skip-tracker/internal/skips"
)

// DefaultEndTolerance is how close to its end a track may change without counting as a skip.
const DefaultEndTolerance = 10 * time.Second

// Playback is a snapshot of the user's current playback.
type Playback struct {
	Playing    bool
	TrackID    string
	TrackName  string
	Artist     string
	Album      string
	AlbumID    string
	PlaylistID string // empty when the playback context is not a playlist
	ProgressMs int
	DurationMs int
}

type observation struct {
	playback Playback
	at       time.Time
}

// Detector turns a sequence of playback observations into skip events.
// It is not safe for concurrent use.
type Detector struct {
	endTolerance time.Duration
	last         *observation
}

// NewDetector creates a Detector. A non-positive tolerance uses DefaultEndTolerance.
func NewDetector(endTolerance time.Duration) *Detector {
	if endTolerance <= 0 {
		endTolerance = DefaultEndTolerance
	}
	return &Detector{endTolerance: endTolerance}
}

// Observe records the playback seen at now and returns a skip event if the
// previously observed track was left before it could have finished.
// A nil playback (nothing loaded) resets the detector.
func (d *Detector) Observe(now time.Time, pb *Playback) *skips.Event {
	if pb == nil || pb.TrackID == "" {
		d.last = nil
		return nil
	}

	prev := d.last
	d.last = &observation{playback: *pb, at: now}

	if prev == nil || prev.playback.TrackID == pb.TrackID {
		return nil
	}

	progress := estimatedProgress(prev, now)
	if !d.leftEarly(prev.playback, progress) {
		return nil
	}

	p := prev.playback
	return &skips.Event{
		TrackID:    p.TrackID,
		TrackName:  p.TrackName,
		Artist:     p.Artist,
		Album:      p.Album,
		AlbumID:    p.AlbumID,
		PlaylistID: p.PlaylistID,
		ProgressMs: progress,
		DurationMs: p.DurationMs,
		SkippedAt:  now,
	}
}

// leftEarly reports whether a track changed with more than the tolerance remaining.
// Tracks of unknown duration always count.
func (d *Detector) leftEarly(p Playback, progressMs int) bool {
	if p.DurationMs <= 0 {
		return true
	}
	remaining := time.Duration(p.DurationMs-progressMs) * time.Millisecond
	return remaining > d.endTolerance
}

// estimatedProgress extrapolates the playback position of prev up to now.
func estimatedProgress(prev *observation, now time.Time) int {
	progress := prev.playback.ProgressMs
	if prev.playback.Playing {
		if elapsed := now.Sub(prev.at); elapsed > 0 {
			progress += int(elapsed.Milliseconds())
		}
	}
	if d := prev.playback.DurationMs; d > 0 && progress > d {
		progress = d
	}
	return progress
}
