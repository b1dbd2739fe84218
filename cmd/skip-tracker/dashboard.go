package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/urfave/cli/v3"

	"github.com/justestif/go-spotify-skip-tracker/internal/api"
	"github.com/justestif/go-spotify-skip-tracker/internal/dashboard"
	"github.com/justestif/go-spotify-skip-tracker/internal/skips"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#1DB954"))
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#DC2626"))
	dimStyle   = lipgloss.NewStyle().Faint(true)
)

func (a *app) dashboardCmd() *cli.Command {
	filterFlags := []cli.Flag{
		&cli.StringFlag{
			Name:  "playlist",
			Value: skips.AllPlaylists,
			Usage: "Playlist id, or \"all\"",
		},
		&cli.StringFlag{
			Name:  "timeframe",
			Value: string(skips.TimeframeAll),
			Usage: "Time window (all, week, month, year)",
		},
	}

	return &cli.Command{
		Name:  "dashboard",
		Usage: "view and prune skip statistics from a running server",
		Commands: []*cli.Command{
			{
				Name:  "show",
				Usage: "print the skip dashboard",
				Flags: append(filterFlags, &cli.IntFlag{
					Name:  "top",
					Usage: "Number of songs in the most skipped chart (default from config)",
				}),
				Action: a.dashboardShow,
			},
			{
				Name:  "prune",
				Usage: "delete every song skipped at least --threshold times",
				Flags: append(filterFlags,
					&cli.IntFlag{
						Name:  "threshold",
						Usage: "Minimum skip count (default from config)",
					},
					&cli.BoolFlag{
						Name:  "yes",
						Usage: "Delete without asking; otherwise only list the songs",
					},
				),
				Action: a.dashboardPrune,
			},
		},
	}
}

// newModel creates a dashboard model loaded with the filters from the command flags.
func (a *app) newModel(ctx context.Context, cmd *cli.Command) (*dashboard.Model, error) {
	tf, err := skips.ParseTimeframe(cmd.String("timeframe"))
	if err != nil {
		return nil, err
	}
	filters := skips.Filters{Playlist: cmd.String("playlist"), Timeframe: tf}

	client := api.New(a.cfg.Dashboard.BackendURL, api.WithSessionID(a.cfg.Dashboard.SessionID))
	model := dashboard.New(client)

	if err := model.Refresh(ctx, filters); err != nil {
		if errors.Is(err, api.ErrUnauthorized) {
			return nil, errors.New("not logged in: set SKIP_TRACKER_SESSION to the session_id cookie of a browser login")
		}
		return nil, err
	}
	return model, nil
}

// highThreshold picks the first positive of the flag and config values,
// falling back to dashboard.DefaultHighSkipThreshold.
func highThreshold(flag, configured int) int {
	if flag > 0 {
		return flag
	}
	if configured > 0 {
		return configured
	}
	return dashboard.DefaultHighSkipThreshold
}

func (a *app) dashboardShow(ctx context.Context, cmd *cli.Command) error {
	model, err := a.newModel(ctx, cmd)
	if err != nil {
		return err
	}

	topN := int(cmd.Int("top"))
	if topN <= 0 {
		topN = a.cfg.Dashboard.TopN
	}
	threshold := highThreshold(0, a.cfg.Dashboard.HighThreshold)

	renderDashboard(os.Stdout, model.Snapshot(), topN, threshold)
	return nil
}

func (a *app) dashboardPrune(ctx context.Context, cmd *cli.Command) error {
	model, err := a.newModel(ctx, cmd)
	if err != nil {
		return err
	}

	threshold := highThreshold(int(cmd.Int("threshold")), a.cfg.Dashboard.HighThreshold)
	model.SelectAllAboveThreshold(threshold)

	st := model.Snapshot()
	if len(st.Selected) == 0 {
		fmt.Printf("No songs skipped %d or more times.\n", threshold)
		return nil
	}

	fmt.Println(songsTable(selectedSongs(st)))

	if !cmd.Bool("yes") {
		fmt.Println(dimStyle.Render(fmt.Sprintf("%d songs would be deleted; rerun with --yes to delete them.", len(st.Selected))))
		return nil
	}

	if err := model.DeleteSelected(ctx); err != nil {
		return err
	}

	fmt.Printf("Deleted %d songs.\n", len(st.Selected))
	return nil
}

// renderDashboard writes the stat cards, charts and song list.
func renderDashboard(w io.Writer, st dashboard.State, topN, threshold int) {
	if st.Err != nil {
		fmt.Fprintln(w, errorStyle.Render("Error: "+st.Err.Error()))
	}

	fmt.Fprintln(w, titleStyle.Render(fmt.Sprintf("Skip Dashboard (playlist: %s, timeframe: %s)", playlistName(st), st.Filters.Timeframe)))

	stats := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("Total Skips", "Songs Tracked", "Average Skips", fmt.Sprintf("High Skip Songs (%d+)", threshold)).
		Row(
			strconv.Itoa(st.Analytics.TotalSkips),
			strconv.Itoa(len(st.Songs)),
			strconv.FormatFloat(dashboard.AverageSkips(st.Songs), 'f', 1, 64),
			strconv.Itoa(dashboard.HighSkipCount(st.Songs, threshold)),
		)
	fmt.Fprintln(w, stats.String())

	fmt.Fprintln(w, titleStyle.Render("Most Skipped"))
	top := dashboard.TopSongs(st.Songs, topN)
	maxSkips := 0
	for _, p := range top {
		maxSkips = max(maxSkips, p.Skips)
	}
	chart := table.New().Border(lipgloss.HiddenBorder()).Headers("Song", "", "Skips")
	for _, p := range top {
		chart.Row(p.Label, bar(p.Skips, maxSkips, 30), strconv.Itoa(p.Skips))
	}
	fmt.Fprintln(w, chart.String())

	d := dashboard.Distribution(st.Songs)
	total := d.Total()
	fmt.Fprintln(w, titleStyle.Render("Skip Distribution"))
	dist := table.New().Border(lipgloss.HiddenBorder()).
		Row("1-2 skips", bar(d.Low, total, 20), strconv.Itoa(d.Low)).
		Row("3-5 skips", bar(d.Medium, total, 20), strconv.Itoa(d.Medium)).
		Row("6+ skips", bar(d.High, total, 20), strconv.Itoa(d.High))
	fmt.Fprintln(w, dist.String())

	fmt.Fprintln(w, titleStyle.Render("Skipped Songs"))
	fmt.Fprintln(w, songsTable(st.Songs))
}

func songsTable(songs []skips.Song) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("#", "Song", "Artist", "Skips", "Last Skipped")
	for i, s := range songs {
		last := "-"
		if s.LastSkipped != nil {
			last = s.LastSkipped.Local().Format("2006-01-02 15:04")
		}
		t.Row(strconv.Itoa(i+1), s.Name, s.Artist, strconv.Itoa(s.SkipCount), last)
	}
	return t.String()
}

// selectedSongs returns the loaded songs that are selected, in list order.
func selectedSongs(st dashboard.State) []skips.Song {
	var out []skips.Song
	for _, s := range st.Songs {
		if st.IsSelected(s.ID) {
			out = append(out, s)
		}
	}
	return out
}

func playlistName(st dashboard.State) string {
	if st.Filters.Playlist == skips.AllPlaylists {
		return "all"
	}
	for _, p := range st.Playlists {
		if p.ID == st.Filters.Playlist {
			return p.Name
		}
	}
	return st.Filters.Playlist
}

// bar draws value as a horizontal bar scaled so that total fills width.
func bar(value, total, width int) string {
	if total <= 0 || value <= 0 {
		return ""
	}
	n := max(value*width/total, 1)
	return strings.Repeat("█", n)
}
