// Package report renders the markdown summary of a user's public gists.
// Everything here is pure: no network I/O, no clock reads.
package report

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/montanaflynn/stats"

	"github.com/naka-gawa/gist-index/internal/domain"
)

const (
	maxTitleLength = 120
	noDescription  = "(no description)"
)

// Options carries everything besides the data that shapes the rendering.
type Options struct {
	Username   string
	Now        time.Time
	Location   *time.Location // nil means UTC
	DateFormat string         // Go layout, e.g. "2006-01-02"
	TimeFormat string         // Go layout, e.g. "15:04"
}

// Entry is one row of the report.
type Entry struct {
	Gist  domain.Gist
	Stats domain.EngagementStats
}

// Build pairs gists with their stats, sorts them and renders the report.
// Gists missing from stats render with every counter unavailable.
func Build(gists []domain.Gist, engagement map[string]domain.EngagementStats, opts Options) string {
	entries := make([]Entry, 0, len(gists))
	for _, g := range gists {
		s, ok := engagement[g.ID]
		if !ok {
			s = domain.UnavailableStats()
		}
		entries = append(entries, Entry{Gist: g, Stats: s})
	}
	return Render(Sort(entries), opts)
}

// Sort orders entries by update time, newest first. Ties keep their input order and
// entries with unparseable timestamps go last.
func Sort(entries []Entry) []Entry {
	type keyed struct {
		entry   Entry
		updated time.Time
	}
	rows := make([]keyed, len(entries))
	for i, e := range entries {
		t, _ := parseTimestamp(e.Gist.UpdatedAt)
		rows[i] = keyed{entry: e, updated: t}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].updated.After(rows[j].updated)
	})

	sorted := make([]Entry, len(rows))
	for i, r := range rows {
		sorted[i] = r.entry
	}
	return sorted
}

// Render formats already sorted entries as markdown. There is no visibility column:
// entries come from FilterPublic, so every row is public.
func Render(entries []Entry, opts Options) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Public Gists from %s\n\n", opts.Username)
	fmt.Fprintf(&b, "**Last updated:** %s\n\n", formatTime(opts.Now, opts))
	fmt.Fprintf(&b, "**Total public gists:** %d\n\n", len(entries))
	fmt.Fprintf(&b, "%s\n\n", engagementSummary(entries))

	b.WriteString("| Title | Files | Lang | Stars | Forks | Comments | Updated | Link |\n")
	b.WriteString("|---|---:|---|---:|---:|---:|---|---|\n")
	for _, e := range entries {
		fmt.Fprintf(&b, "| %s | %d | %s | %s | %s | %s | %s | [open](%s) |\n",
			escapeCell(Title(e.Gist.Description)),
			len(e.Gist.Files),
			escapeCell(PrimaryLanguage(e.Gist.Files)),
			e.Stats.Stars,
			e.Stats.Forks,
			e.Stats.Comments,
			FormatTimestamp(e.Gist.UpdatedAt, opts),
			e.Gist.HTMLURL,
		)
	}

	fmt.Fprintf(&b, "\n_Generated by [Make Gist List](https://github.com/%s/Make-Gist-List)._", opts.Username)
	return b.String()
}

// Title is the first line of the description, cut to 120 characters.
func Title(description string) string {
	description = strings.TrimSpace(description)
	if description == "" {
		return noDescription
	}
	line, _, _ := strings.Cut(description, "\n")
	line = strings.TrimRight(line, "\r")
	if runes := []rune(line); len(runes) > maxTitleLength {
		line = string(runes[:maxTitleLength])
	}
	return line
}

// PrimaryLanguage is the language of the largest file that declares one. On equal sizes
// the first file in iteration order wins; files are ordered by name, so the result is stable.
func PrimaryLanguage(files []domain.GistFile) string {
	best := ""
	bestSize := -1
	for _, f := range files {
		if f.Language == "" {
			continue
		}
		if f.Size > bestSize {
			best, bestSize = f.Language, f.Size
		}
	}
	return best
}

// FormatTimestamp renders an API timestamp in the configured zone and layouts.
// Anything unparseable is shown as is.
func FormatTimestamp(raw string, opts Options) string {
	t, ok := parseTimestamp(raw)
	if !ok {
		return raw
	}
	return formatTime(t, opts)
}

func formatTime(t time.Time, opts Options) string {
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}
	layout := strings.TrimSpace(opts.DateFormat + " " + opts.TimeFormat)
	if layout == "" {
		layout = "2006-01-02 15:04"
	}
	if !hasZone(layout) {
		layout += " MST"
	}
	return t.In(loc).Format(layout)
}

// hasZone reports whether layout already prints a zone name or offset.
func hasZone(layout string) bool {
	for _, token := range []string{"MST", "Z07", "-07"} {
		if strings.Contains(layout, token) {
			return true
		}
	}
	return false
}

func parseTimestamp(raw string) (time.Time, bool) {
	t, err := time.Parse(time.RFC3339, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// engagementSummary totals the available counters; unavailable ones are left out.
func engagementSummary(entries []Entry) string {
	var starData, forkData, commentData stats.Float64Data
	collect := func(data *stats.Float64Data, c domain.Count) {
		if v, ok := c.Value(); ok {
			*data = append(*data, float64(v))
		}
	}
	for _, e := range entries {
		collect(&starData, e.Stats.Stars)
		collect(&forkData, e.Stats.Forks)
		collect(&commentData, e.Stats.Comments)
	}
	return fmt.Sprintf("**Stars:** %s · **Forks:** %s · **Comments:** %s",
		summarize(starData, len(entries)), summarize(forkData, len(entries)), summarize(commentData, len(entries)))
}

func summarize(data stats.Float64Data, total int) string {
	sum, err := stats.Sum(data)
	if err != nil {
		return "n/a"
	}
	median, err := stats.Median(data)
	if err != nil {
		return "n/a"
	}
	s := fmt.Sprintf("%d total, median %s", int(sum), strconv.FormatFloat(median, 'f', -1, 64))
	if missing := total - data.Len(); missing > 0 {
		s += fmt.Sprintf(" (%d n/a)", missing)
	}
	return s
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
