// Package folder lists the video clips of a game folder and derives the team
// names from the folder name.
package folder

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// NoQuarter is the sort quarter of a file whose name carries none, which puts
// it after every numbered quarter.
const NoQuarter = 99

// DefaultTeams is used when the folder name does not name two teams.
var DefaultTeams = [2]string{"Team A", "Team B"}

// VideoExts are the file extensions listed by SelectFolder.
var VideoExts = []string{".mp4", ".mov", ".m4v", ".mkv", ".webm", ".avi"}

var (
	quarterPattern = regexp.MustCompile(`(?i)^Q(\d+)`)
	digitsPattern  = regexp.MustCompile(`^\d+`)
	nonAlnum       = regexp.MustCompile(`[^A-Za-z0-9]+`)
)

// Entry is one listed clip with its sort keys.
type Entry struct {
	Path    string
	Name    string
	Quarter int
	Time    int
}

// ParseEntry derives sort keys from a file name of the form
// <quarter>_..._<time>.ext, for example Q1_x_115700.mp4.
func ParseEntry(path string) Entry {
	name := filepath.Base(path)
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	e := Entry{Path: path, Name: name, Quarter: NoQuarter}

	parts := strings.Split(stem, "_")
	if m := quarterPattern.FindStringSubmatch(parts[0]); m != nil {
		if q, err := strconv.Atoi(m[1]); err == nil {
			e.Quarter = q
		}
	}
	if len(parts) > 1 {
		if d := digitsPattern.FindString(parts[len(parts)-1]); d != "" {
			if n, err := strconv.Atoi(d); err == nil {
				e.Time = n
			}
		}
	}
	return e
}

// Sort orders entries by ascending quarter and, within a quarter, by
// descending time token. Larger time tokens come first within a quarter on
// purpose; this is not chronological order.
func Sort(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Quarter != entries[j].Quarter {
			return entries[i].Quarter < entries[j].Quarter
		}
		return entries[i].Time > entries[j].Time
	})
}

// Teams splits a folder name such as Hawks_Jazz_03152024 into two title-cased
// team names. It returns DefaultTeams when fewer than two names are present.
func Teams(folderName string) [2]string {
	parts := strings.Split(folderName, "_")
	if len(parts) < 2 {
		return DefaultTeams
	}
	caser := cases.Title(language.English)
	var teams [2]string
	for i := range teams {
		cleaned := nonAlnum.ReplaceAllString(parts[i], "")
		if cleaned == "" {
			return DefaultTeams
		}
		teams[i] = caser.String(cleaned)
	}
	return teams
}

// IsVideo reports whether path has one of VideoExts.
func IsVideo(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, v := range VideoExts {
		if ext == v {
			return true
		}
	}
	return false
}

// Browser holds the current folder listing. A new SelectFolder replaces it.
type Browser struct {
	dir     string
	entries []Entry
	teams   [2]string
}

// NewBrowser returns an empty browser.
func NewBrowser() *Browser {
	return &Browser{teams: DefaultTeams}
}

// SelectFolder lists the video files directly inside dir, sorted, and derives
// the team names from the folder name.
func (b *Browser) SelectFolder(dir string) error {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("resolve folder: %w", err)
	}
	des, err := os.ReadDir(abs)
	if err != nil {
		return fmt.Errorf("read folder: %w", err)
	}

	var entries []Entry
	for _, de := range des {
		if de.IsDir() || strings.HasPrefix(de.Name(), ".") || !IsVideo(de.Name()) {
			continue
		}
		entries = append(entries, ParseEntry(filepath.Join(abs, de.Name())))
	}
	Sort(entries)

	b.dir = abs
	b.entries = entries
	b.teams = Teams(filepath.Base(abs))
	return nil
}

// Dir returns the selected folder, or "" before any selection.
func (b *Browser) Dir() string { return b.dir }

// Entries returns the sorted listing.
func (b *Browser) Entries() []Entry {
	out := make([]Entry, len(b.entries))
	copy(out, b.entries)
	return out
}

// Teams returns the team names derived from the selected folder.
func (b *Browser) Teams() [2]string { return b.teams }

// Len returns the number of listed entries.
func (b *Browser) Len() int { return len(b.entries) }
