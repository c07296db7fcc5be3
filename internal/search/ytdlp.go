package search

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const searchPrefix = "ytsearch"

// Candidate is one remote video considered as a trailer source.
type Candidate struct {
	ID       string
	Title    string
	Channel  string
	URL      string
	Duration time.Duration
	Stored   bool // true when the identifier came from the registry, not a search
}

// searchResult mirrors the JSON line yt-dlp prints per result with -j.
type searchResult struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	Channel  string  `json:"channel"`
	URL      string  `json:"webpage_url"`
	Duration float64 `json:"duration"`
}

// buildSearchArgs assembles the yt-dlp invocation for a ranked search.
// --skip-download keeps it metadata-only; one JSON object per line.
func buildSearchArgs(query string, limit int, cookies string) []string {
	args := []string{
		"-j",
		fmt.Sprintf("%s%d:%s", searchPrefix, limit, query),
		"--skip-download",
		"--no-warnings",
	}
	if cookies != "" {
		args = append(args, "--cookies", cookies)
	}
	return args
}

// parseSearchOutput decodes yt-dlp's line-oriented JSON output, preserving
// the engine's ranking order. Unparseable lines are skipped, not fatal.
func parseSearchOutput(out string) []Candidate {
	var candidates []Candidate
	seen := make(map[string]bool)

	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || !strings.HasPrefix(line, "{") {
			continue
		}
		var r searchResult
		if err := json.Unmarshal([]byte(line), &r); err != nil {
			continue
		}
		if r.ID == "" || seen[r.ID] {
			continue
		}
		seen[r.ID] = true
		candidates = append(candidates, Candidate{
			ID:       r.ID,
			Title:    r.Title,
			Channel:  r.Channel,
			URL:      r.URL,
			Duration: time.Duration(r.Duration * float64(time.Second)),
		})
	}
	return candidates
}
