package search

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/hbollon/go-edlib"

	"github.com/vmunix/trailgo/internal/config"
	"github.com/vmunix/trailgo/internal/execx"
	"github.com/vmunix/trailgo/internal/media"
)

// Resolver picks the trailer candidate for a media item.
type Resolver struct {
	runner        execx.Runner
	ytdlp         string
	cookies       string
	queryTemplate string
	limit         int
	minSimilarity float64
	log           *slog.Logger
}

// NewResolver creates a resolver from the search configuration.
func NewResolver(runner execx.Runner, cfg *config.Config, log *slog.Logger) *Resolver {
	return &Resolver{
		runner:        runner,
		ytdlp:         cfg.Tools.YtDlp,
		cookies:       cfg.Tools.Cookies,
		queryTemplate: cfg.Search.QueryTemplate,
		limit:         cfg.Search.Limit,
		minSimilarity: cfg.Search.MinSimilarity,
		log:           log,
	}
}

// Resolve returns the candidate to attempt for this item.
//
// A stored identifier is reused directly (no subprocess) when it is not in
// the exclusion set and the profile does not force a fresh search.
// Otherwise a ranked search runs and the first result passing all filters
// wins, in the engine's ranking order. Returns ErrNoCandidate when every
// result is rejected.
func (r *Resolver) Resolve(ctx context.Context, item *media.Item, profile config.Profile, excluded *ExcludeSet) (Candidate, error) {
	if item.YouTubeID != "" && !profile.AlwaysSearch && !excluded.Has(item.YouTubeID) {
		r.log.Debug("reusing stored trailer id", "media_id", item.ID, "youtube_id", item.YouTubeID)
		return Candidate{ID: item.YouTubeID, Stored: true}, nil
	}

	query := r.buildQuery(item)
	candidates, err := r.search(ctx, query)
	if err != nil {
		return Candidate{}, err
	}

	cleanTitle := CleanTitle(item.Title)
	for _, c := range candidates {
		if reason := r.reject(c, profile, excluded, cleanTitle); reason != "" {
			r.log.Debug("candidate rejected", "media_id", item.ID, "candidate", c.ID, "reason", reason)
			continue
		}
		r.log.Info("candidate selected", "media_id", item.ID, "candidate", c.ID, "title", c.Title)
		return c, nil
	}

	return Candidate{}, fmt.Errorf("%w: query %q, %d results", ErrNoCandidate, query, len(candidates))
}

func (r *Resolver) buildQuery(item *media.Item) string {
	repl := strings.NewReplacer(
		"{title}", item.Title,
		"{year}", strconv.Itoa(item.Year),
	)
	return NormalizeQuery(repl.Replace(r.queryTemplate))
}

func (r *Resolver) search(ctx context.Context, query string) ([]Candidate, error) {
	args := buildSearchArgs(query, r.limit, r.cookies)
	res, err := r.runner.Run(ctx, r.ytdlp, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSearchFailed, err)
	}

	candidates := parseSearchOutput(res.Stdout)

	// yt-dlp exits non-zero when some results fail extraction; usable lines
	// may still be present. Fail only when nothing was parsed.
	if !res.Success() && len(candidates) == 0 {
		return nil, fmt.Errorf("%w: exit %d: %s", ErrSearchFailed, res.ExitCode, firstLine(res.Output()))
	}
	return candidates, nil
}

// reject returns a non-empty reason when the candidate fails a filter.
func (r *Resolver) reject(c Candidate, profile config.Profile, excluded *ExcludeSet, cleanTitle string) string {
	if excluded.Has(c.ID) {
		return "previously rejected"
	}
	if c.Duration < profile.MinDuration || c.Duration > profile.MaxDuration {
		return fmt.Sprintf("duration %s outside [%s, %s]", c.Duration, profile.MinDuration, profile.MaxDuration)
	}
	lower := strings.ToLower(c.Title)
	for _, word := range profile.ExcludeWords {
		if word != "" && strings.Contains(lower, strings.ToLower(word)) {
			return fmt.Sprintf("title contains %q", word)
		}
	}
	if sim := titleSimilarity(cleanTitle, c.Title); sim < r.minSimilarity {
		return fmt.Sprintf("title similarity %.2f below %.2f", sim, r.minSimilarity)
	}
	return ""
}

// titleSimilarity measures how closely a result title matches the media
// title, ignoring trailer boilerplate. Containment counts as a full match.
func titleSimilarity(cleanMedia, resultTitle string) float64 {
	cleanResult := CleanTitle(resultTitle)
	if cleanMedia == "" || cleanResult == "" {
		return 0
	}
	if strings.Contains(cleanResult, cleanMedia) {
		return 1
	}
	return float64(edlib.JaroWinklerSimilarity(cleanMedia, cleanResult))
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
