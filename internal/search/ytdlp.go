package search

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"github.com/rs/zerolog"

	"github.com/kmahone/strum/internal/track"
)

// ErrResolution is the single error kind the search backend surfaces;
// process and parse failures are opaque to callers.
var ErrResolution = errors.New("search resolution failed")

// resolveTimeout bounds one search round trip against the backend.
const resolveTimeout = 10 * time.Second

// Resolver resolves free-text queries into candidate tracks using yt-dlp.
type Resolver struct {
	binary string
	limit  int
	logger zerolog.Logger

	// run executes the backend and returns its stdout; swapped in tests.
	run func(ctx context.Context, binary string, args ...string) ([]byte, error)
}

// NewResolver creates a Resolver invoking the given yt-dlp binary and
// returning at most limit results per query.
func NewResolver(binary string, limit int, logger zerolog.Logger) *Resolver {
	return &Resolver{
		binary: binary,
		limit:  limit,
		logger: logger.With().Str("component", "search").Logger(),
		run:    runCommand,
	}
}

func runCommand(ctx context.Context, binary string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, binary, args...).Output()
}

// Resolve searches for tracks matching the query. Any backend failure is
// surfaced as ErrResolution; the caller's search results are left alone.
func (r *Resolver) Resolve(ctx context.Context, query string) ([]track.Track, error) {
	ctx, cancel := context.WithTimeout(ctx, resolveTimeout)
	defer cancel()

	out, err := r.run(ctx, r.binary,
		"--dump-json",
		"--flat-playlist",
		"--no-playlist",
		fmt.Sprintf("ytsearch%d:%s", r.limit, query),
	)
	if err != nil {
		r.logger.Warn().Err(err).Str("query", query).Msg("Search backend failed")
		return nil, fmt.Errorf("%w: %v", ErrResolution, err)
	}

	tracks := parseResults(out)
	r.logger.Debug().Str("query", query).Int("results", len(tracks)).Msg("Resolved query")
	return tracks, nil
}

// resultEntry is the subset of yt-dlp's per-video JSON we consume.
type resultEntry struct {
	Title    string  `json:"title"`
	URL      string  `json:"url"`
	Duration float64 `json:"duration"`
	Uploader string  `json:"uploader"`
}

// parseResults decodes one JSON object per line, skipping lines that do
// not parse or carry no stream locator.
func parseResults(out []byte) []track.Track {
	var tracks []track.Track
	scanner := bufio.NewScanner(bytes.NewReader(out))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var entry resultEntry
		if err := json.Unmarshal(line, &entry); err != nil {
			continue
		}
		if entry.URL == "" {
			continue
		}
		title := entry.Title
		if title == "" {
			title = "Unknown"
		}
		tracks = append(tracks, track.Track{
			Locator:  entry.URL,
			Title:    title,
			Uploader: entry.Uploader,
			Duration: entry.Duration,
		})
	}
	return tracks
}
