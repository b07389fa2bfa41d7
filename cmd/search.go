package cmd

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"github.com/kmahone/strum/internal/config"
	"github.com/kmahone/strum/internal/search"
	"github.com/kmahone/strum/internal/track"
)

const defaultSearchFormat = "{{.Title}} - {{.Uploader}} [{{.FormatDuration}}]"

// searchCmd represents the search command
var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search for tracks and print the results",
	Long: `Resolve a search query through yt-dlp and print one line per result.

Useful for scripting and for checking what the interactive player would
find without starting it.

The output format is a Go template. Available fields: .Title, .Uploader,
.Locator, .FormatDuration

Exit codes:
  0 - At least one result found
  1 - Resolution failed or no results`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)

	searchCmd.Flags().StringP("format", "f", defaultSearchFormat, "Output format template")
	searchCmd.Flags().IntP("width", "w", 0, "Fixed output width per line (0=disabled)")
	searchCmd.Flags().IntP("limit", "n", 0, "Maximum results (overrides config)")
	searchCmd.Flags().Bool("locator", false, "Print only the playable locator per result")
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	limit, _ := cmd.Flags().GetInt("limit")
	if limit <= 0 {
		limit = cfg.SearchLimit
	}

	logger := setupLogger(rootLogFile, rootLogLevel)
	resolver := search.NewResolver(cfg.YTDLPBinary, limit, logger)

	results, err := resolver.Resolve(ctx, args[0])
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}
	if len(results) == 0 {
		return fmt.Errorf("no results for %q", args[0])
	}

	locatorOnly, _ := cmd.Flags().GetBool("locator")
	formatFlag, _ := cmd.Flags().GetString("format")
	width, _ := cmd.Flags().GetInt("width")

	for _, t := range results {
		if locatorOnly {
			fmt.Println(t.Locator)
			continue
		}
		line, err := formatTrack(t, formatFlag)
		if err != nil {
			return fmt.Errorf("failed to format output: %w", err)
		}
		if width > 0 {
			line = padToWidth(line, width)
		}
		fmt.Println(line)
	}
	return nil
}

// formatTrack applies the template to the track data
func formatTrack(t track.Track, templateStr string) (string, error) {
	tmpl, err := template.New("output").Parse(templateStr)
	if err != nil {
		return "", fmt.Errorf("invalid template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, t); err != nil {
		return "", fmt.Errorf("template execution failed: %w", err)
	}

	return buf.String(), nil
}

// padToWidth pads or truncates text to a fixed display width.
// Width is measured in display columns, accounting for Unicode characters.
// If width <= 0, returns text unchanged.
// If text is longer than width, truncates with "..." suffix.
// If text is shorter than width, pads with spaces.
func padToWidth(text string, width int) string {
	if width <= 0 {
		return text
	}

	currentWidth := runewidth.StringWidth(text)

	if currentWidth > width {
		ellipsis := "..."
		ellipsisWidth := runewidth.StringWidth(ellipsis)

		if width <= ellipsisWidth {
			return runewidth.Truncate(ellipsis, width, "")
		}

		truncated := runewidth.Truncate(text, width-ellipsisWidth, "")
		result := truncated + ellipsis

		// Wide runes can make Truncate land short of the target.
		resultWidth := runewidth.StringWidth(result)
		if resultWidth < width {
			return result + strings.Repeat(" ", width-resultWidth)
		} else if resultWidth > width {
			return runewidth.Truncate(result, width, "")
		}
		return result
	} else if currentWidth < width {
		return text + strings.Repeat(" ", width-currentWidth)
	}

	return text
}
