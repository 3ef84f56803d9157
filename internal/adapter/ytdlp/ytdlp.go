package ytdlp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jgivc/vidrelay/internal/common"
	"github.com/jgivc/vidrelay/internal/config"
)

const (
	maxStderrTail = 500
)

// unavailableMarkers are stderr fragments the tool prints for videos that
// are gone or region locked. Matching is case-insensitive.
var unavailableMarkers = []string{
	"video unavailable",
	"not available",
}

// RawInfo is the subset of the tool's single-line json dump the service
// cares about.
type RawInfo struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Thumbnail   string      `json:"thumbnail"`
	Duration    float64     `json:"duration"`
	Description string      `json:"description"`
	URL         string      `json:"url"`
	Formats     []RawFormat `json:"formats"`
}

type RawFormat struct {
	FormatID       string  `json:"format_id"`
	Ext            string  `json:"ext"`
	VCodec         string  `json:"vcodec"`
	ACodec         string  `json:"acodec"`
	Quality        float64 `json:"quality"`
	Resolution     string  `json:"resolution"`
	Width          int     `json:"width"`
	Height         int     `json:"height"`
	Filesize       int64   `json:"filesize"`
	FilesizeApprox int64   `json:"filesize_approx"`
	FormatNote     string  `json:"format_note"`
}

type ytdlpAdapter struct {
	cfg    *config.ExtractorConfig
	runner Runner
	log    *slog.Logger
}

func New(cfg *config.ExtractorConfig, log *slog.Logger) *ytdlpAdapter {
	return NewWithRunner(execRunner{}, cfg, log)
}

func NewWithRunner(runner Runner, cfg *config.ExtractorConfig, log *slog.Logger) *ytdlpAdapter {
	return &ytdlpAdapter{
		cfg:    cfg,
		runner: runner,
		log:    log.With(slog.String("item", "YtdlpAdapter")),
	}
}

// Metadata dumps the video description json without downloading anything.
func (a *ytdlpAdapter) Metadata(ctx context.Context, rawURL string) (*RawInfo, error) {
	args := append([]string{"-J", "--no-warnings", "--skip-download"}, a.compatArgs()...)
	args = append(args, rawURL)

	a.log.Debug("Run extractor", slog.String("mode", "metadata"), slog.String("url", rawURL))

	stdout, stderr, err := a.runner.Run(ctx, a.cfg.BinPath, args...)
	if err != nil {
		return nil, classify(stderr, err)
	}

	var info RawInfo
	if err := json.Unmarshal(stdout, &info); err != nil {
		return nil, fmt.Errorf("cannot parse extractor output: %w", err)
	}

	return &info, nil
}

// Download fetches the selected format into outPath.
func (a *ytdlpAdapter) Download(ctx context.Context, rawURL, format, outPath string) error {
	args := append([]string{"--no-warnings", "-f", format, "-o", outPath}, a.compatArgs()...)
	args = append(args, rawURL)

	a.log.Debug("Run extractor", slog.String("mode", "download"),
		slog.String("url", rawURL), slog.String("format", format))

	_, stderr, err := a.runner.Run(ctx, a.cfg.BinPath, args...)
	if err != nil {
		return classify(stderr, err)
	}

	return nil
}

func (a *ytdlpAdapter) compatArgs() []string {
	return []string{
		"--no-check-certificates",
		"--prefer-free-formats",
		"--add-header", "referer:" + a.cfg.Referer,
		"--add-header", "user-agent:" + a.cfg.UserAgent,
	}
}

// classify maps tool failures onto domain errors. The tool exits nonzero
// for soft failures like removed videos and explains itself on stderr.
func classify(stderr []byte, err error) error {
	msg := strings.ToLower(string(stderr))
	for _, marker := range unavailableMarkers {
		if strings.Contains(msg, marker) {
			return common.ErrVideoUnavailable
		}
	}

	return fmt.Errorf("cannot run extractor: %w (%s)", err, stderrTail(stderr))
}

func stderrTail(stderr []byte) string {
	s := strings.TrimSpace(string(stderr))
	if len(s) > maxStderrTail {
		s = s[len(s)-maxStderrTail:]
	}

	return s
}
