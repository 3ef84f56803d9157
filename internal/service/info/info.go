package info

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/jgivc/vidrelay/internal/adapter/ytdlp"
	"github.com/jgivc/vidrelay/internal/common"
	"github.com/jgivc/vidrelay/internal/entity"
	"github.com/jgivc/vidrelay/internal/platform"
)

const (
	serviceName = "info"

	maxDescriptionRunes = 200
	descriptionEllipsis = "..."

	placeholderID    = "best"
	placeholderLabel = "Best available"
)

type ExtractorGateway interface {
	Metadata(ctx context.Context, rawURL string) (*ytdlp.RawInfo, error)
}

type infoService struct {
	gw  ExtractorGateway
	log *slog.Logger
}

func NewInfoService(gw ExtractorGateway, log *slog.Logger) *infoService {
	return &infoService{
		gw:  gw,
		log: log.With(slog.String("service", serviceName)),
	}
}

func (s *infoService) Info(ctx context.Context, rawURL string) (*entity.MediaInfo, error) {
	if rawURL == "" {
		return nil, common.ErrMissingURL
	}

	p := platform.Detect(rawURL)
	if p == entity.PlatformUnrecognized {
		return nil, common.ErrUnsupportedPlatform
	}

	raw, err := s.gw.Metadata(ctx, rawURL)
	if err != nil {
		s.log.Error("Cannot fetch metadata", slog.String("url", rawURL), slog.Any("error", err))

		return nil, fmt.Errorf("cannot fetch metadata: %w", err)
	}

	return &entity.MediaInfo{
		ID:          raw.ID,
		Title:       raw.Title,
		Thumbnail:   raw.Thumbnail,
		Duration:    raw.Duration,
		Description: truncate(raw.Description, maxDescriptionRunes),
		Platform:    p,
		Formats:     selectFormats(p, raw),
	}, nil
}

// selectFormats keeps the formats a plain video tag can play, best first.
// When nothing survives but the tool resolved a direct stream, a single
// placeholder is returned so the client still has something to request.
func selectFormats(p entity.Platform, raw *ytdlp.RawInfo) []entity.Format {
	formats := make([]entity.Format, 0, len(raw.Formats))
	for _, f := range raw.Formats {
		if !playable(p, &f) {
			continue
		}

		formats = append(formats, entity.Format{
			ID:         f.FormatID,
			Quality:    f.Quality,
			Label:      formatLabel(&f),
			Resolution: f.Resolution,
			Filesize:   fileSize(&f),
		})
	}

	sort.SliceStable(formats, func(i, j int) bool {
		return formats[i].Quality > formats[j].Quality
	})

	if len(formats) == 0 && raw.URL != "" {
		formats = append(formats, entity.Format{ID: placeholderID, Label: placeholderLabel})
	}

	return formats
}

// playable is stricter for youtube, where separate audio and video streams
// dominate the format list and only merged mp4 entries play everywhere.
func playable(p entity.Platform, f *ytdlp.RawFormat) bool {
	switch p {
	case entity.PlatformYouTube:
		return f.Ext == "mp4" && hasCodec(f.VCodec) && hasCodec(f.ACodec)
	default:
		return f.Ext == "mp4" || f.Ext == "webm"
	}
}

func hasCodec(codec string) bool {
	return codec != "" && codec != "none"
}

func formatLabel(f *ytdlp.RawFormat) string {
	if f.FormatNote != "" {
		return f.FormatNote
	}
	if f.Resolution != "" {
		return f.Resolution
	}

	return f.FormatID
}

func fileSize(f *ytdlp.RawFormat) int64 {
	if f.Filesize > 0 {
		return f.Filesize
	}

	return f.FilesizeApprox
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}

	return string(runes[:max]) + descriptionEllipsis
}
