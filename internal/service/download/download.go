package download

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/jgivc/vidrelay/internal/adapter/ytdlp"
	"github.com/jgivc/vidrelay/internal/common"
	"github.com/jgivc/vidrelay/internal/entity"
	"github.com/jgivc/vidrelay/internal/platform"
	"github.com/jgivc/vidrelay/internal/util"
)

const (
	serviceName = "download"

	defaultFormat = "best[ext=mp4]/best"
	fileExt       = ".mp4"
)

type ExtractorGateway interface {
	Metadata(ctx context.Context, rawURL string) (*ytdlp.RawInfo, error)
	Download(ctx context.Context, rawURL, format, outPath string) error
}

type ScratchStore interface {
	NewPath() string
	Remove(path string) error
}

type downloadService struct {
	gw    ExtractorGateway
	store ScratchStore
	log   *slog.Logger
}

func NewDownloadService(gw ExtractorGateway, store ScratchStore, log *slog.Logger) *downloadService {
	return &downloadService{
		gw:    gw,
		store: store,
		log:   log.With(slog.String("service", serviceName)),
	}
}

// Download spools the requested video into the scratch dir and reports
// where it landed together with the client-facing filename. The caller owns
// the file from here and removes it once it has been sent.
func (s *downloadService) Download(ctx context.Context, rawURL, format string) (*entity.DownloadedFile, error) {
	if rawURL == "" {
		return nil, common.ErrMissingURL
	}

	if platform.Detect(rawURL) == entity.PlatformUnrecognized {
		return nil, common.ErrUnsupportedPlatform
	}

	if format == "" {
		format = defaultFormat
	}

	// The metadata pass supplies the title for the attachment name and
	// rejects dead videos before anything is written to disk.
	raw, err := s.gw.Metadata(ctx, rawURL)
	if err != nil {
		s.log.Error("Cannot fetch metadata", slog.String("url", rawURL), slog.Any("error", err))

		return nil, fmt.Errorf("cannot fetch metadata: %w", err)
	}

	path := s.store.NewPath()

	s.log.Info("Download", slog.String("url", rawURL),
		slog.String("format", format), slog.String("path", path))

	if err := s.gw.Download(ctx, rawURL, format, path); err != nil {
		s.log.Error("Cannot download", slog.String("url", rawURL), slog.Any("error", err))

		if rmErr := s.store.Remove(path); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			s.log.Warn("Cannot remove partial file", slog.String("path", path), slog.Any("error", rmErr))
		}

		return nil, fmt.Errorf("cannot download: %w", err)
	}

	return &entity.DownloadedFile{
		Path:     path,
		Filename: util.SanitizeTitle(raw.Title) + fileExt,
	}, nil
}
