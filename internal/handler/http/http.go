package httphandler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/jgivc/vidrelay/internal/common"
	"github.com/jgivc/vidrelay/internal/entity"
)

const (
	contentTypeJSON  = "application/json"
	contentTypeVideo = "video/mp4"

	readChunkSize = 32 * 1024
)

type InfoService interface {
	Info(ctx context.Context, rawURL string) (*entity.MediaInfo, error)
}

type DownloadService interface {
	Download(ctx context.Context, rawURL, format string) (*entity.DownloadedFile, error)
}

type FileStore interface {
	Open(path string) (io.ReadCloser, error)
	Remove(path string) error
}

type errorResponse struct {
	Error      string `json:"error"`
	Details    string `json:"details,omitempty"`
	RetryAfter int    `json:"retry_after_seconds,omitempty"`
}

func NewInfoHandler(srv InfoService, log *slog.Logger) http.HandlerFunc {
	log = log.With(slog.String("handler", "InfoHandler"))

	return func(w http.ResponseWriter, r *http.Request) {
		rawURL := r.URL.Query().Get("url")

		info, err := srv.Info(r.Context(), rawURL)
		if err != nil {
			log.Info("Reject info request", slog.String("url", rawURL), slog.Any("error", err))
			writeServiceError(w, err, "Failed to fetch video info")

			return
		}

		writeJSON(w, http.StatusOK, info)
	}
}

func NewDownloadHandler(srv DownloadService, store FileStore, log *slog.Logger) http.HandlerFunc {
	log = log.With(slog.String("handler", "DownloadHandler"))

	return func(w http.ResponseWriter, r *http.Request) {
		rawURL := r.URL.Query().Get("url")
		format := r.URL.Query().Get("format")

		file, err := srv.Download(r.Context(), rawURL, format)
		if err != nil {
			log.Info("Reject download request", slog.String("url", rawURL), slog.Any("error", err))
			writeServiceError(w, err, "Download failed")

			return
		}

		// The spooled file is removed no matter how the transfer ends.
		defer func() {
			if err := store.Remove(file.Path); err != nil {
				log.Warn("Cannot remove sent file", slog.String("path", file.Path), slog.Any("error", err))
			}
		}()

		f, err := store.Open(file.Path)
		if err != nil {
			log.Error("Cannot open spooled file", slog.String("path", file.Path), slog.Any("error", err))
			writeJSON(w, http.StatusInternalServerError,
				errorResponse{Error: "Download failed", Details: err.Error()})

			return
		}
		defer f.Close()

		// Nothing goes on the wire until the first chunk has been read.
		// A file that cannot be read at all still gets a json failure report.
		buf := make([]byte, readChunkSize)
		n, readErr := f.Read(buf)
		if readErr != nil && !errors.Is(readErr, io.EOF) {
			log.Error("Cannot read spooled file", slog.String("path", file.Path), slog.Any("error", readErr))
			writeJSON(w, http.StatusInternalServerError,
				errorResponse{Error: "Download failed", Details: readErr.Error()})

			return
		}

		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Filename))
		w.Header().Set("Content-Type", contentTypeVideo)

		if n > 0 {
			if _, err := w.Write(buf[:n]); err != nil {
				log.Warn("Stream interrupted", slog.String("path", file.Path), slog.Any("error", err))

				return
			}
		}

		if errors.Is(readErr, io.EOF) {
			return
		}

		if _, err := io.Copy(w, f); err != nil {
			// The status line is already on the wire, only the log sees this.
			log.Warn("Stream interrupted", slog.String("path", file.Path), slog.Any("error", err))
		}
	}
}

func NewHealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// writeServiceError maps domain errors onto the api error contract. Unknown
// errors become a 500 carrying the cause in details.
func writeServiceError(w http.ResponseWriter, err error, failMsg string) {
	switch {
	case errors.Is(err, common.ErrMissingURL):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "URL is required"})
	case errors.Is(err, common.ErrUnsupportedPlatform):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Unsupported platform"})
	case errors.Is(err, common.ErrVideoUnavailable):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Video is unavailable or private"})
	default:
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: failMsg, Details: err.Error()})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)

	_ = json.NewEncoder(w).Encode(v)
}
