package info

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jgivc/vidrelay/internal/adapter/ytdlp"
	"github.com/jgivc/vidrelay/internal/common"
	"github.com/jgivc/vidrelay/internal/entity"
)

type fakeGateway struct {
	info *ytdlp.RawInfo
	err  error

	gotURL string
}

func (f *fakeGateway) Metadata(_ context.Context, rawURL string) (*ytdlp.RawInfo, error) {
	f.gotURL = rawURL

	if f.err != nil {
		return nil, f.err
	}

	return f.info, nil
}

func testService(gw ExtractorGateway) *infoService {
	return NewInfoService(gw, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestInfoValidation(t *testing.T) {
	gw := &fakeGateway{}
	srv := testService(gw)

	_, err := srv.Info(context.Background(), "")
	require.ErrorIs(t, err, common.ErrMissingURL)

	_, err = srv.Info(context.Background(), "https://example.com/watch?v=abc")
	require.ErrorIs(t, err, common.ErrUnsupportedPlatform)

	// The tool is never invoked for rejected requests.
	require.Empty(t, gw.gotURL)
}

func TestInfoYouTube(t *testing.T) {
	gw := &fakeGateway{info: &ytdlp.RawInfo{
		ID:          "abc123",
		Title:       "Test video",
		Thumbnail:   "https://i.example.com/abc123.jpg",
		Duration:    212,
		Description: "short",
		Formats: []ytdlp.RawFormat{
			{FormatID: "sd", Ext: "mp4", VCodec: "avc1", ACodec: "mp4a", Quality: 2, Resolution: "640x360", Filesize: 100},
			{FormatID: "hd", Ext: "mp4", VCodec: "avc1", ACodec: "mp4a", Quality: 3, Resolution: "1280x720", FilesizeApprox: 900, FormatNote: "720p"},
			{FormatID: "audio", Ext: "m4a", VCodec: "none", ACodec: "mp4a", Quality: 5},
			{FormatID: "video-only", Ext: "mp4", VCodec: "avc1", ACodec: "none", Quality: 4},
			{FormatID: "webm", Ext: "webm", VCodec: "vp9", ACodec: "opus", Quality: 4},
		},
	}}

	info, err := testService(gw).Info(context.Background(), "https://www.youtube.com/watch?v=abc123")
	require.NoError(t, err)
	require.Equal(t, "https://www.youtube.com/watch?v=abc123", gw.gotURL)
	require.Equal(t, "abc123", info.ID)
	require.Equal(t, entity.PlatformYouTube, info.Platform)

	// Only merged mp4 entries survive, best quality first.
	require.Len(t, info.Formats, 2)
	require.Equal(t, "hd", info.Formats[0].ID)
	require.Equal(t, "720p", info.Formats[0].Label)
	require.Equal(t, int64(900), info.Formats[0].Filesize)
	require.Equal(t, "sd", info.Formats[1].ID)
	require.Equal(t, "640x360", info.Formats[1].Label)
}

func TestInfoOtherPlatformKeepsWebm(t *testing.T) {
	gw := &fakeGateway{info: &ytdlp.RawInfo{
		ID: "tw1",
		Formats: []ytdlp.RawFormat{
			{FormatID: "w", Ext: "webm", Quality: 1},
			{FormatID: "gif", Ext: "gif", Quality: 2},
		},
	}}

	info, err := testService(gw).Info(context.Background(), "https://x.com/user/status/1")
	require.NoError(t, err)
	require.Equal(t, entity.PlatformTwitter, info.Platform)
	require.Len(t, info.Formats, 1)
	require.Equal(t, "w", info.Formats[0].ID)
}

func TestInfoPlaceholderFormat(t *testing.T) {
	gw := &fakeGateway{info: &ytdlp.RawInfo{
		ID:  "ig1",
		URL: "https://cdn.example.com/ig1.mp4",
		Formats: []ytdlp.RawFormat{
			{FormatID: "raw", Ext: "m3u8", Quality: 1},
		},
	}}

	info, err := testService(gw).Info(context.Background(), "https://instagram.com/p/ig1")
	require.NoError(t, err)
	require.Len(t, info.Formats, 1)
	require.Equal(t, "best", info.Formats[0].ID)
	require.Equal(t, "Best available", info.Formats[0].Label)
}

func TestInfoNoFormatsNoURL(t *testing.T) {
	gw := &fakeGateway{info: &ytdlp.RawInfo{ID: "fb1"}}

	info, err := testService(gw).Info(context.Background(), "https://fb.watch/fb1")
	require.NoError(t, err)
	require.Empty(t, info.Formats)
}

func TestInfoTruncatesDescription(t *testing.T) {
	gw := &fakeGateway{info: &ytdlp.RawInfo{
		ID:          "abc123",
		Description: strings.Repeat("я", 300),
	}}

	info, err := testService(gw).Info(context.Background(), "https://youtu.be/abc123")
	require.NoError(t, err)
	require.Equal(t, strings.Repeat("я", 200)+"...", info.Description)
}

func TestInfoUnavailable(t *testing.T) {
	gw := &fakeGateway{err: common.ErrVideoUnavailable}

	_, err := testService(gw).Info(context.Background(), "https://youtu.be/abc123")
	require.ErrorIs(t, err, common.ErrVideoUnavailable)
}

func TestSelectFormatsIdempotent(t *testing.T) {
	// Already filtered, already sorted input passes through unchanged.
	raw := &ytdlp.RawInfo{Formats: []ytdlp.RawFormat{
		{FormatID: "a", Ext: "mp4", VCodec: "avc1", ACodec: "mp4a", Quality: 5},
		{FormatID: "b", Ext: "mp4", VCodec: "avc1", ACodec: "mp4a", Quality: 3},
		{FormatID: "c", Ext: "mp4", VCodec: "avc1", ACodec: "mp4a", Quality: 1},
	}}

	first := selectFormats(entity.PlatformYouTube, raw)
	second := selectFormats(entity.PlatformYouTube, raw)

	require.Equal(t, first, second)
	require.Equal(t, "a", first[0].ID)
	require.Equal(t, "b", first[1].ID)
	require.Equal(t, "c", first[2].ID)
}
