package entity

// Platform is the content provider a URL belongs to, as recognized by
// hostname matching. Values appear verbatim in API responses.
type Platform string

const (
	PlatformYouTube      Platform = "youtube"
	PlatformTwitter      Platform = "twitter"
	PlatformInstagram    Platform = "instagram"
	PlatformFacebook     Platform = "facebook"
	PlatformUnrecognized Platform = "unrecognized"
)

// MediaInfo is the metadata the extraction tool reports for one URL.
// Built fresh per request, never persisted.
type MediaInfo struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Thumbnail   string   `json:"thumbnail"`
	Duration    float64  `json:"duration"`
	Description string   `json:"description"`
	Formats     []Format `json:"formats"`
	Platform    Platform `json:"platform"`
}

// Format is one selectable rendition of a video.
type Format struct {
	ID         string  `json:"format_id"`
	Quality    float64 `json:"quality"`
	Label      string  `json:"label"`
	Resolution string  `json:"resolution"`
	Filesize   int64   `json:"filesize"`
}

// DownloadedFile is a rendition materialized on local storage. It is owned
// by the request that created it and must not outlive that request's
// response.
type DownloadedFile struct {
	Path     string // location inside the scratch dir
	Filename string // sanitized name offered to the caller
}
