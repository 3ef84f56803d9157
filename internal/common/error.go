package common

import "fmt"

var (
	ErrMissingURL          = fmt.Errorf("url is required")
	ErrUnsupportedPlatform = fmt.Errorf("unsupported platform")
	ErrVideoUnavailable    = fmt.Errorf("video unavailable")
)
