package constants

import (
	"path/filepath"
	"strings"
)

// Student photo upload rules.
const (
	PhotoMaxWidth    = 800
	PhotoThumbWidth  = 160
	PhotoWebPQuality = 82
	// decoded size cap (width*height), checked from the header before decoding
	PhotoMaxPixels = 24_000_000
)

var allowedPhotoExt = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
	".gif":  true,
}

func IsAllowedPhotoExt(filename string) bool {
	return allowedPhotoExt[strings.ToLower(filepath.Ext(filename))]
}

func AllowedPhotoExtList() []string {
	return []string{".jpg", ".jpeg", ".png", ".webp", ".gif"}
}
