package asset

import (
	"strings"

	exif "github.com/dsoprea/go-exif/v3"
)

// descriptionTags are read in order; the first non-empty value wins.
var descriptionTags = []string{"ImageDescription", "XPTitle", "Artist"}

// exifDescription returns a human readable description stored in the
// image's EXIF block, or "" when there is none.
func exifDescription(data []byte) string {
	rawExif, err := exif.SearchAndExtractExif(data)
	if err != nil || rawExif == nil {
		return ""
	}

	entries, _, err := exif.GetFlatExifData(rawExif, nil)
	if err != nil {
		return ""
	}

	values := make(map[string]string, len(entries))
	for _, entry := range entries {
		if _, ok := values[entry.TagName]; ok {
			continue
		}
		values[entry.TagName] = strings.TrimSpace(strings.Trim(entry.Formatted, "\x00"))
	}

	for _, tag := range descriptionTags {
		if v := values[tag]; v != "" {
			return v
		}
	}
	return ""
}
