package constants

import "strings"

// FileFormats holds the allowed source formats for a scanned report.
var FileFormats = []string{"PDF", "IMAGE"}

// AllowedExtensions holds the file extensions picked up from an input folder.
var AllowedExtensions = map[string]struct{}{
	"pdf":  {},
	"jpg":  {},
	"jpeg": {},
	"png":  {},
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// FormatForExt maps a normalized extension to its source format.
func FormatForExt(ext string) string {
	if NormalizeExt(ext) == "pdf" {
		return "PDF"
	}
	return "IMAGE"
}
