package export

import (
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"
)

// FallbackName is used when the export name is blank.
const FallbackName = "annotations"

const maxNameLen = 200

// invalidFileRunes are characters not allowed in file names on common
// filesystems, plus control characters.
var invalidFileRunes = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1F]`)

var multiSpace = regexp.MustCompile(`\s+`)

// DefaultName derives an export name from a video path: its base name
// without extension.
func DefaultName(source string) string {
	if strings.TrimSpace(source) == "" {
		return ""
	}
	base := filepath.Base(source)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// SanitizeName makes a user-edited export name safe as a file name. Blank
// results fall back to FallbackName.
func SanitizeName(name string) string {
	clean := invalidFileRunes.ReplaceAllString(name, " ")
	clean = strings.TrimSpace(multiSpace.ReplaceAllString(clean, " "))
	clean = strings.TrimRight(clean, ".")
	if clean == "" {
		return FallbackName
	}
	if len(clean) > maxNameLen {
		cut := maxNameLen
		for cut > 0 && !utf8.RuneStart(clean[cut]) {
			cut--
		}
		clean = strings.TrimSpace(clean[:cut])
	}
	return clean
}

// FileName returns the export file name for the given name and format.
func FileName(name string, format Format) string {
	return SanitizeName(name) + format.Ext()
}
