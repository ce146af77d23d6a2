package validate

import (
	"fmt"
	"unicode/utf8"
)

// Text field length limits shared by the HTTP surface and the editor.
const (
	MaxTitleLength      = 200
	MaxSubtitleLength   = 500
	MaxVideoTitleLength = 500
	MaxVideoURLLength   = 2048
	MaxDurationLength   = 16
	MaxExperienceIDLen  = 128
	MaxVideos           = 500
)

func checkLen(value string, max int, field string) string {
	if utf8.RuneCountInString(value) > max {
		return fmt.Sprintf("%s must be %d characters or fewer", field, max)
	}
	return ""
}

func Title(s string) string      { return checkLen(s, MaxTitleLength, "title") }
func Subtitle(s string) string   { return checkLen(s, MaxSubtitleLength, "subtitle") }
func VideoTitle(s string) string { return checkLen(s, MaxVideoTitleLength, "video title") }
func VideoURL(s string) string   { return checkLen(s, MaxVideoURLLength, "video URL") }
func Duration(s string) string   { return checkLen(s, MaxDurationLength, "duration") }

// ExperienceID rejects ids that cannot be used safely as a storage key.
func ExperienceID(s string) string {
	if msg := checkLen(s, MaxExperienceIDLen, "experience ID"); msg != "" {
		return msg
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
		default:
			return "experience ID may only contain letters, digits, '_' and '-'"
		}
	}
	return ""
}

func VideoCount(n int) string {
	if n > MaxVideos {
		return fmt.Sprintf("playlist must contain %d videos or fewer", MaxVideos)
	}
	return ""
}

// FieldLimits returns a map of field names to max lengths for clients.
func FieldLimits() map[string]int {
	return map[string]int{
		"title":      MaxTitleLength,
		"subtitle":   MaxSubtitleLength,
		"videoTitle": MaxVideoTitleLength,
		"videoURL":   MaxVideoURLLength,
		"duration":   MaxDurationLength,
		"videos":     MaxVideos,
	}
}
