// Package embedurl converts YouTube and Loom share links into the iframe
// embeddable form and back.
package embedurl

import (
	"errors"
	"strings"
)

// ErrInvalidURL is returned by callers when a link matches neither provider.
// The message is shown to the admin as-is.
var ErrInvalidURL = errors.New("enter a valid YouTube or Loom URL")

type Provider string

const (
	YouTube Provider = "youtube"
	Loom    Provider = "loom"
	Unknown Provider = "unknown"
)

const (
	youtubeWatchMarker = "youtube.com/watch"
	youtubeShortMarker = "youtu.be/"
	loomShareMarker    = "loom.com/share/"

	youtubeEmbedMarker = "youtube.com/embed/"
	loomEmbedMarker    = "loom.com/embed/"

	youtubeEmbedPrefix = "https://www.youtube.com/embed/"
	loomEmbedPrefix    = "https://www.loom.com/embed/"
	youtubeWatchPrefix = "https://www.youtube.com/watch?v="
	loomSharePrefix    = "https://www.loom.com/share/"
)

// ToEmbedURL maps a YouTube watch/short link or a Loom share link to its
// embeddable URL. The second result is false when the link is not recognised
// or carries no video id.
func ToEmbedURL(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)

	switch {
	case strings.Contains(raw, youtubeWatchMarker):
		_, query, ok := strings.Cut(raw, "v=")
		if !ok {
			return "", false
		}
		if id := truncateID(query); id != "" {
			return youtubeEmbedPrefix + id, true
		}
		return "", false
	case strings.Contains(raw, youtubeShortMarker):
		_, rest, _ := strings.Cut(raw, youtubeShortMarker)
		if id := truncateID(rest); id != "" {
			return youtubeEmbedPrefix + id, true
		}
		return "", false
	case strings.Contains(raw, loomShareMarker):
		_, rest, _ := strings.Cut(raw, loomShareMarker)
		if id := truncateID(rest); id != "" {
			return loomEmbedPrefix + id, true
		}
		return "", false
	}

	return "", false
}

// ToOriginalURL maps an embed URL back to the provider's watch or share page.
// Anything that is not an embed URL is returned unchanged.
func ToOriginalURL(embed string) string {
	if id := idAfter(embed, youtubeEmbedMarker); id != "" {
		return youtubeWatchPrefix + id
	}
	if id := idAfter(embed, loomEmbedMarker); id != "" {
		return loomSharePrefix + id
	}
	return embed
}

// ProviderOf reports which provider an embed or share URL belongs to.
func ProviderOf(u string) Provider {
	switch {
	case strings.Contains(u, "youtube.com/"), strings.Contains(u, youtubeShortMarker):
		return YouTube
	case strings.Contains(u, "loom.com/"):
		return Loom
	default:
		return Unknown
	}
}

// VideoID returns the id component of an embed URL, or "" when u is not one.
func VideoID(embed string) string {
	if id := idAfter(embed, youtubeEmbedMarker); id != "" {
		return id
	}
	return idAfter(embed, loomEmbedMarker)
}

func idAfter(u, marker string) string {
	_, rest, ok := strings.Cut(u, marker)
	if !ok {
		return ""
	}
	return truncateID(rest)
}

// truncateID cuts s at the first query, fragment or path separator.
func truncateID(s string) string {
	if i := strings.IndexAny(s, "&?#/"); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}
