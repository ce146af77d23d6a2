// Package playlist holds the per-experience document: a title, a subtitle and
// an ordered list of videos.
package playlist

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sendrec/videoexp/internal/validate"
)

// ErrInvalid marks a document that failed shape validation.
var ErrInvalid = errors.New("invalid playlist document")

type Video struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	URL       string    `json:"url"`
	Duration  string    `json:"duration"`
	CreatedAt time.Time `json:"createdAt"`
}

type Playlist struct {
	Title    string  `json:"title"`
	Subtitle string  `json:"subtitle"`
	Videos   []Video `json:"videos"`
}

const (
	DefaultTitle    = "Welcome to Your Video Experience"
	DefaultSubtitle = "Share, react, and engage with videos like never before"

	NewVideoTitle    = "New Video"
	NewVideoDuration = "0:00"
)

// Default returns the seed playlist shown before an admin saves anything.
func Default() Playlist {
	return Playlist{
		Title:    DefaultTitle,
		Subtitle: DefaultSubtitle,
		Videos: []Video{
			{
				ID:        "1",
				Title:     "Introduction to Whop",
				URL:       "https://www.youtube.com/embed/dQw4w9WgXcQ",
				Duration:  "3:32",
				CreatedAt: time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
			},
			{
				ID:        "2",
				Title:     "Getting Started with Next.js",
				URL:       "https://www.youtube.com/embed/DGQwd1_Apzc",
				Duration:  "10:45",
				CreatedAt: time.Date(2024, 2, 20, 0, 0, 0, 0, time.UTC),
			},
			{
				ID:        "3",
				Title:     "Tailwind CSS Basics",
				URL:       "https://www.youtube.com/embed/pfaSUYaSgRo",
				Duration:  "7:18",
				CreatedAt: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
			},
		},
	}
}

// Clone returns a copy that shares no backing array with p.
func (p Playlist) Clone() Playlist {
	out := p
	out.Videos = make([]Video, len(p.Videos))
	copy(out.Videos, p.Videos)
	return out
}

// Index returns the position of the video with the given id, or -1.
func (p Playlist) Index(id string) int {
	for i, v := range p.Videos {
		if v.ID == id {
			return i
		}
	}
	return -1
}

func (p Playlist) Find(id string) (Video, bool) {
	if i := p.Index(id); i >= 0 {
		return p.Videos[i], true
	}
	return Video{}, false
}

// Validate checks the invariants of an already-typed playlist.
func (p Playlist) Validate() error {
	if msg := firstNonEmpty(validate.Title(p.Title), validate.Subtitle(p.Subtitle), validate.VideoCount(len(p.Videos))); msg != "" {
		return fmt.Errorf("%w: %s", ErrInvalid, msg)
	}
	seen := make(map[string]struct{}, len(p.Videos))
	for i, v := range p.Videos {
		if v.ID == "" {
			return fmt.Errorf("%w: video %d has an empty id", ErrInvalid, i)
		}
		if _, dup := seen[v.ID]; dup {
			return fmt.Errorf("%w: duplicate video id %q", ErrInvalid, v.ID)
		}
		seen[v.ID] = struct{}{}
		if msg := firstNonEmpty(validate.VideoTitle(v.Title), validate.VideoURL(v.URL), validate.Duration(v.Duration)); msg != "" {
			return fmt.Errorf("%w: video %q: %s", ErrInvalid, v.ID, msg)
		}
	}
	return nil
}

// wireVideo mirrors Video with every field optional so that missing keys can
// be told apart from empty strings.
type wireVideo struct {
	ID        *string `json:"id"`
	Title     *string `json:"title"`
	URL       *string `json:"url"`
	Duration  *string `json:"duration"`
	CreatedAt *string `json:"createdAt"`
}

type wirePlaylist struct {
	Title    *string      `json:"title"`
	Subtitle *string      `json:"subtitle"`
	Videos   *[]wireVideo `json:"videos"`
}

// Decode parses a stored or submitted document. Any field of the wrong type,
// missing key or broken invariant rejects the whole document.
func Decode(data []byte) (Playlist, error) {
	var w wirePlaylist
	if err := json.Unmarshal(data, &w); err != nil {
		return Playlist{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if w.Title == nil || w.Subtitle == nil || w.Videos == nil {
		return Playlist{}, fmt.Errorf("%w: title, subtitle and videos are required", ErrInvalid)
	}

	p := Playlist{
		Title:    *w.Title,
		Subtitle: *w.Subtitle,
		Videos:   make([]Video, 0, len(*w.Videos)),
	}
	for i, wv := range *w.Videos {
		if wv.ID == nil || wv.Title == nil || wv.URL == nil || wv.Duration == nil || wv.CreatedAt == nil {
			return Playlist{}, fmt.Errorf("%w: video %d is missing a field", ErrInvalid, i)
		}
		createdAt, err := time.Parse(time.RFC3339Nano, *wv.CreatedAt)
		if err != nil {
			return Playlist{}, fmt.Errorf("%w: video %d createdAt: %v", ErrInvalid, i, err)
		}
		p.Videos = append(p.Videos, Video{
			ID:        *wv.ID,
			Title:     *wv.Title,
			URL:       *wv.URL,
			Duration:  *wv.Duration,
			CreatedAt: createdAt,
		})
	}

	if err := p.Validate(); err != nil {
		return Playlist{}, err
	}
	return p, nil
}

// Encode renders the document in the indented form kept in storage.
func Encode(p Playlist) ([]byte, error) {
	if p.Videos == nil {
		p.Videos = []Video{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(p); err != nil {
		return nil, fmt.Errorf("encode playlist: %w", err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func firstNonEmpty(msgs ...string) string {
	for _, m := range msgs {
		if m != "" {
			return m
		}
	}
	return ""
}
