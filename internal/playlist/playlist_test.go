package playlist

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	p := Default()
	if p.Title != "Welcome to Your Video Experience" {
		t.Errorf("expected default title, got %q", p.Title)
	}
	if len(p.Videos) != 3 {
		t.Fatalf("expected 3 seed videos, got %d", len(p.Videos))
	}
	if err := p.Validate(); err != nil {
		t.Errorf("default playlist should be valid: %v", err)
	}
}

func TestDefaultReturnsFreshCopy(t *testing.T) {
	a := Default()
	a.Videos[0].Title = "changed"
	if Default().Videos[0].Title == "changed" {
		t.Error("mutating one default playlist leaked into the next")
	}
}

func TestEncodeDecodeKeepsContent(t *testing.T) {
	p := Default()
	data, err := Encode(p)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !strings.Contains(string(data), "\n  \"title\"") {
		t.Errorf("expected indented JSON, got %s", data)
	}

	got, err := Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Title != p.Title || got.Subtitle != p.Subtitle {
		t.Errorf("expected title/subtitle to survive, got %q/%q", got.Title, got.Subtitle)
	}
	if len(got.Videos) != len(p.Videos) {
		t.Fatalf("expected %d videos, got %d", len(p.Videos), len(got.Videos))
	}
	if !got.Videos[1].CreatedAt.Equal(p.Videos[1].CreatedAt) {
		t.Errorf("expected createdAt %v, got %v", p.Videos[1].CreatedAt, got.Videos[1].CreatedAt)
	}
}

func TestEncodeEmptyVideosIsArray(t *testing.T) {
	data, err := Encode(Playlist{Title: "t", Subtitle: "s"})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !strings.Contains(string(data), `"videos": []`) {
		t.Errorf("expected empty array, got %s", data)
	}
}

func TestDecodeAcceptsOriginalTimestampFormat(t *testing.T) {
	doc := `{"title":"t","subtitle":"s","videos":[{"id":"1","title":"a","url":"https://www.youtube.com/embed/x","duration":"1:00","createdAt":"2024-01-15T00:00:00.000Z"}]}`
	p, err := Decode([]byte(doc))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	if !p.Videos[0].CreatedAt.Equal(want) {
		t.Errorf("expected %v, got %v", want, p.Videos[0].CreatedAt)
	}
}

func TestDecodeRejectsInvalidShapes(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"not json", `not json`},
		{"array", `[]`},
		{"missing title", `{"subtitle":"s","videos":[]}`},
		{"missing videos", `{"title":"t","subtitle":"s"}`},
		{"null videos", `{"title":"t","subtitle":"s","videos":null}`},
		{"numeric title", `{"title":1,"subtitle":"s","videos":[]}`},
		{"video missing url", `{"title":"t","subtitle":"s","videos":[{"id":"1","title":"a","duration":"1:00","createdAt":"2024-01-15T00:00:00Z"}]}`},
		{"video numeric duration", `{"title":"t","subtitle":"s","videos":[{"id":"1","title":"a","url":"u","duration":60,"createdAt":"2024-01-15T00:00:00Z"}]}`},
		{"bad timestamp", `{"title":"t","subtitle":"s","videos":[{"id":"1","title":"a","url":"u","duration":"1:00","createdAt":"yesterday"}]}`},
		{"empty id", `{"title":"t","subtitle":"s","videos":[{"id":"","title":"a","url":"u","duration":"1:00","createdAt":"2024-01-15T00:00:00Z"}]}`},
		{"duplicate ids", `{"title":"t","subtitle":"s","videos":[
			{"id":"1","title":"a","url":"u","duration":"1:00","createdAt":"2024-01-15T00:00:00Z"},
			{"id":"1","title":"b","url":"u","duration":"1:00","createdAt":"2024-01-15T00:00:00Z"}]}`},
		{"title too long", `{"title":"` + strings.Repeat("x", 201) + `","subtitle":"s","videos":[]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.doc))
			if !errors.Is(err, ErrInvalid) {
				t.Errorf("expected ErrInvalid, got %v", err)
			}
		})
	}
}

func TestCloneIsIndependent(t *testing.T) {
	p := Default()
	c := p.Clone()
	c.Videos[0].Title = "changed"
	c.Videos = append(c.Videos, Video{ID: "4"})

	if p.Videos[0].Title == "changed" {
		t.Error("clone shares video storage with original")
	}
	if len(p.Videos) != 3 {
		t.Errorf("expected original to keep 3 videos, got %d", len(p.Videos))
	}
}

func TestFind(t *testing.T) {
	p := Default()
	v, ok := p.Find("2")
	if !ok || v.Title != "Getting Started with Next.js" {
		t.Errorf("expected to find video 2, got %+v (ok=%v)", v, ok)
	}
	if _, ok := p.Find("missing"); ok {
		t.Error("expected missing id not to be found")
	}
	if p.Index("missing") != -1 {
		t.Error("expected index -1 for missing id")
	}
}
