package experience

import (
	"html/template"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/sendrec/videoexp/internal/auth"
	"github.com/sendrec/videoexp/internal/embedurl"
	"github.com/sendrec/videoexp/internal/httputil"
	"github.com/sendrec/videoexp/internal/playlist"
	"github.com/sendrec/videoexp/internal/validate"
)

type watchPageData struct {
	Title          string
	Subtitle       string
	Nonce          string
	ExperienceID   string
	ExperienceName string
	UserName       string
	AccessLevel  auth.AccessLevel
	IsAdmin      bool
	NoAccess     bool
	Videos       []watchPageVideo
	Selected     *watchPageVideo
}

type watchPageVideo struct {
	ID          string
	Title       string
	Duration    string
	EmbedURL    string
	OriginalURL string
	Provider    embedurl.Provider
	Added       string
	Href        string
	Selected    bool
}

var watchPageTemplate = template.Must(template.New("experience-watch").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="utf-8">
    <meta name="viewport" content="width=device-width, initial-scale=1">
    <title>{{.Title}}</title>
    <style nonce="{{.Nonce}}">
        * { margin: 0; padding: 0; box-sizing: border-box; }
        body {
            background: #0f172a;
            color: #e2e8f0;
            font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
            min-height: 100vh;
        }
        header { padding: 2rem 1.5rem 1rem; }
        header h1 { font-size: 1.75rem; }
        header p { color: #94a3b8; margin-top: 0.5rem; }
        .viewer { color: #64748b; font-size: 0.8125rem; margin-bottom: 0.5rem; }
        .badge { display: inline-block; margin-top: 0.75rem; padding: 0.125rem 0.5rem; border-radius: 999px; background: #1e293b; color: #00b67a; font-size: 0.75rem; }
        main { display: grid; grid-template-columns: 2fr 1fr; gap: 1.5rem; padding: 0 1.5rem 2rem; }
        .player { position: relative; padding-top: 56.25%; background: #000; border-radius: 12px; overflow: hidden; }
        .player iframe { position: absolute; inset: 0; width: 100%; height: 100%; border: 0; }
        .player-title { margin-top: 0.75rem; font-size: 1.125rem; }
        .player-source { color: #64748b; font-size: 0.8125rem; }
        .player-source a { color: #94a3b8; }
        ol { list-style: none; }
        li a { display: block; padding: 0.75rem 1rem; border-radius: 8px; color: inherit; text-decoration: none; }
        li a:hover { background: #1e293b; }
        li.selected a { background: #1e293b; border-left: 3px solid #00b67a; }
        .meta { color: #64748b; font-size: 0.8125rem; }
        .empty, .denied { padding: 3rem 1.5rem; text-align: center; color: #94a3b8; }
        @media (max-width: 800px) { main { grid-template-columns: 1fr; } }
    </style>
</head>
<body>
{{if .NoAccess}}
    <div class="denied">
        <h1>Access denied</h1>
        <p>You do not have access to this experience.</p>
    </div>
{{else}}
    <header>
        {{if or .ExperienceName .UserName}}<p class="viewer">{{.ExperienceName}}{{if and .ExperienceName .UserName}} · {{end}}{{with .UserName}}Watching as {{.}}{{end}}</p>{{end}}
        <h1>{{.Title}}</h1>
        {{if .Subtitle}}<p>{{.Subtitle}}</p>{{end}}
        {{if .IsAdmin}}<span class="badge">admin</span>{{end}}
    </header>
    {{if .Videos}}
    <main>
        <section>
            {{with .Selected}}
            <div class="player">
                <iframe src="{{.EmbedURL}}" title="{{.Title}}" allow="accelerometer; autoplay; clipboard-write; encrypted-media; picture-in-picture" allowfullscreen></iframe>
            </div>
            <h2 class="player-title">{{.Title}}</h2>
            <p class="player-source">{{.Duration}} · <a href="{{.OriginalURL}}" target="_blank" rel="noopener">Open on {{.Provider}}</a></p>
            {{else}}
            <p class="empty">Select a video to start watching.</p>
            {{end}}
        </section>
        <aside>
            <ol>
            {{range .Videos}}
                <li{{if .Selected}} class="selected"{{end}}>
                    <a href="{{.Href}}">
                        <div>{{.Title}}</div>
                        <div class="meta">{{.Duration}} · added {{.Added}}</div>
                    </a>
                </li>
            {{end}}
            </ol>
        </aside>
    </main>
    {{else}}
    <p class="empty">No videos yet.</p>
    {{end}}
{{end}}
</body>
</html>`))

// WatchPage renders the playlist for viewers. The video to play is chosen by
// the v query parameter, defaulting to the first video.
func (h *Handler) WatchPage(w http.ResponseWriter, r *http.Request) {
	experienceID := chi.URLParam(r, "experienceId")
	if msg := validate.ExperienceID(experienceID); msg != "" {
		http.NotFound(w, r)
		return
	}
	nonce := httputil.NonceFromContext(r.Context())
	userID := auth.UserIDFromContext(r.Context())

	access, err := h.access.CheckAccess(r.Context(), userID, experienceID)
	if err != nil {
		slog.Error("experience-watch: access check failed", "experience_id", experienceID, "user_id", userID, "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if !access.HasAccess {
		w.WriteHeader(http.StatusForbidden)
		if err := watchPageTemplate.Execute(w, watchPageData{Title: "Access denied", Nonce: nonce, NoAccess: true}); err != nil {
			slog.Error("experience-watch: failed to render access denied page", "error", err)
		}
		return
	}

	p, _ := h.load(r.Context(), experienceID)
	data := buildWatchPageData(p, experienceID, r.URL.Query().Get("v"))
	data.Nonce = nonce
	data.AccessLevel = access.Level
	data.IsAdmin = access.IsAdmin()
	if h.directory != nil {
		names, err := h.directory.LookupNames(r.Context(), userID, experienceID)
		if err != nil {
			slog.Warn("experience-watch: name lookup failed", "experience_id", experienceID, "user_id", userID, "error", err)
		}
		data.UserName = names.User
		data.ExperienceName = names.Experience
	}

	if err := watchPageTemplate.Execute(w, data); err != nil {
		slog.Error("experience-watch: failed to render watch page", "error", err)
	}
}

func buildWatchPageData(p playlist.Playlist, experienceID, selectedID string) watchPageData {
	data := watchPageData{
		Title:        p.Title,
		Subtitle:     p.Subtitle,
		ExperienceID: experienceID,
		Videos:       make([]watchPageVideo, 0, len(p.Videos)),
	}
	if selectedID == "" && len(p.Videos) > 0 {
		selectedID = p.Videos[0].ID
	}

	base := "/experiences/" + url.PathEscape(experienceID)
	for _, v := range p.Videos {
		data.Videos = append(data.Videos, watchPageVideo{
			ID:          v.ID,
			Title:       v.Title,
			Duration:    v.Duration,
			EmbedURL:    v.URL,
			OriginalURL: embedurl.ToOriginalURL(v.URL),
			Provider:    embedurl.ProviderOf(v.URL),
			Added:       v.CreatedAt.Format("Jan 2, 2006"),
			Href:        base + "?v=" + url.QueryEscape(v.ID),
			Selected:    v.ID == selectedID,
		})
	}
	for i := range data.Videos {
		if data.Videos[i].Selected {
			data.Selected = &data.Videos[i]
			break
		}
	}
	return data
}
