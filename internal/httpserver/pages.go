package httpserver

import (
	"bytes"
	"net/http"

	"github.com/rs/zerolog/hlog"

	"github.com/robalobadob/guessmaster/assets"
	"github.com/robalobadob/guessmaster/internal/game"
)

// ------------------------------ PAGES --------------------------------------

type tierView struct {
	Name        string
	Range       game.Range
	MaxAttempts int
}

type pageData struct {
	Title      string
	Tiers      []tierView
	CustomMin  int
	CustomMax  int
	MultiRange game.Range
}

func (s *Server) mountPages() {
	s.r.Get("/", s.page("index.html", "GuessMaster"))
	s.r.Get("/singleplayer", s.page("singleplayer.html", "Single Player"))
	s.r.Get("/multiplayer", s.page("multiplayer.html", "Two Players"))
	s.r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(assets.Static()))))
}

func (s *Server) pageData(title string) pageData {
	tiers := s.games.Tiers()
	views := make([]tierView, 0, len(tiers))
	for _, name := range tiers.Names() {
		t := tiers[name]
		views = append(views, tierView{Name: t.Name, Range: t.Range, MaxAttempts: t.MaxAttempts})
	}
	return pageData{
		Title:      title,
		Tiers:      views,
		CustomMin:  game.CustomMin,
		CustomMax:  game.CustomMax,
		MultiRange: s.games.MultiRange(),
	}
}

// page renders a template into a buffer first so a failed render never
// sends half a page.
func (s *Server) page(name, title string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var buf bytes.Buffer
		if err := s.pages.ExecuteTemplate(&buf, name, s.pageData(title)); err != nil {
			hlog.FromRequest(r).Error().Err(err).Str("template", name).Msg("render page")
			http.Error(w, "An unexpected error occurred", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = buf.WriteTo(w)
	}
}
