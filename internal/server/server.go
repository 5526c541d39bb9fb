// Package server is the local web UI: the ranked inbox, a reading view with
// the feedback form, and the history of scoring criteria.
package server

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"go.uber.org/zap"

	"github.com/TobiSchelling/reader/internal/database"
	"github.com/TobiSchelling/reader/internal/elo"
	"github.com/TobiSchelling/reader/internal/feedback"
	"github.com/TobiSchelling/reader/internal/llm"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

var md = goldmark.New()

const inboxLimit = 200

// Server is the HTTP server for the reading UI.
type Server struct {
	db        *database.DB
	collector *feedback.Collector
	pages     map[string]*template.Template
	mux       *http.ServeMux
}

// RankedArticle is an article with its display percentile.
type RankedArticle struct {
	database.Article
	Percentile float64
}

// New creates a new Server. judge may be nil, which disables feedback
// characterization.
func New(db *database.DB, judge llm.Judge) (*Server, error) {
	funcMap := template.FuncMap{
		"markdown": renderMarkdown,
		"deref": func(s *string) string {
			if s == nil {
				return ""
			}
			return *s
		},
		"rating": func(r float64) string { return strconv.FormatFloat(r, 'f', 0, 64) },
		"pct":    func(p float64) string { return strconv.FormatFloat(p, 'f', 0, 64) },
		"ts":     func(t time.Time) string { return t.UTC().Format("2006-01-02 15:04") },
		"result": comparisonResult,
		"change": ratingChange,
		"opponent": func(c database.Comparison, id int64) int64 {
			if c.ArticleAID == id {
				return c.ArticleBID
			}
			return c.ArticleAID
		},
	}

	base, err := template.New("base.html").Funcs(funcMap).ParseFS(templateFS, "templates/base.html")
	if err != nil {
		return nil, fmt.Errorf("parsing base template: %w", err)
	}

	// Each page gets its own clone of base so {{define "content"}} does not collide.
	pageNames := []string{"inbox.html", "article.html", "search.html", "generations.html", "generation.html"}
	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		clone, err := base.Clone()
		if err != nil {
			return nil, fmt.Errorf("cloning base for %s: %w", name, err)
		}
		if _, err := clone.ParseFS(templateFS, "templates/"+name); err != nil {
			return nil, fmt.Errorf("parsing template %s: %w", name, err)
		}
		pages[name] = clone
	}

	s := &Server{
		db:        db,
		collector: feedback.NewCollector(db, judge),
		pages:     pages,
		mux:       http.NewServeMux(),
	}
	s.routes()
	return s, nil
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	staticSub, _ := fs.Sub(staticFS, "static")
	s.mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.FS(staticSub))))

	s.mux.HandleFunc("GET /{$}", s.handleInbox)
	s.mux.HandleFunc("GET /inbox", s.handleInbox)
	s.mux.HandleFunc("GET /article/{id}", s.handleArticle)
	s.mux.HandleFunc("POST /article/{id}/feedback", s.handleFeedback)
	s.mux.HandleFunc("GET /search", s.handleSearch)
	s.mux.HandleFunc("GET /generations", s.handleGenerations)
	s.mux.HandleFunc("GET /generations/{id}", s.handleGeneration)
	s.mux.HandleFunc("GET /api/articles", s.handleAPIArticles)
}

// inbox returns articles best first with their percentiles. Unless showAll
// is set, only articles at or above the median are kept.
func (s *Server) inbox(showAll bool) ([]RankedArticle, error) {
	ratings, err := s.db.GetAllRatings()
	if err != nil {
		return nil, err
	}
	articles, err := s.db.GetArticlesByRating(inboxLimit, 0)
	if err != nil {
		return nil, err
	}
	out := make([]RankedArticle, 0, len(articles))
	for _, a := range articles {
		if !showAll && !elo.IsAboveMedian(a.EloRating, ratings) {
			continue
		}
		out = append(out, RankedArticle{Article: a, Percentile: elo.Percentile(a.EloRating, ratings)})
	}
	return out, nil
}

func (s *Server) handleInbox(w http.ResponseWriter, r *http.Request) {
	showAll := r.URL.Query().Get("all") == "1"
	articles, err := s.inbox(showAll)
	if err != nil {
		s.serverError(w, "loading inbox", err)
		return
	}
	s.render(w, "inbox.html", map[string]any{
		"Articles": articles,
		"ShowAll":  showAll,
	})
}

func (s *Server) handleArticle(w http.ResponseWriter, r *http.Request) {
	article, ok := s.article(w, r)
	if !ok {
		return
	}
	comparisons, err := s.db.GetComparisonsForArticle(article.ID)
	if err != nil {
		s.serverError(w, "loading comparisons", err)
		return
	}
	items, err := s.db.GetFeedbackForArticle(article.ID)
	if err != nil {
		s.serverError(w, "loading feedback", err)
		return
	}
	ratings, err := s.db.GetAllRatings()
	if err != nil {
		s.serverError(w, "loading ratings", err)
		return
	}

	s.render(w, "article.html", map[string]any{
		"Article":     article,
		"Percentile":  elo.Percentile(article.EloRating, ratings),
		"Comparisons": comparisons,
		"Feedback":    items,
		"Error":       r.URL.Query().Get("error"),
	})
}

func (s *Server) handleFeedback(w http.ResponseWriter, r *http.Request) {
	article, ok := s.article(w, r)
	if !ok {
		return
	}
	back := fmt.Sprintf("/article/%d", article.ID)
	text := r.FormValue("text")
	if strings.TrimSpace(text) == "" {
		http.Redirect(w, r, back+"?error=empty", http.StatusSeeOther)
		return
	}

	var characterization *database.FiveWhats
	if r.FormValue("characterize") != "" {
		ch, err := s.collector.Characterize(r.Context(), article.ID)
		switch {
		case err == nil:
			characterization = ch
		case errors.Is(err, feedback.ErrNoJudge):
		default:
			// Feedback is kept without the scorecard.
			zap.S().Warnw("Characterization failed", "article", article.ID, "error", err)
		}
	}

	if _, err := s.collector.Record(article.ID, text, characterization); err != nil {
		s.serverError(w, "recording feedback", err)
		return
	}
	http.Redirect(w, r, back, http.StatusSeeOther)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	var results []database.Article
	if q != "" {
		var err error
		if results, err = s.db.SearchArticles(q, inboxLimit); err != nil {
			s.serverError(w, "searching", err)
			return
		}
	}
	s.render(w, "search.html", map[string]any{"Query": q, "Articles": results})
}

func (s *Server) handleGenerations(w http.ResponseWriter, r *http.Request) {
	gens, err := s.db.ListGenerations()
	if err != nil {
		s.serverError(w, "listing generations", err)
		return
	}
	s.render(w, "generations.html", map[string]any{"Generations": gens})
}

func (s *Server) handleGeneration(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	gen, err := s.db.GetGeneration(id)
	if err != nil {
		s.serverError(w, "loading generation", err)
		return
	}
	if gen == nil {
		http.NotFound(w, r)
		return
	}
	items, err := s.db.GetFeedbackForGeneration(id)
	if err != nil {
		s.serverError(w, "loading generation feedback", err)
		return
	}
	s.render(w, "generation.html", map[string]any{"Generation": gen, "Feedback": items})
}

type apiArticle struct {
	ID          int64   `json:"id"`
	Title       string  `json:"title"`
	URL         string  `json:"url"`
	Source      string  `json:"source,omitempty"`
	Rating      float64 `json:"elo_rating"`
	Comparisons int     `json:"elo_comparisons"`
	Confident   bool    `json:"elo_confident"`
	Percentile  float64 `json:"percentile"`
}

func (s *Server) handleAPIArticles(w http.ResponseWriter, r *http.Request) {
	articles, err := s.inbox(r.URL.Query().Get("all") == "1")
	if err != nil {
		s.serverError(w, "loading articles", err)
		return
	}
	out := make([]apiArticle, len(articles))
	for i, a := range articles {
		out[i] = apiArticle{
			ID:          a.ID,
			Title:       a.Title,
			URL:         a.URL,
			Rating:      a.EloRating,
			Comparisons: a.EloComparisons,
			Confident:   a.EloConfident,
			Percentile:  a.Percentile,
		}
		if a.Source != nil {
			out[i].Source = *a.Source
		}
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]any{"articles": out, "total": len(out)}); err != nil {
		zap.S().Errorf("Encoding articles: %v", err)
	}
}

// article loads the article named by the {id} path value, writing a 404
// when it is missing.
func (s *Server) article(w http.ResponseWriter, r *http.Request) (*database.Article, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return nil, false
	}
	a, err := s.db.GetArticleByID(id)
	if err != nil {
		s.serverError(w, "loading article", err)
		return nil, false
	}
	if a == nil {
		http.NotFound(w, r)
		return nil, false
	}
	return a, true
}

func (s *Server) serverError(w http.ResponseWriter, what string, err error) {
	zap.S().Errorf("Error %s: %v", what, err)
	http.Error(w, "Internal server error", http.StatusInternalServerError)
}

func (s *Server) render(w http.ResponseWriter, name string, data any) {
	tmpl, ok := s.pages[name]
	if !ok {
		zap.S().Errorf("Template %s not found", name)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "base.html", data); err != nil {
		s.serverError(w, "rendering "+name, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	buf.WriteTo(w)
}

// comparisonResult describes a ledger entry from the point of view of the
// article with the given id.
func comparisonResult(c database.Comparison, id int64) string {
	switch {
	case c.WinnerID == nil:
		return "tie"
	case *c.WinnerID == id:
		return "won"
	default:
		return "lost"
	}
}

// ratingChange returns the before and after ratings of the article with
// the given id in a ledger entry.
func ratingChange(c database.Comparison, id int64) string {
	before, after := c.ArticleABefore, c.ArticleAAfter
	if c.ArticleBID == id {
		before, after = c.ArticleBBefore, c.ArticleBAfter
	}
	return fmt.Sprintf("%.0f → %.0f", before, after)
}

func renderMarkdown(text string) template.HTML {
	var buf bytes.Buffer
	if err := md.Convert([]byte(text), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(text))
	}
	return template.HTML(buf.String()) //nolint: gosec
}

// Serve listens on 127.0.0.1:port until ctx is cancelled.
func Serve(ctx context.Context, s *Server, port int) error {
	addr := fmt.Sprintf("127.0.0.1:%d", port)
	srv := &http.Server{Addr: addr, Handler: s.Handler(), ReadHeaderTimeout: 10 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		zap.S().Infof("Server listening on http://%s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
