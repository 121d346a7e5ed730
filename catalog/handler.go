package catalog

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"peptideprofessor/content"
	"peptideprofessor/httputil"
	"peptideprofessor/logging"
)

// contentPosts is how many leading posts carry full markdown content.
const contentPosts = 3

// Handler holds dependencies for the reference data endpoints.
type Handler struct {
	Catalog *Catalog
	Content content.Store
	Now     func() time.Time
}

func (h *Handler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

// HandleStatistics returns site-wide content counts.
func (h *Handler) HandleStatistics(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, h.Catalog.Statistics(h.now()))
}

// HandleListCategories returns every category with its peptides.
func (h *Handler) HandleListCategories(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, h.Catalog.Categories())
}

func (h *Handler) HandleGetCategory(w http.ResponseWriter, r *http.Request) {
	cat, err := h.Catalog.Category(chi.URLParam(r, "category"))
	if err != nil {
		httputil.WriteError(w, http.StatusNotFound, "Category not found")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, cat)
}

func (h *Handler) HandleGetPeptide(w http.ResponseWriter, r *http.Request) {
	p, err := h.Catalog.Peptide(chi.URLParam(r, "slug"))
	if err != nil {
		httputil.WriteError(w, http.StatusNotFound, "Peptide not found")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, p)
}

// HandleListBlog returns all posts, with markdown loaded for the first few.
func (h *Handler) HandleListBlog(w http.ResponseWriter, r *http.Request) {
	posts := h.Catalog.BlogPosts()
	for i := 0; i < len(posts) && i < contentPosts; i++ {
		body, err := h.loadContent(r.Context(), posts[i])
		if err != nil {
			logging.FromContext(r.Context()).Error("load blog content", zap.String("slug", posts[i].Slug), zap.Error(err))
			httputil.WriteError(w, http.StatusInternalServerError, "Failed to fetch blog posts")
			return
		}
		posts[i].Content = body
	}
	httputil.WriteJSON(w, http.StatusOK, posts)
}

func (h *Handler) HandleGetBlogPost(w http.ResponseWriter, r *http.Request) {
	post, err := h.Catalog.BlogPost(chi.URLParam(r, "slug"))
	if err != nil {
		httputil.WriteError(w, http.StatusNotFound, "Blog post not found")
		return
	}
	if post.ID <= contentPosts {
		body, err := h.loadContent(r.Context(), post)
		if err != nil {
			logging.FromContext(r.Context()).Error("load blog content", zap.String("slug", post.Slug), zap.Error(err))
			httputil.WriteError(w, http.StatusInternalServerError, "Failed to fetch blog post")
			return
		}
		post.Content = body
	} else {
		post.Content = "Full content for " + post.Title + " is being prepared..."
	}
	httputil.WriteJSON(w, http.StatusOK, post)
}

// HandleBlogPosts returns post metadata wrapped in {"posts": [...]}.
func (h *Handler) HandleBlogPosts(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"posts": h.Catalog.BlogPosts()})
}

// HandleTeam returns team bios wrapped in {"team": [...]}.
func (h *Handler) HandleTeam(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"team": h.Catalog.Team()})
}

// loadContent falls back to a placeholder when no markdown exists.
func (h *Handler) loadContent(ctx context.Context, post BlogPost) (string, error) {
	if h.Content == nil {
		return "Content for " + post.Title + " is being prepared...", nil
	}
	body, err := h.Content.Get(ctx, post.Slug)
	if errors.Is(err, content.ErrNotFound) {
		return "Content for " + post.Title + " is being prepared...", nil
	}
	return body, err
}
