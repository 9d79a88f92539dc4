package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/Sternrassler/course-client/pkg/blog"
	"github.com/Sternrassler/course-client/pkg/client"
	"github.com/Sternrassler/course-client/pkg/courses"
	"github.com/Sternrassler/course-client/pkg/metrics"
)

// routes returns the proxy handler.
func (s *server) routes() http.Handler {
	mux := http.NewServeMux()

	handle := func(pattern, route string, h http.HandlerFunc) {
		mux.Handle(pattern, metrics.Instrument(route, h))
	}

	mux.HandleFunc("GET /health", healthHandler)
	mux.HandleFunc("GET /ready", s.readyHandler)
	mux.Handle("GET /metrics", metrics.Handler())

	handle("GET /api/blog/posts", "blog_posts", s.listPosts)
	handle("GET /api/blog/posts/{slug}", "blog_post", s.getPost)
	handle("GET /api/blog/posts/{slug}/related", "blog_related", s.relatedPosts)
	handle("GET /api/blog/posts/{slug}/navigation", "blog_navigation", s.navigation)
	handle("GET /api/blog/categories", "blog_categories", s.blogCategories)
	handle("GET /api/blog/tags", "blog_tags", s.blogTags)
	handle("GET /api/blog/search", "blog_search", s.searchPosts)

	handle("GET /api/courses", "courses", s.listCourses)
	handle("GET /api/courses/categories", "course_categories", s.courseCategories)
	handle("GET /api/courses/{slug}", "course", s.getCourse)
	handle("GET /api/courses/{id}/comments", "course_comments", s.courseComments)

	return mux
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// readyHandler reports whether the cache backend is reachable.
func (s *server) readyHandler(w http.ResponseWriter, r *http.Request) {
	if s.redis != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := s.redis.Ping(ctx).Err(); err != nil {
			s.logger.Warn().Err(err).Msg("Readiness check failed")
			http.Error(w, "redis unavailable", http.StatusServiceUnavailable)
			return
		}
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (s *server) listPosts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	result, err := s.blog.ListPosts(r.Context(), blog.ListOptions{
		Page:     intParam(q.Get("page")),
		PageSize: intParam(q.Get("pageSize")),
		Category: q.Get("category"),
		Tag:      q.Get("tag"),
		Sort:     q.Get("sort"),
	})
	s.respond(w, r, result, err)
}

func (s *server) getPost(w http.ResponseWriter, r *http.Request) {
	post, err := s.blog.GetPost(r.Context(), r.PathValue("slug"))
	s.respond(w, r, post, err)
}

func (s *server) relatedPosts(w http.ResponseWriter, r *http.Request) {
	posts, err := s.blog.RelatedPosts(r.Context(), r.PathValue("slug"), intParam(r.URL.Query().Get("limit")))
	s.respond(w, r, posts, err)
}

func (s *server) navigation(w http.ResponseWriter, r *http.Request) {
	nav, err := s.blog.Navigation(r.Context(), r.PathValue("slug"))
	s.respond(w, r, nav, err)
}

func (s *server) blogCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := s.blog.Categories(r.Context())
	s.respond(w, r, categories, err)
}

func (s *server) blogTags(w http.ResponseWriter, r *http.Request) {
	tags, err := s.blog.Tags(r.Context())
	s.respond(w, r, tags, err)
}

func (s *server) searchPosts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	result, err := s.blog.Search(r.Context(), q.Get("q"), intParam(q.Get("page")), intParam(q.Get("pageSize")))
	s.respond(w, r, result, err)
}

func (s *server) listCourses(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opts := courses.ListOptions{
		Page:     intParam(q.Get("page")),
		PageSize: intParam(q.Get("pageSize")),
		Search:   q.Get("search"),
		Category: q.Get("category"),
		Level:    q.Get("level"),
		Sort:     q.Get("sort"),
	}
	if free, err := strconv.ParseBool(q.Get("free")); err == nil {
		opts.Free = &free
	}

	result, err := s.courses.ListCourses(r.Context(), opts)
	s.respond(w, r, result, err)
}

func (s *server) getCourse(w http.ResponseWriter, r *http.Request) {
	course, err := s.courses.GetCourse(r.Context(), r.PathValue("slug"))
	s.respond(w, r, course, err)
}

func (s *server) courseCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := s.courses.Categories(r.Context())
	s.respond(w, r, categories, err)
}

func (s *server) courseComments(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "course id must be a positive number")
		return
	}

	q := r.URL.Query()
	result, err := s.courses.Comments(r.Context(), id, intParam(q.Get("page")), intParam(q.Get("pageSize")))
	s.respond(w, r, result, err)
}

// respond writes v as JSON, or maps err to a status code.
func (s *server) respond(w http.ResponseWriter, r *http.Request, v any, err error) {
	if err == nil {
		writeJSON(w, http.StatusOK, v)
		return
	}

	status, message := errorStatus(err)
	if client.IsCanceled(err) || errors.Is(err, context.Canceled) {
		s.logger.Debug().Str("path", r.URL.Path).Msg("Client went away")
	} else {
		s.logger.Warn().Err(err).Str("path", r.URL.Path).Int("status_code", status).Msg("Proxy request failed")
	}
	writeError(w, status, message)
}

// errorStatus maps a service error to the proxy response. Backend 4xx
// answers pass through; everything else is a gateway failure.
func errorStatus(err error) (int, string) {
	var apiErr *client.APIError
	switch {
	case errors.As(err, &apiErr) && apiErr.StatusCode < 500:
		return apiErr.StatusCode, apiErr.Message
	case errors.As(err, &apiErr):
		return http.StatusBadGateway, "backend error"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "backend timeout"
	case client.IsCanceled(err):
		return http.StatusServiceUnavailable, "request canceled"
	default:
		return http.StatusBadGateway, "backend unavailable"
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}

func intParam(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
