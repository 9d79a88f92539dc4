// Package courses reads the public course catalog and course comments.
package courses

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/Sternrassler/course-client/pkg/cache"
	"github.com/Sternrassler/course-client/pkg/envelope"
	"github.com/Sternrassler/course-client/pkg/logging"
	"github.com/Sternrassler/course-client/pkg/pagination"
	"github.com/Sternrassler/course-client/pkg/resource"
	"github.com/rs/zerolog"
)

// Endpoints of the course API.
const (
	CoursesPath    = "/api/courses"
	CategoriesPath = "/api/courses/categories"
)

// MaxCommentLength bounds a comment in characters.
const MaxCommentLength = 2000

// ErrInvalidComment is returned for comments rejected before any request.
var ErrInvalidComment = errors.New("invalid comment")

// API is the subset of the HTTP client used by the service.
type API interface {
	resource.Getter
	Post(ctx context.Context, path string, body any) ([]byte, error)
}

// Service is the course catalog client.
type Service struct {
	api      API
	catalog  *resource.Reader
	comments *resource.Reader
	logger   zerolog.Logger
}

// NewService creates a course service caching through c. Comments are
// cached in their own namespace so a new comment does not retire the
// catalog.
func NewService(api API, c *cache.Cache, config resource.Config) (*Service, error) {
	if config.Namespace == "" {
		config.Namespace = "courses"
	}

	catalog, err := resource.NewReader(api, c, config)
	if err != nil {
		return nil, fmt.Errorf("courses: %w", err)
	}

	commentConfig := config
	commentConfig.Namespace = config.Namespace + "-comments"
	comments, err := resource.NewReader(api, c, commentConfig)
	if err != nil {
		return nil, fmt.Errorf("courses: %w", err)
	}

	return &Service{
		api:      api,
		catalog:  catalog,
		comments: comments,
		logger:   logging.NewLogger(logging.ComponentCourses),
	}, nil
}

// ListCourses returns one page of the catalog. A non-blank search uses the
// search TTL.
func (s *Service) ListCourses(ctx context.Context, opts ListOptions) (pagination.PagedResult[Course], error) {
	page := pagination.ClampPage(opts.Page)
	pageSize := pagination.ClampPageSize(opts.PageSize)

	params := pagination.Params{
		"category": opts.Category,
		"level":    opts.Level,
		"sort":     opts.Sort,
	}
	if opts.Free != nil {
		params["free"] = *opts.Free
	}

	kind := cache.KindList
	if strings.TrimSpace(opts.Search) != "" {
		kind = cache.KindSearch
	}

	query := pagination.BuildQuery(page, pageSize, opts.Search, params)
	return resource.ReadPage[Course](ctx, s.catalog, kind, CoursesPath, query, page, pageSize)
}

// GetCourse returns a course by slug.
func (s *Service) GetCourse(ctx context.Context, slug string) (*Course, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" || strings.Contains(slug, "/") {
		return nil, fmt.Errorf("invalid course slug %q", slug)
	}

	course, err := resource.ReadJSON[Course](ctx, s.catalog, cache.KindDetail, CoursesPath+"/"+url.PathEscape(slug), nil)
	if err != nil {
		return nil, err
	}
	return &course, nil
}

// Categories returns every course category.
func (s *Service) Categories(ctx context.Context) ([]Category, error) {
	return resource.ReadList[Category](ctx, s.catalog, cache.KindTaxonomy, CategoriesPath, nil)
}

// Comments returns one page of approved comments on a course.
func (s *Service) Comments(ctx context.Context, courseID, page, pageSize int) (pagination.PagedResult[Comment], error) {
	if courseID <= 0 {
		return pagination.PagedResult[Comment]{}, fmt.Errorf("course id must be > 0 (got %d)", courseID)
	}
	page = pagination.ClampPage(page)
	pageSize = pagination.ClampPageSize(pageSize)

	query := pagination.BuildQuery(page, pageSize, "", nil)
	return resource.ReadPage[Comment](ctx, s.comments, cache.KindList, commentsPath(courseID), query, page, pageSize)
}

// CommentsFetcher returns a cached fetcher for a Pager over a course's
// comments.
func (s *Service) CommentsFetcher(courseID int) pagination.FetchFunc {
	return s.comments.PageFetcher(cache.KindList, commentsPath(courseID))
}

// CatalogFetcher returns a cached fetcher for a Pager over the catalog.
func (s *Service) CatalogFetcher() pagination.FetchFunc {
	return s.catalog.PageFetcher(cache.KindList, CoursesPath)
}

// PostComment submits a comment. Rating is optional (0) or 1..5.
// Submissions are not retried.
func (s *Service) PostComment(ctx context.Context, courseID int, input CommentInput) (*Comment, error) {
	if courseID <= 0 {
		return nil, fmt.Errorf("%w: course id must be > 0 (got %d)", ErrInvalidComment, courseID)
	}

	input.Content = strings.TrimSpace(input.Content)
	switch {
	case input.Content == "":
		return nil, fmt.Errorf("%w: content is required", ErrInvalidComment)
	case utf8.RuneCountInString(input.Content) > MaxCommentLength:
		return nil, fmt.Errorf("%w: content longer than %d characters", ErrInvalidComment, MaxCommentLength)
	case input.Rating < 0 || input.Rating > 5:
		return nil, fmt.Errorf("%w: rating must be between 1 and 5 (got %d)", ErrInvalidComment, input.Rating)
	}

	body, err := s.api.Post(ctx, commentsPath(courseID), input)
	if err != nil {
		return nil, err
	}

	var comment Comment
	if err := envelope.UnwrapInto(envelope.Unwrap(body), &comment); err != nil {
		return nil, fmt.Errorf("decode comment: %w", err)
	}

	if err := s.comments.Invalidate(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("Cache invalidation failed")
	}
	s.logger.Info().Int("course_id", courseID).Int("rating", input.Rating).Msg("Comment submitted")
	return &comment, nil
}

// Catalog exposes the service's cached catalog reader.
func (s *Service) Catalog() *resource.Reader {
	return s.catalog
}

func commentsPath(courseID int) string {
	return CoursesPath + "/" + strconv.Itoa(courseID) + "/comments"
}
