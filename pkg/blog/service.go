// Package blog reads the public blog and drives the blog admin CMS.
//
// Reads are cached per resource kind (lists 2m, posts 5m, categories and
// tags 15m, related and navigation 2m, search 1m). Admin mutations drop the
// affected post and retire every cached list of the namespace.
package blog

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/Sternrassler/course-client/pkg/cache"
	"github.com/Sternrassler/course-client/pkg/client"
	"github.com/Sternrassler/course-client/pkg/envelope"
	"github.com/Sternrassler/course-client/pkg/logging"
	"github.com/Sternrassler/course-client/pkg/pagination"
	"github.com/Sternrassler/course-client/pkg/resource"
	"github.com/rs/zerolog"
)

// Endpoints of the blog API.
const (
	PostsPath      = "/api/blog/posts"
	CategoriesPath = "/api/blog/categories"
	TagsPath       = "/api/blog/tags"
	SearchPath     = "/api/blog/search"
	AdminPostsPath = "/api/admin/blog/posts"
)

// DefaultRelatedLimit is the number of related posts requested.
const DefaultRelatedLimit = 3

// ErrInvalidPost is returned for admin input rejected before any request.
var ErrInvalidPost = errors.New("invalid post")

// API is the subset of the HTTP client used by the service.
type API interface {
	resource.Getter
	Post(ctx context.Context, path string, body any) ([]byte, error)
	Put(ctx context.Context, path string, body any) ([]byte, error)
	Delete(ctx context.Context, path string) ([]byte, error)
}

// Service is the blog client.
type Service struct {
	api    API
	reader *resource.Reader
	logger zerolog.Logger
}

// NewService creates a blog service caching through c.
func NewService(api API, c *cache.Cache, config resource.Config) (*Service, error) {
	if config.Namespace == "" {
		config.Namespace = "blog"
	}

	reader, err := resource.NewReader(api, c, config)
	if err != nil {
		return nil, fmt.Errorf("blog: %w", err)
	}

	return &Service{
		api:    api,
		reader: reader,
		logger: logging.NewLogger(logging.ComponentBlog),
	}, nil
}

// ListPosts returns one page of published posts.
func (s *Service) ListPosts(ctx context.Context, opts ListOptions) (pagination.PagedResult[Post], error) {
	page := pagination.ClampPage(opts.Page)
	pageSize := pagination.ClampPageSize(opts.PageSize)

	query := pagination.BuildQuery(page, pageSize, "", pagination.Params{
		"category": opts.Category,
		"tag":      opts.Tag,
		"sort":     opts.Sort,
	})
	return resource.ReadPage[Post](ctx, s.reader, cache.KindList, PostsPath, query, page, pageSize)
}

// GetPost returns a post by slug.
func (s *Service) GetPost(ctx context.Context, slug string) (*Post, error) {
	path, err := postPath(slug)
	if err != nil {
		return nil, err
	}

	post, err := resource.ReadJSON[Post](ctx, s.reader, cache.KindDetail, path, nil)
	if err != nil {
		return nil, err
	}
	return &post, nil
}

// Categories returns every blog category.
func (s *Service) Categories(ctx context.Context) ([]Category, error) {
	return resource.ReadList[Category](ctx, s.reader, cache.KindTaxonomy, CategoriesPath, nil)
}

// Tags returns every blog tag.
func (s *Service) Tags(ctx context.Context) ([]Tag, error) {
	return resource.ReadList[Tag](ctx, s.reader, cache.KindTaxonomy, TagsPath, nil)
}

// RelatedPosts returns up to limit posts related to slug.
// A non-positive limit selects DefaultRelatedLimit.
func (s *Service) RelatedPosts(ctx context.Context, slug string, limit int) ([]Post, error) {
	path, err := postPath(slug)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultRelatedLimit
	}

	query := url.Values{"limit": {strconv.Itoa(limit)}}
	return resource.ReadList[Post](ctx, s.reader, cache.KindRelated, path+"/related", query)
}

// Navigation returns the posts before and after slug.
func (s *Service) Navigation(ctx context.Context, slug string) (*Navigation, error) {
	path, err := postPath(slug)
	if err != nil {
		return nil, err
	}

	nav, err := resource.ReadJSON[Navigation](ctx, s.reader, cache.KindNavigation, path+"/navigation", nil)
	if err != nil {
		return nil, err
	}
	return &nav, nil
}

// Search returns one page of posts matching term. A blank term returns an
// empty result without a request.
func (s *Service) Search(ctx context.Context, term string, page, pageSize int) (pagination.PagedResult[Post], error) {
	page = pagination.ClampPage(page)
	pageSize = pagination.ClampPageSize(pageSize)

	term = strings.TrimSpace(term)
	if term == "" {
		return pagination.PagedResult[Post]{
			Items: []Post{},
			Meta:  pagination.EmptyMeta(page, pageSize),
		}, nil
	}

	query := pagination.BuildQuery(page, pageSize, "", pagination.Params{"q": term})
	return resource.ReadPage[Post](ctx, s.reader, cache.KindSearch, SearchPath, query, page, pageSize)
}

// PostsFetcher returns a cached list fetcher for a Pager over public posts.
func (s *Service) PostsFetcher() pagination.FetchFunc {
	return s.reader.PageFetcher(cache.KindList, PostsPath)
}

// AdminPostsFetcher returns an uncached list fetcher for a Pager over every
// post, drafts included. The Pager sends page, pageSize, search and filters
// such as status.
func (s *Service) AdminPostsFetcher() pagination.FetchFunc {
	return func(ctx context.Context, query url.Values) ([]byte, error) {
		return s.api.Get(ctx, AdminPostsPath, query)
	}
}

// ExportPosts returns every post, drafts included, walking the admin list
// page by page. Pages are fetched uncached and in parallel.
func (s *Service) ExportPosts(ctx context.Context, config pagination.Config) ([]Post, error) {
	fetch := s.AdminPostsFetcher()
	bf := pagination.NewBatchFetcher(pagination.PageFetcherFunc(func(ctx context.Context, page, pageSize int) ([]byte, error) {
		return fetch(ctx, pagination.BuildQuery(page, pageSize, "", nil))
	}), config)

	posts, err := pagination.FetchAll[Post](ctx, bf)
	if err != nil {
		return nil, fmt.Errorf("export posts: %w", err)
	}
	return posts, nil
}

// CreatePost creates a post and returns it as stored.
func (s *Service) CreatePost(ctx context.Context, input PostInput) (*Post, error) {
	if err := validatePost(input); err != nil {
		return nil, err
	}

	body, err := s.api.Post(ctx, AdminPostsPath, input)
	if err != nil {
		return nil, err
	}

	post, err := decodePost(body)
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, post.Slug)
	s.logger.Info().Int("post_id", post.ID).Str("slug", post.Slug).Msg("Post created")
	return post, nil
}

// UpdatePost replaces post id and returns it as stored.
func (s *Service) UpdatePost(ctx context.Context, id int, input PostInput) (*Post, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: id must be > 0 (got %d)", ErrInvalidPost, id)
	}
	if err := validatePost(input); err != nil {
		return nil, err
	}

	body, err := s.api.Put(ctx, adminPostPath(id), input)
	if err != nil {
		return nil, err
	}

	post, err := decodePost(body)
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, post.Slug, input.Slug)
	s.logger.Info().Int("post_id", id).Str("slug", post.Slug).Msg("Post updated")
	return post, nil
}

// DeletePost deletes post id.
func (s *Service) DeletePost(ctx context.Context, id int) error {
	if id <= 0 {
		return fmt.Errorf("%w: id must be > 0 (got %d)", ErrInvalidPost, id)
	}

	if _, err := s.api.Delete(ctx, adminPostPath(id)); err != nil {
		return err
	}

	s.invalidate(ctx)
	s.logger.Info().Int("post_id", id).Msg("Post deleted")
	return nil
}

// invalidate drops cached reads after a mutation. Failures are logged; the
// namespace generation has moved on regardless.
func (s *Service) invalidate(ctx context.Context, slugs ...string) {
	endpoints := []string{CategoriesPath, TagsPath}
	for _, slug := range slugs {
		if path, err := postPath(slug); err == nil {
			endpoints = append(endpoints, path, path+"/related", path+"/navigation")
		}
	}

	if err := s.reader.Invalidate(ctx, endpoints...); err != nil {
		s.logger.Warn().Err(err).Msg("Cache invalidation failed")
	}
}

// Reader exposes the service's cached reader.
func (s *Service) Reader() *resource.Reader {
	return s.reader
}

func postPath(slug string) (string, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" || strings.Contains(slug, "/") {
		return "", fmt.Errorf("invalid post slug %q", slug)
	}
	return PostsPath + "/" + url.PathEscape(slug), nil
}

func adminPostPath(id int) string {
	return AdminPostsPath + "/" + strconv.Itoa(id)
}

func validatePost(input PostInput) error {
	if strings.TrimSpace(input.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidPost)
	}
	switch input.Status {
	case "", StatusDraft, StatusPublished, StatusArchived:
	default:
		return fmt.Errorf("%w: unknown status %q", ErrInvalidPost, input.Status)
	}
	return nil
}

func decodePost(body []byte) (*Post, error) {
	var post Post
	if err := envelope.UnwrapInto(envelope.Unwrap(body), &post); err != nil {
		return nil, fmt.Errorf("decode post: %w", err)
	}
	return &post, nil
}

var _ API = (*client.Client)(nil)
