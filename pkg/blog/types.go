package blog

import "time"

// Post is a blog post. Detail responses carry Content; list responses
// usually omit it.
type Post struct {
	ID          int        `json:"id"`
	Slug        string     `json:"slug"`
	Title       string     `json:"title"`
	Excerpt     string     `json:"excerpt,omitempty"`
	Content     string     `json:"content,omitempty"`
	CoverImage  string     `json:"coverImage,omitempty"`
	Author      *Author    `json:"author,omitempty"`
	Category    *Category  `json:"category,omitempty"`
	Tags        []Tag      `json:"tags,omitempty"`
	Status      string     `json:"status,omitempty"`
	ReadingTime int        `json:"readingTime,omitempty"`
	ViewCount   int        `json:"viewCount,omitempty"`
	PublishedAt *time.Time `json:"publishedAt,omitempty"`
	UpdatedAt   *time.Time `json:"updatedAt,omitempty"`
}

// Author is the public profile of a post author.
type Author struct {
	ID     int    `json:"id"`
	Name   string `json:"name"`
	Avatar string `json:"avatar,omitempty"`
}

// Category groups posts.
type Category struct {
	ID        int    `json:"id"`
	Slug      string `json:"slug"`
	Name      string `json:"name"`
	PostCount int    `json:"postCount,omitempty"`
}

// Tag labels posts.
type Tag struct {
	ID   int    `json:"id"`
	Slug string `json:"slug"`
	Name string `json:"name"`
}

// PostRef identifies a neighbouring post.
type PostRef struct {
	Slug  string `json:"slug"`
	Title string `json:"title"`
}

// Navigation holds the previous and next posts of a post.
// Either may be nil at the ends of the archive.
type Navigation struct {
	Previous *PostRef `json:"previous"`
	Next     *PostRef `json:"next"`
}

// Post statuses used by the admin CMS.
const (
	StatusDraft     = "draft"
	StatusPublished = "published"
	StatusArchived  = "archived"
)

// PostInput is the body of admin create and update calls.
type PostInput struct {
	Title       string     `json:"title"`
	Slug        string     `json:"slug,omitempty"`
	Excerpt     string     `json:"excerpt,omitempty"`
	Content     string     `json:"content"`
	CoverImage  string     `json:"coverImage,omitempty"`
	CategoryID  int        `json:"categoryId,omitempty"`
	TagIDs      []int      `json:"tagIds,omitempty"`
	Status      string     `json:"status,omitempty"`
	PublishedAt *time.Time `json:"publishedAt,omitempty"`
}

// ListOptions filters a post list.
type ListOptions struct {
	Page     int
	PageSize int
	Category string
	Tag      string
	Sort     string
}
