package courses

import "time"

// Course is a catalog entry. Detail responses add Description and Syllabus.
type Course struct {
	ID            int         `json:"id"`
	Slug          string      `json:"slug"`
	Title         string      `json:"title"`
	Summary       string      `json:"summary,omitempty"`
	Description   string      `json:"description,omitempty"`
	Thumbnail     string      `json:"thumbnail,omitempty"`
	Level         string      `json:"level,omitempty"`
	Price         int64       `json:"price"`
	DiscountPrice *int64      `json:"discountPrice,omitempty"`
	Duration      int         `json:"duration,omitempty"` // minutes
	Rating        float64     `json:"rating,omitempty"`
	RatingCount   int         `json:"ratingCount,omitempty"`
	StudentCount  int         `json:"studentCount,omitempty"`
	Instructor    *Instructor `json:"instructor,omitempty"`
	Category      *Category   `json:"category,omitempty"`
	Syllabus      []Section   `json:"syllabus,omitempty"`
	StartDate     *time.Time  `json:"startDate,omitempty"`
}

// IsFree reports whether the course costs nothing after discount.
func (c Course) IsFree() bool {
	if c.DiscountPrice != nil {
		return *c.DiscountPrice == 0
	}
	return c.Price == 0
}

// Instructor teaches a course.
type Instructor struct {
	ID     int    `json:"id"`
	Name   string `json:"name"`
	Avatar string `json:"avatar,omitempty"`
}

// Category groups courses.
type Category struct {
	ID          int    `json:"id"`
	Slug        string `json:"slug"`
	Name        string `json:"name"`
	CourseCount int    `json:"courseCount,omitempty"`
}

// Section is one chapter of a syllabus.
type Section struct {
	Title   string   `json:"title"`
	Lessons []Lesson `json:"lessons"`
}

// Lesson is a single lesson of a section.
type Lesson struct {
	Title    string `json:"title"`
	Duration int    `json:"duration,omitempty"` // minutes
	Preview  bool   `json:"preview,omitempty"`
}

// Comment is a student comment with an optional rating.
type Comment struct {
	ID        int        `json:"id"`
	CourseID  int        `json:"courseId"`
	Author    string     `json:"author"`
	Content   string     `json:"content"`
	Rating    int        `json:"rating,omitempty"`
	Approved  bool       `json:"approved"`
	CreatedAt *time.Time `json:"createdAt,omitempty"`
}

// CommentInput is the body of a comment submission.
type CommentInput struct {
	Content string `json:"content"`
	Rating  int    `json:"rating,omitempty"`
}

// Course levels accepted by the catalog filter.
const (
	LevelBeginner     = "beginner"
	LevelIntermediate = "intermediate"
	LevelAdvanced     = "advanced"
)

// ListOptions filters the catalog.
type ListOptions struct {
	Page     int
	PageSize int
	Search   string
	Category string
	Level    string
	// Free restricts to free (true) or paid (false) courses when set
	Free *bool
	Sort string
}
