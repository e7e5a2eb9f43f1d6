package domain

import "time"

// GalleryItem is a portfolio photo.
type GalleryItem struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Description  string    `json:"description,omitempty"`
	Category     string    `json:"category,omitempty"`
	ImageURL     string    `json:"imageUrl"`
	ThumbnailURL string    `json:"thumbnailUrl,omitempty"`
	Position     int       `json:"position"`
	Published    bool      `json:"published"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Service is a fabrication service offered by the business (e.g. custom gates, welding repairs).
type Service struct {
	ID           string    `json:"id"`
	Slug         string    `json:"slug"`
	Title        string    `json:"title"`
	Summary      string    `json:"summary,omitempty"`
	BodyMarkdown string    `json:"bodyMarkdown,omitempty"`
	BodyHTML     string    `json:"bodyHtml,omitempty"`
	ImageURL     string    `json:"imageUrl,omitempty"`
	Position     int       `json:"position"`
	Published    bool      `json:"published"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// BlogStatus is the publication state of a post.
type BlogStatus string

const (
	BlogStatusDraft     BlogStatus = "draft"
	BlogStatusPublished BlogStatus = "published"
)

// BlogPost is a news or project write-up rendered from markdown.
type BlogPost struct {
	ID            string     `json:"id"`
	Slug          string     `json:"slug"`
	Title         string     `json:"title"`
	Excerpt       string     `json:"excerpt,omitempty"`
	BodyMarkdown  string     `json:"bodyMarkdown"`
	BodyHTML      string     `json:"bodyHtml"`
	CoverImageURL string     `json:"coverImageUrl,omitempty"`
	Tags          []string   `json:"tags,omitempty"`
	Author        string     `json:"author,omitempty"`
	Status        BlogStatus `json:"status"`
	PublishedAt   *time.Time `json:"publishedAt,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// Live reports whether the post is visible publicly at now.
func (p BlogPost) Live(now time.Time) bool {
	return p.Status == BlogStatusPublished && p.PublishedAt != nil && !p.PublishedAt.After(now)
}

// ContactStatus tracks admin triage of enquiries.
type ContactStatus string

const (
	ContactStatusNew      ContactStatus = "new"
	ContactStatusRead     ContactStatus = "read"
	ContactStatusArchived ContactStatus = "archived"
)

// Valid reports whether s is a known status.
func (s ContactStatus) Valid() bool {
	return s == ContactStatusNew || s == ContactStatusRead || s == ContactStatusArchived
}

// ContactSubmission is an enquiry from the public contact form.
type ContactSubmission struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Email       string        `json:"email"`
	Phone       string        `json:"phone,omitempty"`
	Subject     string        `json:"subject,omitempty"`
	Message     string        `json:"message"`
	ServiceSlug string        `json:"serviceSlug,omitempty"`
	Status      ContactStatus `json:"status"`
	RemoteAddr  string        `json:"remoteAddr,omitempty"`
	UserAgent   string        `json:"userAgent,omitempty"`
	CreatedAt   time.Time     `json:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt"`
}
