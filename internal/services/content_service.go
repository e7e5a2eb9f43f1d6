package services

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"html"
	"net/mail"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
	"github.com/oklog/ulid/v2"

	"github.com/Trizzoto/FabrowxWebsite-sub001/internal/catalog"
	"github.com/Trizzoto/FabrowxWebsite-sub001/internal/domain"
	"github.com/Trizzoto/FabrowxWebsite-sub001/internal/platform/pagination"
	"github.com/Trizzoto/FabrowxWebsite-sub001/internal/repositories"
)

const (
	defaultPostPageSize = 10
	maxContactName      = 120
	maxContactEmail     = 254
	maxContactPhone     = 40
	maxContactSubject   = 200
	maxContactMessage   = 5000
	maxTitleLength      = 200
)

var (
	// ErrContentInvalidInput indicates a malformed gallery, service, post, or contact payload.
	ErrContentInvalidInput = errors.New("content: invalid input")
	// ErrContentNotFound indicates the requested record does not exist or is not public.
	ErrContentNotFound = errors.New("content: not found")
	// ErrContentConflict indicates a slug is already taken.
	ErrContentConflict = errors.New("content: slug already in use")
	// ErrContentUnavailable indicates a backend failure.
	ErrContentUnavailable = errors.New("content: unavailable")
)

// ContentServiceDeps wires the content service.
type ContentServiceDeps struct {
	Gallery     repositories.GalleryRepository
	Services    repositories.ServiceRepository
	Blog        repositories.BlogRepository
	Contacts    repositories.ContactRepository
	Clock       func() time.Time
	Logger      Logger
	Policy      *bluemonday.Policy
	IDGenerator func() string
}

type contentService struct {
	gallery  repositories.GalleryRepository
	services repositories.ServiceRepository
	blog     repositories.BlogRepository
	contacts repositories.ContactRepository
	now      func() time.Time
	logger   Logger
	markdown *markdownRenderer
	strict   *bluemonday.Policy
	newID    func() string
}

var _ ContentService = (*contentService)(nil)

// NewContentService constructs a ContentService.
func NewContentService(deps ContentServiceDeps) (ContentService, error) {
	switch {
	case deps.Gallery == nil:
		return nil, errors.New("content service: gallery repository is required")
	case deps.Services == nil:
		return nil, errors.New("content service: service repository is required")
	case deps.Blog == nil:
		return nil, errors.New("content service: blog repository is required")
	case deps.Contacts == nil:
		return nil, errors.New("content service: contact repository is required")
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = nopLogger
	}
	policy := deps.Policy
	if policy == nil {
		policy = bluemonday.UGCPolicy()
	}
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string { return ulid.Make().String() }
	}
	return &contentService{
		gallery:  deps.Gallery,
		services: deps.Services,
		blog:     deps.Blog,
		contacts: deps.Contacts,
		now:      func() time.Time { return clock().UTC() },
		logger:   logger,
		markdown: newMarkdownRenderer(policy),
		strict:   bluemonday.StrictPolicy(),
		newID:    idGen,
	}, nil
}

// Gallery

func (s *contentService) ListGallery(ctx context.Context, includeDrafts bool) ([]GalleryItem, error) {
	items, err := s.gallery.List(ctx)
	if err != nil {
		return nil, translateRepoError(err, nil, nil, ErrContentUnavailable)
	}
	if includeDrafts {
		return items, nil
	}
	return slices.DeleteFunc(items, func(item GalleryItem) bool { return !item.Published }), nil
}

func (s *contentService) GetGalleryItem(ctx context.Context, id string) (GalleryItem, error) {
	item, err := s.gallery.Get(ctx, strings.TrimSpace(id))
	if err != nil {
		return GalleryItem{}, translateRepoError(err, ErrContentNotFound, nil, ErrContentUnavailable)
	}
	return item, nil
}

// SaveGalleryItem creates the item when ID is empty and appends it to the end of the gallery.
func (s *contentService) SaveGalleryItem(ctx context.Context, item GalleryItem) (GalleryItem, error) {
	item.Title = strings.TrimSpace(item.Title)
	item.ImageURL = strings.TrimSpace(item.ImageURL)
	item.Description = s.plainText(strings.TrimSpace(item.Description))
	item.Category = strings.TrimSpace(item.Category)
	if item.Title == "" || item.ImageURL == "" {
		return GalleryItem{}, fmt.Errorf("%w: title and image are required", ErrContentInvalidInput)
	}
	if utf8.RuneCountInString(item.Title) > maxTitleLength {
		return GalleryItem{}, fmt.Errorf("%w: title is too long", ErrContentInvalidInput)
	}
	if item.ID == "" {
		item.ID = s.newID()
		existing, err := s.gallery.List(ctx)
		if err != nil {
			return GalleryItem{}, translateRepoError(err, nil, nil, ErrContentUnavailable)
		}
		for _, other := range existing {
			item.Position = max(item.Position, other.Position+1)
		}
	} else if prev, err := s.gallery.Get(ctx, item.ID); err == nil {
		item.CreatedAt = prev.CreatedAt
	} else if !isRepoNotFound(err) {
		return GalleryItem{}, translateRepoError(err, nil, nil, ErrContentUnavailable)
	}
	saved, err := s.gallery.Save(ctx, item)
	if err != nil {
		return GalleryItem{}, translateRepoError(err, ErrContentNotFound, ErrContentConflict, ErrContentUnavailable)
	}
	return saved, nil
}

func (s *contentService) DeleteGalleryItem(ctx context.Context, id string) error {
	if err := s.gallery.Delete(ctx, strings.TrimSpace(id)); err != nil {
		return translateRepoError(err, ErrContentNotFound, nil, ErrContentUnavailable)
	}
	return nil
}

// ReorderGallery assigns positions in the order given. Items missing from ids keep their relative
// order after the listed ones.
func (s *contentService) ReorderGallery(ctx context.Context, ids []string) ([]GalleryItem, error) {
	items, err := s.gallery.List(ctx)
	if err != nil {
		return nil, translateRepoError(err, nil, nil, ErrContentUnavailable)
	}
	rank := make(map[string]int, len(ids))
	for i, id := range ids {
		id = strings.TrimSpace(id)
		if _, dup := rank[id]; dup {
			return nil, fmt.Errorf("%w: duplicate id %q", ErrContentInvalidInput, id)
		}
		rank[id] = i
	}
	known := make(map[string]bool, len(items))
	for _, item := range items {
		known[item.ID] = true
	}
	for id := range rank {
		if !known[id] {
			return nil, fmt.Errorf("%w: unknown gallery item %q", ErrContentNotFound, id)
		}
	}
	slices.SortStableFunc(items, func(a, b GalleryItem) int {
		ra, okA := rank[a.ID]
		rb, okB := rank[b.ID]
		switch {
		case okA && okB:
			return cmp.Compare(ra, rb)
		case okA:
			return -1
		case okB:
			return 1
		}
		return 0
	})
	for i := range items {
		if items[i].Position == i {
			continue
		}
		items[i].Position = i
		saved, err := s.gallery.Save(ctx, items[i])
		if err != nil {
			return nil, translateRepoError(err, nil, nil, ErrContentUnavailable)
		}
		items[i] = saved
	}
	return items, nil
}

// Services

func (s *contentService) ListServices(ctx context.Context, includeDrafts bool) ([]Service, error) {
	items, err := s.services.List(ctx)
	if err != nil {
		return nil, translateRepoError(err, nil, nil, ErrContentUnavailable)
	}
	if includeDrafts {
		return items, nil
	}
	return slices.DeleteFunc(items, func(svc Service) bool { return !svc.Published }), nil
}

// GetService looks a service up by slug. Callers decide whether unpublished services are visible.
func (s *contentService) GetService(ctx context.Context, slug string) (Service, error) {
	svc, err := s.services.GetBySlug(ctx, catalog.Slugify(slug))
	if err != nil {
		return Service{}, translateRepoError(err, ErrContentNotFound, nil, ErrContentUnavailable)
	}
	return svc, nil
}

func (s *contentService) SaveService(ctx context.Context, svc Service) (Service, error) {
	svc.Title = strings.TrimSpace(svc.Title)
	svc.Summary = s.plainText(strings.TrimSpace(svc.Summary))
	if svc.Title == "" {
		return Service{}, fmt.Errorf("%w: title is required", ErrContentInvalidInput)
	}
	svc.Slug = catalog.Slugify(cmp.Or(strings.TrimSpace(svc.Slug), svc.Title))
	if svc.Slug == "" {
		return Service{}, fmt.Errorf("%w: slug is required", ErrContentInvalidInput)
	}
	if svc.ID == "" {
		svc.ID = s.newID()
	}
	if err := s.ensureSlugFree(ctx, svc.ID, svc.Slug, func(ctx context.Context, slug string) (string, error) {
		other, err := s.services.GetBySlug(ctx, slug)
		return other.ID, err
	}); err != nil {
		return Service{}, err
	}
	if prev, err := s.services.Get(ctx, svc.ID); err == nil {
		svc.CreatedAt = prev.CreatedAt
	}
	rendered, err := s.markdown.Render(svc.BodyMarkdown)
	if err != nil {
		return Service{}, fmt.Errorf("%w: %v", ErrContentInvalidInput, err)
	}
	svc.BodyHTML = rendered
	saved, err := s.services.Save(ctx, svc)
	if err != nil {
		return Service{}, translateRepoError(err, ErrContentNotFound, ErrContentConflict, ErrContentUnavailable)
	}
	return saved, nil
}

func (s *contentService) DeleteService(ctx context.Context, id string) error {
	if err := s.services.Delete(ctx, strings.TrimSpace(id)); err != nil {
		return translateRepoError(err, ErrContentNotFound, nil, ErrContentUnavailable)
	}
	return nil
}

// Blog

// ListPosts returns posts newest first. Public listings include only posts that are published
// and whose publish time has passed.
func (s *contentService) ListPosts(ctx context.Context, includeDrafts bool, pager Pagination) (domain.CursorPage[BlogPost], error) {
	offset, err := pagination.DecodeToken(pager.PageToken)
	if err != nil {
		return domain.CursorPage[BlogPost]{}, fmt.Errorf("%w: %v", ErrContentInvalidInput, err)
	}
	posts, err := s.blog.List(ctx)
	if err != nil {
		return domain.CursorPage[BlogPost]{}, translateRepoError(err, nil, nil, ErrContentUnavailable)
	}
	if !includeDrafts {
		now := s.now()
		posts = slices.DeleteFunc(posts, func(p BlogPost) bool { return !p.Live(now) })
	}
	size := pager.PageSize
	if size <= 0 {
		size = defaultPostPageSize
	}
	items, next := pagination.Slice(posts, pagination.Params{PageSize: size, Offset: offset})
	if items == nil {
		items = []BlogPost{}
	}
	return domain.CursorPage[BlogPost]{Items: items, NextPageToken: next}, nil
}

func (s *contentService) GetPost(ctx context.Context, slug string, includeDrafts bool) (BlogPost, error) {
	post, err := s.blog.GetBySlug(ctx, catalog.Slugify(slug))
	if err != nil {
		return BlogPost{}, translateRepoError(err, ErrContentNotFound, nil, ErrContentUnavailable)
	}
	if !includeDrafts && !post.Live(s.now()) {
		return BlogPost{}, ErrContentNotFound
	}
	return post, nil
}

// SavePost renders the markdown body. A YAML front matter block at the top of the body overrides
// the title, slug, excerpt, tags, author, cover, and publish time given on the form.
func (s *contentService) SavePost(ctx context.Context, post BlogPost) (BlogPost, error) {
	fm, body, err := splitFrontMatter(post.BodyMarkdown)
	if err != nil {
		return BlogPost{}, fmt.Errorf("%w: %v", ErrContentInvalidInput, err)
	}
	post.BodyMarkdown = body
	post.Title = strings.TrimSpace(cmp.Or(fm.Title, post.Title))
	post.Slug = catalog.Slugify(cmp.Or(fm.Slug, post.Slug, post.Title))
	post.Excerpt = s.plainText(strings.TrimSpace(cmp.Or(fm.Excerpt, post.Excerpt)))
	post.Author = strings.TrimSpace(cmp.Or(fm.Author, post.Author))
	post.CoverImageURL = strings.TrimSpace(cmp.Or(fm.CoverImageURL, post.CoverImageURL))
	if len(fm.Tags) > 0 {
		post.Tags = fm.Tags
	}
	post.Tags = cleanStrings(post.Tags)
	published, err := fm.publishedAt()
	if err != nil {
		return BlogPost{}, fmt.Errorf("%w: %v", ErrContentInvalidInput, err)
	}
	if published != nil {
		post.PublishedAt = published
	}

	if post.Title == "" || post.Slug == "" {
		return BlogPost{}, fmt.Errorf("%w: title is required", ErrContentInvalidInput)
	}
	switch post.Status {
	case "":
		post.Status = domain.BlogStatusDraft
	case domain.BlogStatusDraft, domain.BlogStatusPublished:
	default:
		return BlogPost{}, fmt.Errorf("%w: unknown status %q", ErrContentInvalidInput, post.Status)
	}
	if post.Status == domain.BlogStatusPublished && post.PublishedAt == nil {
		now := s.now()
		post.PublishedAt = &now
	}
	if post.ID == "" {
		post.ID = s.newID()
	}
	if err := s.ensureSlugFree(ctx, post.ID, post.Slug, func(ctx context.Context, slug string) (string, error) {
		other, err := s.blog.GetBySlug(ctx, slug)
		return other.ID, err
	}); err != nil {
		return BlogPost{}, err
	}
	if prev, err := s.blog.Get(ctx, post.ID); err == nil {
		post.CreatedAt = prev.CreatedAt
	}
	rendered, err := s.markdown.Render(post.BodyMarkdown)
	if err != nil {
		return BlogPost{}, fmt.Errorf("%w: %v", ErrContentInvalidInput, err)
	}
	post.BodyHTML = rendered
	if post.Excerpt == "" {
		post.Excerpt = excerpt(s.plainText(rendered), 200)
	}
	saved, err := s.blog.Save(ctx, post)
	if err != nil {
		return BlogPost{}, translateRepoError(err, ErrContentNotFound, ErrContentConflict, ErrContentUnavailable)
	}
	return saved, nil
}

func (s *contentService) DeletePost(ctx context.Context, id string) error {
	if err := s.blog.Delete(ctx, strings.TrimSpace(id)); err != nil {
		return translateRepoError(err, ErrContentNotFound, nil, ErrContentUnavailable)
	}
	return nil
}

// Contact

// SubmitContact validates and stores a public enquiry. All fields are stripped of markup.
func (s *contentService) SubmitContact(ctx context.Context, cmd ContactCommand) (ContactSubmission, error) {
	clean := func(v string) string { return strings.TrimSpace(s.plainText(v)) }
	sub := ContactSubmission{
		Name:        clean(cmd.Name),
		Email:       strings.TrimSpace(cmd.Email),
		Phone:       clean(cmd.Phone),
		Subject:     clean(cmd.Subject),
		Message:     clean(cmd.Message),
		ServiceSlug: catalog.Slugify(cmd.ServiceSlug),
		Status:      domain.ContactStatusNew,
		RemoteAddr:  strings.TrimSpace(cmd.RemoteAddr),
		UserAgent:   truncate(strings.TrimSpace(cmd.UserAgent), 256),
	}

	var problems []string
	if sub.Name == "" {
		problems = append(problems, "name is required")
	}
	if sub.Message == "" {
		problems = append(problems, "message is required")
	}
	if sub.Email == "" {
		problems = append(problems, "email is required")
	} else if addr, err := mail.ParseAddress(sub.Email); err != nil || addr.Address != sub.Email {
		problems = append(problems, "email is invalid")
	}
	for _, limit := range []struct {
		field string
		value string
		max   int
	}{
		{"name", sub.Name, maxContactName},
		{"email", sub.Email, maxContactEmail},
		{"phone", sub.Phone, maxContactPhone},
		{"subject", sub.Subject, maxContactSubject},
		{"message", sub.Message, maxContactMessage},
	} {
		if utf8.RuneCountInString(limit.value) > limit.max {
			problems = append(problems, fmt.Sprintf("%s must be at most %d characters", limit.field, limit.max))
		}
	}
	if len(problems) > 0 {
		return ContactSubmission{}, fmt.Errorf("%w: %s", ErrContentInvalidInput, strings.Join(problems, "; "))
	}

	sub.ID = s.newID()
	saved, err := s.contacts.Save(ctx, sub)
	if err != nil {
		return ContactSubmission{}, translateRepoError(err, nil, nil, ErrContentUnavailable)
	}
	s.logger(ctx, "contact.submitted", map[string]any{
		"contactId": saved.ID,
		"service":   saved.ServiceSlug,
	})
	return saved, nil
}

// ListContacts returns submissions newest first, optionally narrowed to one status.
func (s *contentService) ListContacts(ctx context.Context, status ContactStatus) ([]ContactSubmission, error) {
	if status != "" && !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrContentInvalidInput, status)
	}
	items, err := s.contacts.List(ctx)
	if err != nil {
		return nil, translateRepoError(err, nil, nil, ErrContentUnavailable)
	}
	if status == "" {
		return items, nil
	}
	return slices.DeleteFunc(items, func(c ContactSubmission) bool { return c.Status != status }), nil
}

func (s *contentService) MarkContact(ctx context.Context, id string, status ContactStatus) (ContactSubmission, error) {
	if !status.Valid() {
		return ContactSubmission{}, fmt.Errorf("%w: unknown status %q", ErrContentInvalidInput, status)
	}
	sub, err := s.contacts.Get(ctx, strings.TrimSpace(id))
	if err != nil {
		return ContactSubmission{}, translateRepoError(err, ErrContentNotFound, nil, ErrContentUnavailable)
	}
	if sub.Status == status {
		return sub, nil
	}
	sub.Status = status
	saved, err := s.contacts.Save(ctx, sub)
	if err != nil {
		return ContactSubmission{}, translateRepoError(err, ErrContentNotFound, nil, ErrContentUnavailable)
	}
	return saved, nil
}

func (s *contentService) DeleteContact(ctx context.Context, id string) error {
	if err := s.contacts.Delete(ctx, strings.TrimSpace(id)); err != nil {
		return translateRepoError(err, ErrContentNotFound, nil, ErrContentUnavailable)
	}
	return nil
}

func (s *contentService) ensureSlugFree(ctx context.Context, id, slug string, lookup func(context.Context, string) (string, error)) error {
	ownerID, err := lookup(ctx, slug)
	switch {
	case err == nil && ownerID != id:
		return fmt.Errorf("%w: %s", ErrContentConflict, slug)
	case err != nil && !isRepoNotFound(err):
		return translateRepoError(err, nil, nil, ErrContentUnavailable)
	}
	return nil
}

// plainText strips all markup. The policy escapes text, so entities are decoded back for storage;
// templates escape again on output.
func (s *contentService) plainText(value string) string {
	return html.UnescapeString(s.strict.Sanitize(value))
}

func excerpt(text string, limit int) string {
	text = strings.Join(strings.Fields(text), " ")
	if utf8.RuneCountInString(text) <= limit {
		return text
	}
	runes := []rune(text)[:limit]
	cut := strings.LastIndex(string(runes), " ")
	if cut <= 0 {
		return string(runes) + "…"
	}
	return string(runes)[:cut] + "…"
}

func truncate(value string, limit int) string {
	if utf8.RuneCountInString(value) <= limit {
		return value
	}
	return string([]rune(value)[:limit])
}
