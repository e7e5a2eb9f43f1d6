package documents

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/Trizzoto/FabrowxWebsite-sub001/internal/domain"
	"github.com/Trizzoto/FabrowxWebsite-sub001/internal/platform/docstore"
	"github.com/Trizzoto/FabrowxWebsite-sub001/internal/repositories"
)

type galleryRepository struct {
	items Collection[domain.GalleryItem]
	now   func() time.Time
}

var _ repositories.GalleryRepository = (*galleryRepository)(nil)

// NewGalleryRepository stores gallery items. List orders by position.
func NewGalleryRepository(store docstore.Store, clock func() time.Time) repositories.GalleryRepository {
	return &galleryRepository{items: NewCollection[domain.GalleryItem](store, collectionGallery), now: utcClock(clock)}
}

func (r *galleryRepository) Get(ctx context.Context, id string) (domain.GalleryItem, error) {
	return r.items.Get(ctx, id)
}

func (r *galleryRepository) Save(ctx context.Context, item domain.GalleryItem) (domain.GalleryItem, error) {
	stamp(&item.CreatedAt, &item.UpdatedAt, r.now())
	if err := r.items.Put(ctx, item.ID, item); err != nil {
		return domain.GalleryItem{}, err
	}
	return item, nil
}

func (r *galleryRepository) Delete(ctx context.Context, id string) error {
	return r.items.Delete(ctx, id)
}

func (r *galleryRepository) List(ctx context.Context) ([]domain.GalleryItem, error) {
	items, err := r.items.List(ctx)
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(items, func(a, b domain.GalleryItem) int {
		if c := cmp.Compare(a.Position, b.Position); c != 0 {
			return c
		}
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return items, nil
}

type serviceRepository struct {
	services Collection[domain.Service]
	now      func() time.Time
}

var _ repositories.ServiceRepository = (*serviceRepository)(nil)

// NewServiceRepository stores service pages. List orders by position.
func NewServiceRepository(store docstore.Store, clock func() time.Time) repositories.ServiceRepository {
	return &serviceRepository{services: NewCollection[domain.Service](store, collectionServices), now: utcClock(clock)}
}

func (r *serviceRepository) Get(ctx context.Context, id string) (domain.Service, error) {
	return r.services.Get(ctx, id)
}

func (r *serviceRepository) GetBySlug(ctx context.Context, slug string) (domain.Service, error) {
	slug = strings.TrimSpace(slug)
	service, ok, err := r.services.Find(ctx, func(s domain.Service) bool { return s.Slug == slug })
	if err != nil {
		return domain.Service{}, err
	}
	if !ok || slug == "" {
		return domain.Service{}, slugNotFound("documents.services.get_by_slug", slug)
	}
	return service, nil
}

func (r *serviceRepository) Save(ctx context.Context, service domain.Service) (domain.Service, error) {
	stamp(&service.CreatedAt, &service.UpdatedAt, r.now())
	if err := r.services.Put(ctx, service.ID, service); err != nil {
		return domain.Service{}, err
	}
	return service, nil
}

func (r *serviceRepository) Delete(ctx context.Context, id string) error {
	return r.services.Delete(ctx, id)
}

func (r *serviceRepository) List(ctx context.Context) ([]domain.Service, error) {
	services, err := r.services.List(ctx)
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(services, func(a, b domain.Service) int {
		if c := cmp.Compare(a.Position, b.Position); c != 0 {
			return c
		}
		return strings.Compare(a.Title, b.Title)
	})
	return services, nil
}

type blogRepository struct {
	posts Collection[domain.BlogPost]
	now   func() time.Time
}

var _ repositories.BlogRepository = (*blogRepository)(nil)

// NewBlogRepository stores blog posts. List returns newest first by publish date, falling back
// to creation time for drafts.
func NewBlogRepository(store docstore.Store, clock func() time.Time) repositories.BlogRepository {
	return &blogRepository{posts: NewCollection[domain.BlogPost](store, collectionBlog), now: utcClock(clock)}
}

func (r *blogRepository) Get(ctx context.Context, id string) (domain.BlogPost, error) {
	return r.posts.Get(ctx, id)
}

func (r *blogRepository) GetBySlug(ctx context.Context, slug string) (domain.BlogPost, error) {
	slug = strings.TrimSpace(slug)
	post, ok, err := r.posts.Find(ctx, func(p domain.BlogPost) bool { return p.Slug == slug })
	if err != nil {
		return domain.BlogPost{}, err
	}
	if !ok || slug == "" {
		return domain.BlogPost{}, slugNotFound("documents.blog.get_by_slug", slug)
	}
	return post, nil
}

func (r *blogRepository) Save(ctx context.Context, post domain.BlogPost) (domain.BlogPost, error) {
	stamp(&post.CreatedAt, &post.UpdatedAt, r.now())
	if err := r.posts.Put(ctx, post.ID, post); err != nil {
		return domain.BlogPost{}, err
	}
	return post, nil
}

func (r *blogRepository) Delete(ctx context.Context, id string) error {
	return r.posts.Delete(ctx, id)
}

func (r *blogRepository) List(ctx context.Context) ([]domain.BlogPost, error) {
	posts, err := r.posts.List(ctx)
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(posts, func(a, b domain.BlogPost) int {
		return sortTime(b).Compare(sortTime(a))
	})
	return posts, nil
}

func sortTime(p domain.BlogPost) time.Time {
	if p.PublishedAt != nil {
		return *p.PublishedAt
	}
	return p.CreatedAt
}

type contactRepository struct {
	contacts Collection[domain.ContactSubmission]
	now      func() time.Time
}

var _ repositories.ContactRepository = (*contactRepository)(nil)

// NewContactRepository stores contact form submissions.
func NewContactRepository(store docstore.Store, clock func() time.Time) repositories.ContactRepository {
	return &contactRepository{contacts: NewCollection[domain.ContactSubmission](store, collectionContacts), now: utcClock(clock)}
}

func (r *contactRepository) Get(ctx context.Context, id string) (domain.ContactSubmission, error) {
	return r.contacts.Get(ctx, id)
}

func (r *contactRepository) Save(ctx context.Context, submission domain.ContactSubmission) (domain.ContactSubmission, error) {
	stamp(&submission.CreatedAt, &submission.UpdatedAt, r.now())
	if err := r.contacts.Put(ctx, submission.ID, submission); err != nil {
		return domain.ContactSubmission{}, err
	}
	return submission, nil
}

func (r *contactRepository) Delete(ctx context.Context, id string) error {
	return r.contacts.Delete(ctx, id)
}

func (r *contactRepository) List(ctx context.Context) ([]domain.ContactSubmission, error) {
	contacts, err := r.contacts.List(ctx)
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(contacts, func(a, b domain.ContactSubmission) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(b.ID, a.ID)
	})
	return contacts, nil
}

func slugNotFound(op, slug string) error {
	return docstore.NewError(op, docstore.KindNotFound, fmt.Errorf("slug %q not found", slug))
}
