package documents

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/Trizzoto/FabrowxWebsite-sub001/internal/domain"
	"github.com/Trizzoto/FabrowxWebsite-sub001/internal/platform/docstore"
	"github.com/Trizzoto/FabrowxWebsite-sub001/internal/platform/pagination"
	"github.com/Trizzoto/FabrowxWebsite-sub001/internal/repositories"
)

const defaultOrderPageSize = 25

type orderRepository struct {
	orders Collection[domain.Order]
	now    func() time.Time
}

var _ repositories.OrderRepository = (*orderRepository)(nil)

// NewOrderRepository stores orders keyed by their ULID.
func NewOrderRepository(store docstore.Store, clock func() time.Time) repositories.OrderRepository {
	return &orderRepository{orders: NewCollection[domain.Order](store, collectionOrders), now: utcClock(clock)}
}

func (r *orderRepository) Get(ctx context.Context, orderID string) (domain.Order, error) {
	return r.orders.Get(ctx, orderID)
}

func (r *orderRepository) Save(ctx context.Context, order domain.Order) (domain.Order, error) {
	stamp(&order.CreatedAt, &order.UpdatedAt, r.now())
	if err := r.orders.Put(ctx, order.ID, order); err != nil {
		return domain.Order{}, err
	}
	return order, nil
}

func (r *orderRepository) List(ctx context.Context, filter domain.OrderListFilter) (domain.CursorPage[domain.Order], error) {
	offset, err := pagination.DecodeToken(filter.Pagination.PageToken)
	if err != nil {
		return domain.CursorPage[domain.Order]{}, docstore.NewError("documents.orders.list", docstore.KindUnknown, err)
	}

	all, err := r.orders.List(ctx)
	if err != nil {
		return domain.CursorPage[domain.Order]{}, err
	}

	email := strings.ToLower(strings.TrimSpace(filter.Email))
	matched := make([]domain.Order, 0, len(all))
	for _, order := range all {
		if len(filter.Status) > 0 && !slices.Contains(filter.Status, order.Status) {
			continue
		}
		if email != "" && strings.ToLower(order.Customer.Email) != email {
			continue
		}
		matched = append(matched, order)
	}
	slices.SortStableFunc(matched, func(a, b domain.Order) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(b.ID, a.ID)
	})

	size := filter.Pagination.PageSize
	if size <= 0 {
		size = defaultOrderPageSize
	}
	items, next := pagination.Slice(matched, pagination.Params{PageSize: size, Offset: offset})
	return domain.CursorPage[domain.Order]{Items: items, NextPageToken: next}, nil
}

func (r *orderRepository) FindByPaymentSession(ctx context.Context, sessionID string) (domain.Order, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return domain.Order{}, docstore.NotFound("documents.orders.find_by_session", collectionOrders, sessionID)
	}
	order, ok, err := r.orders.Find(ctx, func(o domain.Order) bool { return o.Payment.SessionID == sessionID })
	if err != nil {
		return domain.Order{}, err
	}
	if !ok {
		return domain.Order{}, docstore.NewError("documents.orders.find_by_session", docstore.KindNotFound,
			fmt.Errorf("no order for payment session %s", sessionID))
	}
	return order, nil
}
