package web

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/Trizzoto/FabrowxWebsite-sub001/internal/catalog"
	"github.com/Trizzoto/FabrowxWebsite-sub001/internal/domain"
	"github.com/Trizzoto/FabrowxWebsite-sub001/internal/platform/auth"
	"github.com/Trizzoto/FabrowxWebsite-sub001/internal/platform/pagination"
	"github.com/Trizzoto/FabrowxWebsite-sub001/internal/platform/requestctx"
	"github.com/Trizzoto/FabrowxWebsite-sub001/internal/services"
)

const adminHome = "/admin"

type loginView struct {
	Username string
	Next     string
}

func (p *Pages) loginForm(w http.ResponseWriter, r *http.Request) {
	next := localRedirectTarget(r.URL.Query().Get("next"), adminHome, adminHome)
	if _, ok := p.guard.Current(r); ok {
		redirect(w, r, next)
		return
	}
	p.render(w, r, http.StatusOK, "admin/login", pageData{Title: "Sign in", Data: loginView{Next: next}})
}

func (p *Pages) login(w http.ResponseWriter, r *http.Request) {
	if !parseForm(w, r) {
		p.renderError(w, r, http.StatusBadRequest, "The form could not be read.")
		return
	}
	username := strings.TrimSpace(r.PostFormValue("username"))
	next := localRedirectTarget(r.PostFormValue("next"), adminHome, adminHome)
	if _, err := p.guard.Login(w, r, username, r.PostFormValue("password")); err != nil {
		status := http.StatusInternalServerError
		message := "Sign in is unavailable right now."
		if errors.Is(err, auth.ErrInvalidCredentials) {
			status = http.StatusUnauthorized
			message = "The username or password is incorrect."
		} else {
			requestctx.Logger(r.Context()).Error("web.admin_login_failed", zap.Error(err))
		}
		p.render(w, r, status, "admin/login", pageData{
			Title: "Sign in",
			Error: message,
			Data:  loginView{Username: username, Next: next},
		})
		return
	}
	redirect(w, r, next)
}

func (p *Pages) logout(w http.ResponseWriter, r *http.Request) {
	p.guard.Logout(w, r)
	redirect(w, r, "/admin/login")
}

type dashboardView struct {
	Stats    services.OrderStats
	Contacts []services.ContactSubmission
	Statuses []domain.OrderStatus
}

func (p *Pages) dashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	view := dashboardView{Statuses: allOrderStatuses}
	if p.orders != nil {
		stats, err := p.orders.Stats(ctx)
		if err != nil {
			p.serviceError(w, r, err)
			return
		}
		view.Stats = stats
	}
	contacts, err := p.content.ListContacts(ctx, domain.ContactStatusNew)
	if err != nil {
		p.serviceError(w, r, err)
		return
	}
	view.Contacts = contacts
	p.render(w, r, http.StatusOK, "admin/dashboard", pageData{Title: "Dashboard", Data: view})
}

type adminProductsView struct {
	Query string
	Page  services.ProductPage
}

func (p *Pages) adminProducts(w http.ResponseWriter, r *http.Request) {
	values := r.URL.Query()
	params, err := pagination.Parse(values, pagination.Options{DefaultPageSize: 50, MaxPageSize: 200})
	if err != nil {
		p.renderError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	q := strings.TrimSpace(values.Get("q"))
	page, err := p.catalog.AdminListProducts(r.Context(), services.ProductQuery{
		Filter:     catalog.Filter{Query: q, IncludeHidden: true},
		Sort:       catalog.SortTitle,
		Pagination: services.Pagination{PageSize: params.PageSize, PageToken: params.PageToken},
	})
	if err != nil {
		p.serviceError(w, r, err)
		return
	}
	p.render(w, r, http.StatusOK, "admin/products", pageData{Title: "Products", Data: adminProductsView{Query: q, Page: page}})
}

type adminOrdersView struct {
	Status   string
	Email    string
	Statuses []domain.OrderStatus
	Page     domain.CursorPage[services.Order]
}

func (p *Pages) adminOrders(w http.ResponseWriter, r *http.Request) {
	values := r.URL.Query()
	params, err := pagination.Parse(values, pagination.Options{DefaultPageSize: 50, MaxPageSize: 200})
	if err != nil {
		p.renderError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	view := adminOrdersView{
		Status:   strings.ToLower(strings.TrimSpace(values.Get("status"))),
		Email:    strings.TrimSpace(values.Get("email")),
		Statuses: allOrderStatuses,
	}
	filter := domain.OrderListFilter{
		Email:      view.Email,
		Pagination: services.Pagination{PageSize: params.PageSize, PageToken: params.PageToken},
	}
	if view.Status != "" {
		status := domain.OrderStatus(view.Status)
		if !status.Valid() {
			p.renderError(w, r, http.StatusBadRequest, "Unknown order status.")
			return
		}
		filter.Status = []domain.OrderStatus{status}
	}
	page, err := p.orders.ListOrders(r.Context(), filter)
	if err != nil {
		p.serviceError(w, r, err)
		return
	}
	view.Page = page
	p.render(w, r, http.StatusOK, "admin/orders", pageData{Title: "Orders", Data: view})
}

func (p *Pages) adminOrder(w http.ResponseWriter, r *http.Request) {
	order, err := p.orders.GetOrder(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		p.serviceError(w, r, err)
		return
	}
	p.render(w, r, http.StatusOK, "admin/order", pageData{Title: "Order " + order.Number, Data: order})
}

func (p *Pages) adminOrderStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	orderID := chi.URLParam(r, "id")
	status := domain.OrderStatus(strings.ToLower(strings.TrimSpace(r.PostFormValue("status"))))
	if !status.Valid() {
		p.renderError(w, r, http.StatusBadRequest, "Unknown order status.")
		return
	}
	_, err := p.orders.UpdateStatus(ctx, services.OrderStatusCommand{
		OrderID: orderID,
		Status:  status,
		Note:    strings.TrimSpace(r.PostFormValue("note")),
	})
	if errors.Is(err, services.ErrOrderInvalidTransition) {
		order, loadErr := p.orders.GetOrder(ctx, orderID)
		if loadErr != nil {
			p.serviceError(w, r, loadErr)
			return
		}
		p.render(w, r, http.StatusConflict, "admin/order", pageData{
			Title: "Order " + order.Number,
			Error: "The order cannot move from " + string(order.Status) + " to " + string(status) + ".",
			Data:  order,
		})
		return
	}
	if err != nil {
		p.serviceError(w, r, err)
		return
	}
	redirect(w, r, "/admin/orders/"+orderID)
}

type adminContactsView struct {
	Status   string
	Statuses []domain.ContactStatus
	Items    []services.ContactSubmission
}

func (p *Pages) adminContacts(w http.ResponseWriter, r *http.Request) {
	raw := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("status")))
	status := domain.ContactStatus(raw)
	if raw != "" && !status.Valid() {
		p.renderError(w, r, http.StatusBadRequest, "Unknown contact status.")
		return
	}
	items, err := p.content.ListContacts(r.Context(), status)
	if err != nil {
		p.serviceError(w, r, err)
		return
	}
	view := adminContactsView{
		Status:   raw,
		Statuses: []domain.ContactStatus{domain.ContactStatusNew, domain.ContactStatusRead, domain.ContactStatusArchived},
		Items:    items,
	}
	p.render(w, r, http.StatusOK, "admin/contacts", pageData{Title: "Enquiries", Data: view})
}

func (p *Pages) adminMarkContact(w http.ResponseWriter, r *http.Request) {
	status := domain.ContactStatus(strings.ToLower(strings.TrimSpace(r.PostFormValue("status"))))
	if !status.Valid() {
		p.renderError(w, r, http.StatusBadRequest, "Unknown contact status.")
		return
	}
	if _, err := p.content.MarkContact(r.Context(), chi.URLParam(r, "id"), status); err != nil {
		p.serviceError(w, r, err)
		return
	}
	redirect(w, r, "/admin/contacts")
}
