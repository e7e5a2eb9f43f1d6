package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/Trizzoto/FabrowxWebsite-sub001/internal/catalog"
	"github.com/Trizzoto/FabrowxWebsite-sub001/internal/domain"
	"github.com/Trizzoto/FabrowxWebsite-sub001/internal/platform/requestctx"
	"go.uber.org/zap"
)

//go:embed templates/*.tmpl templates/admin/*.tmpl
var templateFS embed.FS

const layoutFile = "templates/layout.tmpl"

// pageData is the value every template executes against.
type pageData struct {
	Site      Site
	Title     string
	Path      string
	CartCount int
	Admin     *requestctx.Admin
	Flash     string
	Error     string
	Data      any
}

// parseTemplates parses each page together with the shared layout. Pages get their own clone so
// their "content" blocks do not overwrite each other.
func parseTemplates(site Site) (map[string]*template.Template, error) {
	base, err := template.New("layout").Funcs(templateFuncs(site)).ParseFS(templateFS, layoutFile)
	if err != nil {
		return nil, fmt.Errorf("parse layout: %w", err)
	}

	var files []string
	err = fs.WalkDir(templateFS, "templates", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || p == layoutFile || !strings.HasSuffix(p, ".tmpl") {
			return nil
		}
		files = append(files, p)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no templates found")
	}

	pages := make(map[string]*template.Template, len(files))
	for _, file := range files {
		clone, err := base.Clone()
		if err != nil {
			return nil, err
		}
		if _, err := clone.ParseFS(templateFS, file); err != nil {
			return nil, fmt.Errorf("parse %s: %w", file, err)
		}
		name := strings.TrimSuffix(strings.TrimPrefix(file, "templates/"), ".tmpl")
		pages[name] = clone
	}
	return pages, nil
}

func templateFuncs(site Site) template.FuncMap {
	return template.FuncMap{
		"now": time.Now,
		"money": func(cents int64) string {
			return catalog.FormatMoney(cents, site.Currency)
		},
		"priceRange": func(p domain.Product) string {
			lo, hi := p.PriceRange()
			if lo == hi {
				return catalog.FormatMoney(lo, site.Currency)
			}
			return "From " + catalog.FormatMoney(lo, site.Currency)
		},
		"date": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.Format("2 Jan 2006")
		},
		"datePtr": func(t *time.Time) string {
			if t == nil || t.IsZero() {
				return ""
			}
			return t.Format("2 Jan 2006")
		},
		"dateTime": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.Format("2 Jan 2006 15:04")
		},
		// Bodies are sanitized when saved.
		"safeHTML": func(s string) template.HTML { return template.HTML(s) },
		"label": func(v any) string {
			s := strings.ReplaceAll(fmt.Sprint(v), "_", " ")
			if s == "" {
				return s
			}
			return strings.ToUpper(s[:1]) + s[1:]
		},
		"withParam": withParam,
		"nextStatuses": func(current domain.OrderStatus) []domain.OrderStatus {
			var out []domain.OrderStatus
			for _, s := range allOrderStatuses {
				if current.CanTransition(s) {
					out = append(out, s)
				}
			}
			return out
		},
	}
}

var allOrderStatuses = []domain.OrderStatus{
	domain.OrderStatusPendingPayment,
	domain.OrderStatusPaid,
	domain.OrderStatusFulfilled,
	domain.OrderStatusCancelled,
	domain.OrderStatusRefunded,
}

// withParam returns a query string with key set to value, dropping the page token. An empty value
// removes the key.
func withParam(values url.Values, key, value string) string {
	next := url.Values{}
	for k, v := range values {
		next[k] = append([]string(nil), v...)
	}
	next.Del("pageToken")
	if value == "" {
		next.Del(key)
	} else {
		next.Set(key, value)
	}
	if len(next) == 0 {
		return "?"
	}
	return "?" + next.Encode()
}

// render executes the page into a buffer first so template failures never emit half a page.
func (p *Pages) render(w http.ResponseWriter, r *http.Request, status int, page string, data pageData) {
	tmpl, ok := p.templates[page]
	if !ok {
		http.Error(w, fmt.Sprintf("template %q not found", page), http.StatusInternalServerError)
		return
	}
	data.Site = p.site
	data.Path = r.URL.Path
	if data.CartCount == 0 && !strings.HasPrefix(page, "admin/") {
		data.CartCount = p.cartCount(r)
	}
	if admin, ok := requestctx.AdminFromContext(r.Context()); ok {
		data.Admin = &admin
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "base", data); err != nil {
		requestctx.Logger(r.Context()).Error("web.render_failed", zap.String("page", page), zap.Error(err))
		http.Error(w, fmt.Sprintf("template exec error: %v", err), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (p *Pages) renderError(w http.ResponseWriter, r *http.Request, status int, message string) {
	p.render(w, r, status, "error", pageData{
		Title: http.StatusText(status),
		Error: message,
		Data:  map[string]any{"Status": status},
	})
}

// redirect sends a 303 so form posts land on a GET.
func redirect(w http.ResponseWriter, r *http.Request, target string) {
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func localRedirectTarget(raw, prefix, fallback string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" || !strings.HasPrefix(raw, "/") || strings.HasPrefix(raw, "//") {
		return fallback
	}
	if cleaned := path.Clean(raw); strings.HasPrefix(cleaned, prefix) {
		return cleaned
	}
	return fallback
}
