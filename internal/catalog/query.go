package catalog

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

const optionParamPrefix = "option."

// FilterFromValues reads a listing filter from query parameters:
// category, vendor, type, tag (repeatable), q, minPrice, maxPrice, inStock, and option.<Name>.
// Prices are decimal dollars.
func FilterFromValues(values url.Values) (Filter, error) {
	f := Filter{
		CategoryPath: strings.Trim(strings.TrimSpace(values.Get("category")), "/"),
		Vendor:       strings.TrimSpace(values.Get("vendor")),
		ProductType:  strings.TrimSpace(values.Get("type")),
		Query:        strings.TrimSpace(values.Get("q")),
	}
	for _, raw := range values["tag"] {
		for _, tag := range strings.Split(raw, ",") {
			if tag = strings.TrimSpace(tag); tag != "" {
				f.Tags = append(f.Tags, tag)
			}
		}
	}
	var err error
	if raw := strings.TrimSpace(values.Get("minPrice")); raw != "" {
		if f.MinPriceCents, err = ParsePriceCents(raw); err != nil {
			return Filter{}, fmt.Errorf("minPrice: %w", err)
		}
	}
	if raw := strings.TrimSpace(values.Get("maxPrice")); raw != "" {
		if f.MaxPriceCents, err = ParsePriceCents(raw); err != nil {
			return Filter{}, fmt.Errorf("maxPrice: %w", err)
		}
	}
	if raw := strings.TrimSpace(values.Get("inStock")); raw != "" {
		if f.InStockOnly, err = strconv.ParseBool(raw); err != nil {
			return Filter{}, fmt.Errorf("inStock: must be a boolean")
		}
	}
	for key, vals := range values {
		if !strings.HasPrefix(key, optionParamPrefix) || len(vals) == 0 {
			continue
		}
		name := strings.TrimSpace(strings.TrimPrefix(key, optionParamPrefix))
		value := strings.TrimSpace(vals[0])
		if name == "" || value == "" {
			continue
		}
		if f.Options == nil {
			f.Options = make(map[string]string)
		}
		f.Options[name] = value
	}
	return f, nil
}
