package catalog

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Trizzoto/FabrowxWebsite-sub001/internal/domain"
)

func product(handle, category string, status domain.ProductStatus, prices ...int64) domain.Product {
	p := domain.Product{ID: handle, Handle: handle, Title: handle, Category: category, Status: status}
	for i, price := range prices {
		p.Variants = append(p.Variants, domain.ProductVariant{ID: handle + "-" + string(rune('a'+i)), PriceCents: price})
	}
	return p
}

func TestBuildCategoryTreeCountsDescendants(t *testing.T) {
	products := []domain.Product{
		product("hinge", "Gates > Hardware > Hinges", domain.ProductStatusActive, 1250),
		product("latch", "Gates > Hardware > Latches", domain.ProductStatusActive, 900),
		product("swing-gate", "Gates", domain.ProductStatusActive, 45000),
		product("bollard", "Site Works/Bollards", domain.ProductStatusActive, 19900),
		product("draft-gate", "Gates > Sliding", domain.ProductStatusDraft, 100),
		product("no-category", "", domain.ProductStatusActive, 100),
	}

	tree := BuildCategoryTree(products)
	require.Len(t, tree.Roots, 2)
	assert.Equal(t, "Gates", tree.Roots[0].Name)
	assert.Equal(t, "Site Works", tree.Roots[1].Name)

	gates := tree.Roots[0]
	assert.Equal(t, 3, gates.ProductCount)
	require.Len(t, gates.Children, 1, "draft products do not create nodes")

	hardware, ok := tree.Find("gates/hardware")
	require.True(t, ok)
	assert.Equal(t, 2, hardware.ProductCount)
	assert.Equal(t, "Gates > Hardware", hardware.Label)
	assert.Equal(t, 1, hardware.Depth)
	require.Len(t, hardware.Children, 2)
	assert.Equal(t, "Hinges", hardware.Children[0].Name)
	assert.Equal(t, "Latches", hardware.Children[1].Name)

	for _, node := range tree.Flatten() {
		own := 0
		for _, p := range products {
			if p.Visible() && CategorySlugPath(p) == node.Path {
				own++
			}
		}
		sum := own
		for _, child := range node.Children {
			sum += child.ProductCount
		}
		assert.Equal(t, sum, node.ProductCount, node.Path)
	}

	flat := tree.Flatten()
	paths := make([]string, len(flat))
	for i, n := range flat {
		paths[i] = n.Path
	}
	assert.Equal(t, []string{"gates", "gates/hardware", "gates/hardware/hinges", "gates/hardware/latches", "site-works", "site-works/bollards"}, paths)

	crumbs := tree.Breadcrumbs("/gates/hardware/hinges/")
	require.Len(t, crumbs, 3)
	assert.Equal(t, "Hinges", crumbs[2].Name)
	assert.Nil(t, tree.Breadcrumbs("gates/missing"))

	_, ok = tree.Find("gates/sliding")
	assert.False(t, ok)
}

func TestFilterAndSort(t *testing.T) {
	older := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	hinge := product("hinge", "Gates > Hardware > Hinges", domain.ProductStatusActive, 1250, 1400)
	hinge.Vendor = "Fabrow"
	hinge.Tags = []string{"Galvanised", "hardware"}
	hinge.Options = []domain.ProductOption{{Name: "Finish", Values: []string{"Raw", "Galvanised"}}}
	hinge.Variants[0].OptionValues = []string{"Raw"}
	hinge.Variants[1].OptionValues = []string{"Galvanised"}
	hinge.Variants[1].SKU = "GH-G"
	hinge.CreatedAt = older

	latch := product("latch", "Gates > Hardware > Latches", domain.ProductStatusActive, 900)
	latch.Vendor = "Other"
	latch.Featured = true
	latch.CreatedAt = older.Add(time.Hour)
	latch.Variants[0].TrackInventory = true

	bollard := product("bollard", "Site Works > Bollards", domain.ProductStatusActive, 19900)
	bollard.CreatedAt = older.Add(2 * time.Hour)
	draft := product("draft", "Gates", domain.ProductStatusDraft, 10)

	all := []domain.Product{hinge, latch, bollard, draft}

	handles := func(ps []domain.Product) []string {
		out := make([]string, len(ps))
		for i, p := range ps {
			out[i] = p.Handle
		}
		return out
	}

	assert.Equal(t, []string{"latch", "bollard", "hinge"}, handles(Apply(all, Filter{}, SortFeatured)))
	assert.Equal(t, []string{"hinge", "latch"}, handles(Apply(all, Filter{CategoryPath: "gates/hardware"}, SortTitle)))
	assert.Equal(t, []string{"latch", "hinge", "bollard"}, handles(Apply(all, Filter{}, SortPriceAsc)))
	assert.Equal(t, []string{"bollard", "hinge", "latch"}, handles(Apply(all, Filter{}, SortPriceDesc)))
	assert.Equal(t, []string{"bollard", "latch", "hinge"}, handles(Apply(all, Filter{}, SortNewest)))
	assert.Equal(t, []string{"hinge"}, handles(Apply(all, Filter{Options: map[string]string{"finish": "galvanised"}}, SortTitle)))
	assert.Empty(t, Apply(all, Filter{Options: map[string]string{"Finish": "Galvanised"}, MaxPriceCents: 1300}, SortTitle))
	assert.Equal(t, []string{"hinge"}, handles(Apply(all, Filter{Query: "gh-g"}, SortTitle)))
	assert.Equal(t, []string{"hinge"}, handles(Apply(all, Filter{Tags: []string{"galvanised"}, Vendor: "fabrow"}, SortTitle)))
	assert.Equal(t, []string{"bollard", "hinge"}, handles(Apply(all, Filter{InStockOnly: true}, SortTitle)))
	assert.Equal(t, []string{"draft", "hinge", "latch"}, handles(Apply(all, Filter{CategoryPath: "gates", IncludeHidden: true}, SortTitle)))
	assert.Equal(t, SortFeatured, ParseSortKey("bogus"))
	assert.Equal(t, SortPriceDesc, ParseSortKey(" PRICE-DESC "))
}

func TestComputeFacets(t *testing.T) {
	a := product("a", "", domain.ProductStatusActive, 500, 700)
	a.Vendor = "Fabrow"
	a.ProductType = "Hardware"
	a.Tags = []string{"steel plate"}
	a.Options = []domain.ProductOption{{Name: "Size", Values: []string{"S", "L"}}}
	a.Variants[0].OptionValues = []string{"S"}
	a.Variants[1].OptionValues = []string{"L"}

	b := product("b", "", domain.ProductStatusActive, 300)
	b.Vendor = "fabrow"
	b.Tags = []string{"Steel Plate", "gates"}
	b.Options = []domain.ProductOption{{Name: "Size", Values: []string{"S"}}}
	b.Variants[0].OptionValues = []string{"S"}

	facets := ComputeFacets([]domain.Product{a, b})
	assert.Equal(t, 2, facets.Total)
	assert.EqualValues(t, 300, facets.MinPriceCents)
	assert.EqualValues(t, 700, facets.MaxPriceCents)
	require.Len(t, facets.Vendors, 1)
	assert.Equal(t, 2, facets.Vendors[0].Count)
	require.Len(t, facets.Tags, 2)
	assert.Equal(t, FacetValue{Value: "steel plate", Label: "Steel Plate", Count: 2}, facets.Tags[0])
	assert.Equal(t, "Gates", facets.Tags[1].Label)
	require.Len(t, facets.Types, 1)
	assert.Equal(t, []FacetValue{{Value: "S", Label: "S", Count: 2}, {Value: "L", Label: "L", Count: 1}}, facets.Options["Size"])
}
