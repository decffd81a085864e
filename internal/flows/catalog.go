package flows

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/MrEthical07/goShop/internal/api"
	"github.com/MrEthical07/goShop/internal/audit"
	"github.com/MrEthical07/goShop/internal/metrics"
)

// LoadState is the outcome of a catalog fetch.
type LoadState int

const (
	LoadLoading LoadState = iota
	LoadReady
	LoadFailed
)

func (s LoadState) String() string {
	switch s {
	case LoadLoading:
		return "loading"
	case LoadReady:
		return "ready"
	case LoadFailed:
		return "failed"
	default:
		return "unknown"
	}
}

const (
	MsgProductsFailed = "Failed to fetch products"

	// UncategorizedGroup collects products without a category name.
	UncategorizedGroup = "Uncategorized"

	// PreviewSize is the number of products a category preview shows.
	PreviewSize = 1
)

// Group is the products of one category, in list order.
type Group struct {
	Name     string
	Products []api.Product
}

// Preview returns at most PreviewSize products.
func (g Group) Preview() []api.Product {
	if len(g.Products) <= PreviewSize {
		return g.Products
	}
	return g.Products[:PreviewSize]
}

// BannerResult is the banner fetch outcome. Banners are decorative: a failure
// is logged and yields an empty, ready list.
type BannerResult struct {
	State   LoadState
	Banners []api.Banner
}

// ProductResult is the product fetch outcome.
type ProductResult struct {
	State    LoadState
	Products []api.Product
	Groups   []Group
	Error    string
	Err      error
}

// Catalog fetches banners and products.
type Catalog struct {
	api   CatalogAPI
	obs   Observer
	clock Clock
}

func NewCatalog(catalogAPI CatalogAPI, obs Observer, clock Clock) *Catalog {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Catalog{api: catalogAPI, obs: obs.normalized(), clock: clock}
}

func (c *Catalog) LoadBanners(ctx context.Context) BannerResult {
	start := c.clock.Now()
	banners, err := c.api.Banners(ctx)
	c.record(ctx, "banners", start, len(banners), err)
	if err != nil {
		c.obs.Logger.Warn("banner fetch failed", "error", err)
		return BannerResult{State: LoadReady, Banners: []api.Banner{}}
	}
	if banners == nil {
		banners = []api.Banner{}
	}
	return BannerResult{State: LoadReady, Banners: banners}
}

func (c *Catalog) LoadProducts(ctx context.Context) ProductResult {
	start := c.clock.Now()
	products, err := c.api.Products(ctx)
	c.record(ctx, "products", start, len(products), err)
	if err != nil {
		c.obs.Logger.Warn("product fetch failed", "error", err)
		return ProductResult{
			State:    LoadFailed,
			Products: []api.Product{},
			Groups:   []Group{},
			Error:    MsgProductsFailed,
			Err:      err,
		}
	}
	if products == nil {
		products = []api.Product{}
	}
	return ProductResult{
		State:    LoadReady,
		Products: products,
		Groups:   GroupByCategory(products),
	}
}

func (c *Catalog) record(ctx context.Context, resource string, start time.Time, n int, err error) {
	if err != nil {
		c.obs.MetricInc(metrics.CatalogFetchFailure)
	} else {
		c.obs.MetricInc(metrics.CatalogFetchSuccess)
	}
	c.obs.Emit(ctx, audit.Event{
		EventType: EventCatalogFetch,
		Success:   err == nil,
		Error:     errorText(err),
		LatencyMS: c.clock.Now().Sub(start).Milliseconds(),
		Metadata: map[string]string{
			"resource": resource,
			"count":    strconv.Itoa(n),
		},
	})
}

// GroupByCategory groups products by category name, keeping the order in
// which categories and products first appear.
func GroupByCategory(products []api.Product) []Group {
	groups := make([]Group, 0)
	pos := make(map[string]int)
	for _, p := range products {
		name := UncategorizedGroup
		if p.Category != nil && strings.TrimSpace(p.Category.Name) != "" {
			name = p.Category.Name
		}
		i, ok := pos[name]
		if !ok {
			i = len(groups)
			pos[name] = i
			groups = append(groups, Group{Name: name})
		}
		groups[i].Products = append(groups[i].Products, p)
	}
	return groups
}
