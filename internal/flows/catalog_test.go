package flows

import (
	"context"
	"errors"
	"testing"

	"github.com/MrEthical07/goShop/internal/api"
	"github.com/MrEthical07/goShop/internal/metrics"
)

type fakeCatalogAPI struct {
	banners    []api.Banner
	bannerErr  error
	products   []api.Product
	productErr error
}

func (f fakeCatalogAPI) Banners(context.Context) ([]api.Banner, error) {
	return f.banners, f.bannerErr
}

func (f fakeCatalogAPI) Products(context.Context) ([]api.Product, error) {
	return f.products, f.productErr
}

func product(id, category string) api.Product {
	p := api.Product{ID: api.ID(id), Name: id}
	if category != "" {
		p.Category = &api.Named{Name: category}
	}
	return p
}

func TestGroupByCategoryKeepsFirstAppearanceOrder(t *testing.T) {
	groups := GroupByCategory([]api.Product{
		product("p1", "Shoes"),
		product("p2", "Bags"),
		product("p3", "Shoes"),
		product("p4", ""),
		product("p5", "Bags"),
	})

	if len(groups) != 3 {
		t.Fatalf("expected 3 groups, got %d", len(groups))
	}
	want := []struct {
		name string
		ids  []api.ID
	}{
		{"Shoes", []api.ID{"p1", "p3"}},
		{"Bags", []api.ID{"p2", "p5"}},
		{UncategorizedGroup, []api.ID{"p4"}},
	}
	for i, w := range want {
		g := groups[i]
		if g.Name != w.name || len(g.Products) != len(w.ids) {
			t.Fatalf("group %d = %+v", i, g)
		}
		for j, id := range w.ids {
			if g.Products[j].ID != id {
				t.Fatalf("group %s product %d = %s, want %s", g.Name, j, g.Products[j].ID, id)
			}
		}
	}
}

func TestGroupPreviewKeepsFirstProduct(t *testing.T) {
	g := Group{Name: "Shoes", Products: []api.Product{
		product("p1", "Shoes"),
		product("p2", "Shoes"),
		product("p3", "Shoes"),
	}}
	preview := g.Preview()
	if len(preview) != 1 || preview[0].ID != "p1" {
		t.Fatalf("preview = %+v", preview)
	}
	if len((Group{}).Preview()) != 0 {
		t.Fatalf("empty group preview should be empty")
	}
}

func TestLoadProductsEmptyIsReady(t *testing.T) {
	c := NewCatalog(fakeCatalogAPI{}, Observer{}, NewManualClock(testEpoch))

	res := c.LoadProducts(context.Background())
	if res.State != LoadReady || res.Error != "" || res.Err != nil {
		t.Fatalf("unexpected result %+v", res)
	}
	if res.Products == nil || res.Groups == nil || len(res.Groups) != 0 {
		t.Fatalf("expected empty non-nil lists: %+v", res)
	}
}

func TestLoadProductsFailure(t *testing.T) {
	rec := newRecordingObserver()
	boom := &api.TransportError{Op: "products", Err: errors.New("timeout")}
	c := NewCatalog(fakeCatalogAPI{productErr: boom}, rec.observer(), nil)

	res := c.LoadProducts(context.Background())
	if res.State != LoadFailed || res.Error != MsgProductsFailed || !errors.Is(res.Err, api.ErrTransport) {
		t.Fatalf("unexpected result %+v", res)
	}
	if rec.metrics.Value(metrics.CatalogFetchFailure) != 1 {
		t.Fatalf("failure metric not recorded")
	}
}

func TestLoadBannersFailureIsSilent(t *testing.T) {
	rec := newRecordingObserver()
	c := NewCatalog(fakeCatalogAPI{bannerErr: &api.RejectedError{Op: "banners", Status: 503}}, rec.observer(), nil)

	res := c.LoadBanners(context.Background())
	if res.State != LoadReady || res.Banners == nil || len(res.Banners) != 0 {
		t.Fatalf("unexpected result %+v", res)
	}
	if types := rec.eventTypes(); len(types) != 1 || types[0] != EventCatalogFetch {
		t.Fatalf("events = %v", types)
	}
}

func TestLoadProductsGroups(t *testing.T) {
	c := NewCatalog(fakeCatalogAPI{products: []api.Product{product("p1", "Shoes")}}, Observer{}, nil)
	res := c.LoadProducts(context.Background())
	if res.State != LoadReady || len(res.Groups) != 1 || res.Groups[0].Name != "Shoes" {
		t.Fatalf("unexpected result %+v", res)
	}
}
