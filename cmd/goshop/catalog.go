package main

import (
	"fmt"
	"strings"

	goShop "github.com/MrEthical07/goShop"
	"github.com/MrEthical07/goShop/internal/output"
	"github.com/spf13/cobra"
)

func newProductsCmd(a *app) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "products",
		Short: "List products grouped by category",
		Args:  withUsage(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client, err := a.openClient(ctx, cmd)
			if err != nil {
				return err
			}
			defer client.Close()

			res, err := client.FetchProducts(ctx)
			if err != nil {
				return err
			}
			if res.State == goShop.LoadFailed {
				return productsError(res)
			}
			if a.jsonOut {
				return a.writeJSON(cmd, res.Products)
			}
			return a.renderProducts(cmd, res, all)
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "show every product instead of a preview per category")
	return cmd
}

func newBannersCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "banners",
		Short: "List the promotional banners",
		Args:  withUsage(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client, err := a.openClient(ctx, cmd)
			if err != nil {
				return err
			}
			defer client.Close()

			res, err := client.FetchBanners(ctx)
			if err != nil {
				return err
			}
			if a.jsonOut {
				return a.writeJSON(cmd, res.Banners)
			}
			return a.renderBanners(cmd, res)
		},
	}
}

type homeView struct {
	Banners  []goShop.Banner  `json:"banners"`
	Products []goShop.Product `json:"products"`
	Error    string           `json:"error,omitempty"`
}

func newHomeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "home",
		Short: "Fetch banners and products concurrently",
		Args:  withUsage(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client, err := a.openClient(ctx, cmd)
			if err != nil {
				return err
			}
			defer client.Close()

			sf, err := client.FetchStorefront(ctx)
			if err != nil {
				return err
			}
			if a.jsonOut {
				return a.writeJSON(cmd, homeView{
					Banners:  sf.Banners.Banners,
					Products: sf.Products.Products,
					Error:    sf.Products.Error,
				})
			}

			if sess := client.Session(); sess.Authenticated() {
				a.printer.Info("Welcome back, %s", displayName(sess))
			}
			if err := a.renderBanners(cmd, sf.Banners); err != nil {
				return err
			}
			if sf.Products.State == goShop.LoadFailed {
				return productsError(sf.Products)
			}
			return a.renderProducts(cmd, sf.Products, false)
		},
	}
}

func productsError(res goShop.ProductResult) error {
	detail := ""
	if res.Err != nil {
		detail = res.Err.Error()
	}
	return &output.CLIError{Summary: res.Error, Detail: detail, ExitCode: output.ExitGeneral}
}

func (a *app) renderProducts(cmd *cobra.Command, res goShop.ProductResult, all bool) error {
	if len(res.Products) == 0 {
		a.printer.Info("No products available")
		return nil
	}
	for _, group := range res.Groups {
		a.printer.Header(group.Name)
		products := group.Products
		if !all {
			products = group.Preview()
		}
		table := output.NewTable(cmd.OutOrStdout(), []string{"ID", "Name", "Price", "Image"}, a.printer.IsQuiet())
		for _, p := range products {
			table.AddRow(p.ID.String(), p.Name, p.Price.String(), p.PrimaryImage())
		}
		if err := table.Render(); err != nil {
			return err
		}
		if hidden := len(group.Products) - len(products); hidden > 0 {
			a.printer.Print("%s", a.printer.Dim(fmt.Sprintf("… and %d more (use --all)", hidden)))
		}
	}
	return nil
}

func (a *app) renderBanners(cmd *cobra.Command, res goShop.BannerResult) error {
	a.printer.Header("Banners")
	if len(res.Banners) == 0 {
		a.printer.Print("%s", a.printer.Dim("none"))
		return nil
	}
	table := output.NewTable(cmd.OutOrStdout(), []string{"ID", "Title", "Discount", "Runs", "Link"}, a.printer.IsQuiet())
	for _, b := range res.Banners {
		table.AddRow(b.ID.String(), b.Title, b.Discount.String(), bannerWindow(b), b.LinkURL)
	}
	return table.Render()
}

func bannerWindow(b goShop.Banner) string {
	if b.StartDate == "" && b.EndDate == "" {
		return ""
	}
	return strings.TrimSpace(b.StartDate + " → " + b.EndDate)
}
