package main

import (
	"errors"

	goShop "github.com/MrEthical07/goShop"
	"github.com/MrEthical07/goShop/internal/output"
	"github.com/spf13/cobra"
)

func newWishlistCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wishlist",
		Short: "Manage the wishlist",
	}
	cmd.AddCommand(newWishlistToggleCmd(a))
	return cmd
}

type toggleView struct {
	ProductID string `json:"product_id"`
	InList    bool   `json:"in_wishlist"`
	EntryID   string `json:"entry_id,omitempty"`
}

func newWishlistToggleCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "toggle <product-id>...",
		Short: "Add or remove products, in order",
		Long: `toggle adds each product to the wishlist, or removes it when it was
already added earlier in the same invocation.`,
		Args: withUsage(cobra.MinimumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client, err := a.openClient(ctx, cmd)
			if err != nil {
				return err
			}
			defer client.Close()

			if !client.Session().Authenticated() {
				return &output.CLIError{
					Summary:    "not signed in",
					Suggestion: "run goshop signin first",
					ExitCode:   output.ExitGeneral,
				}
			}

			res, err := client.FetchProducts(ctx)
			if err != nil {
				return err
			}
			if res.State == goShop.LoadFailed {
				return productsError(res)
			}
			byID := make(map[goShop.ID]goShop.Product, len(res.Products))
			for _, p := range res.Products {
				byID[p.ID] = p
			}

			wishlist, err := client.NewWishlist()
			if err != nil {
				return err
			}

			views := make([]toggleView, 0, len(args))
			for _, arg := range args {
				product, ok := byID[goShop.ID(arg)]
				if !ok {
					return usageError("unknown product " + arg)
				}

				in, err := wishlist.Toggle(ctx, product)
				if err != nil {
					var werr *goShop.WishlistError
					if errors.As(err, &werr) {
						return &output.CLIError{Summary: werr.UserMessage(), Detail: err.Error(), ExitCode: output.ExitGeneral}
					}
					return &output.CLIError{Summary: "wishlist update failed", Detail: err.Error(), ExitCode: output.ExitGeneral}
				}

				view := toggleView{ProductID: arg, InList: in}
				if uid, ok := wishlist.EntryID(product.ID); ok {
					view.EntryID = uid.String()
				}
				views = append(views, view)
				if in {
					a.printer.Success("Added %s to the wishlist", product.Name)
				} else {
					a.printer.Success("Removed %s from the wishlist", product.Name)
				}
			}

			if a.jsonOut {
				return a.writeJSON(cmd, views)
			}
			table := output.NewTable(cmd.OutOrStdout(), []string{"Product", "Entry"}, a.printer.IsQuiet())
			for _, e := range wishlist.Entries() {
				table.AddRow(e.ProductID.String(), e.UID.String())
			}
			if table.Len() == 0 {
				a.printer.Info("Wishlist is empty")
				return nil
			}
			return table.Render()
		},
	}
}
