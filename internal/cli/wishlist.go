package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/angelmondragon/storefront-backend/internal/lineitem"
	"github.com/angelmondragon/storefront-backend/internal/storefront"
	"github.com/angelmondragon/storefront-backend/internal/view"
)

// NewWishlistCommand groups the wishlist subcommands.
func NewWishlistCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wishlist",
		Short: "Inspect and change the wishlist",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "Show the wishlist",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return withSession(rootOpts, cmd, func(ctx context.Context, s *storefront.Session) (view.View, error) {
					return s.WishlistView(), nil
				})
			},
		},
		newWishlistItemCommand(rootOpts, "add", "Add a product to the wishlist", (*storefront.Session).AddToWishlist),
		newWishlistItemCommand(rootOpts, "toggle", "Add a product, or remove it if already wishlisted", (*storefront.Session).ToggleWishlist),
		newWishlistKeyCommand(rootOpts, "remove", "Remove a product from the wishlist", (*storefront.Session).RemoveFromWishlist),
		newWishlistKeyCommand(rootOpts, "move", "Move a wishlisted product into the cart", (*storefront.Session).MoveToCart),
		&cobra.Command{
			Use:   "move-all",
			Short: "Move every wishlisted product into the cart",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return withSession(rootOpts, cmd, func(ctx context.Context, s *storefront.Session) (view.View, error) {
					return s.MoveAllToCart(ctx)
				})
			},
		},
	)
	return cmd
}

func newWishlistItemCommand(rootOpts *RootOptions, use, short string, op func(*storefront.Session, context.Context, lineitem.LineItem) (view.View, error)) *cobra.Command {
	flags := &itemFlags{}
	cmd := &cobra.Command{
		Use:   use + " <product-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			item, err := flags.item(args[0])
			if err != nil {
				return err
			}
			return withSession(rootOpts, cmd, func(ctx context.Context, s *storefront.Session) (view.View, error) {
				return op(s, ctx, item)
			})
		},
	}
	flags.bind(cmd)
	return cmd
}

func newWishlistKeyCommand(rootOpts *RootOptions, use, short string, op func(*storefront.Session, context.Context, lineitem.Key) (view.View, error)) *cobra.Command {
	flags := &keyFlags{}
	cmd := &cobra.Command{
		Use:   use + " <product-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := flags.key(args[0])
			return withSession(rootOpts, cmd, func(ctx context.Context, s *storefront.Session) (view.View, error) {
				return op(s, ctx, key)
			})
		},
	}
	flags.bind(cmd)
	return cmd
}
