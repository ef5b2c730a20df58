package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/angelmondragon/storefront-backend/internal/storefront"
	"github.com/angelmondragon/storefront-backend/internal/view"
)

// NewCartCommand groups the cart subcommands.
func NewCartCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cart",
		Short: "Inspect and change the cart",
	}
	cmd.AddCommand(
		newCartListCommand(rootOpts),
		newCartAddCommand(rootOpts),
		newCartQuantityCommand(rootOpts),
		newCartRemoveCommand(rootOpts),
		newCartCheckoutCommand(rootOpts),
	)
	return cmd
}

func newCartListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Show the cart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(rootOpts, cmd, func(ctx context.Context, s *storefront.Session) (view.View, error) {
				return s.CartView(), nil
			})
		},
	}
}

func newCartAddCommand(rootOpts *RootOptions) *cobra.Command {
	flags := &itemFlags{}
	var qty int
	cmd := &cobra.Command{
		Use:   "add <product-id>",
		Short: "Add a product to the cart",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			item, err := flags.item(args[0])
			if err != nil {
				return err
			}
			return withSession(rootOpts, cmd, func(ctx context.Context, s *storefront.Session) (view.View, error) {
				return s.AddToCart(ctx, item, qty)
			})
		},
	}
	flags.bind(cmd)
	cmd.Flags().IntVar(&qty, "qty", 1, "units to add")
	return cmd
}

func newCartQuantityCommand(rootOpts *RootOptions) *cobra.Command {
	flags := &keyFlags{}
	var delta, set int
	cmd := &cobra.Command{
		Use:   "qty <product-id>",
		Short: "Change a cart row's quantity with --delta or --set",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			deltaSet, setSet := cmd.Flags().Changed("delta"), cmd.Flags().Changed("set")
			if deltaSet == setSet {
				return errors.New("exactly one of --delta or --set is required")
			}
			key := flags.key(args[0])
			return withSession(rootOpts, cmd, func(ctx context.Context, s *storefront.Session) (view.View, error) {
				if deltaSet {
					return s.ChangeQuantity(ctx, key, delta)
				}
				return s.SetQuantity(ctx, key, set)
			})
		},
	}
	flags.bind(cmd)
	cmd.Flags().IntVar(&delta, "delta", 0, "relative change, e.g. -1")
	cmd.Flags().IntVar(&set, "set", 0, "absolute quantity; below one removes the row")
	return cmd
}

func newCartRemoveCommand(rootOpts *RootOptions) *cobra.Command {
	flags := &keyFlags{}
	cmd := &cobra.Command{
		Use:   "remove <product-id>",
		Short: "Remove a row from the cart",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := flags.key(args[0])
			return withSession(rootOpts, cmd, func(ctx context.Context, s *storefront.Session) (view.View, error) {
				return s.RemoveFromCart(ctx, key)
			})
		},
	}
	flags.bind(cmd)
	return cmd
}

func newCartCheckoutCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "checkout",
		Short: "Check whether the cart can proceed to checkout",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(rootOpts, cmd, func(ctx context.Context, s *storefront.Session) (view.View, error) {
				return s.Checkout(ctx)
			})
		},
	}
}
