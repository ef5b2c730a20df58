package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/angelmondragon/storefront-backend/internal/notify"
	"github.com/angelmondragon/storefront-backend/internal/persistence"
	"github.com/angelmondragon/storefront-backend/internal/storefront"
	"github.com/angelmondragon/storefront-backend/internal/view"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Dir       string
	SessionID string
	Namespace string
	Format    string // "json" | "text"
	Verbose   bool
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the cartctl root command.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "cartctl",
		Short: "Manage a device-local cart and wishlist",
		Long:  "Drives the storefront cart and wishlist against an on-disk slot, the same way an anonymous shopper's device does.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true, // operation errors are rendered by the output formatter
	}

	cmd.PersistentFlags().StringVar(&opts.Dir, "dir", ".storefront", "directory holding the local slot files")
	cmd.PersistentFlags().StringVar(&opts.SessionID, "session", "cli", "session id that owns the collections")
	cmd.PersistentFlags().StringVar(&opts.Namespace, "namespace", "aabhira", "slot key namespace")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "log persistence activity to stderr")

	cmd.AddCommand(NewCartCommand(opts))
	cmd.AddCommand(NewWishlistCommand(opts))

	return cmd
}

func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

type sessionOp func(ctx context.Context, s *storefront.Session) (view.View, error)

// withSession opens the local session, runs op, flushes and prints the result.
func withSession(opts *RootOptions, cmd *cobra.Command, op sessionOp) error {
	logg := logger.Nop()
	if opts.Verbose {
		logg = logger.New(logger.Options{ServiceName: "cartctl", Output: cmd.ErrOrStderr()})
	}

	slot, err := persistence.NewFileSlot(opts.Dir)
	if err != nil {
		return err
	}
	manager, err := storefront.NewManager(storefront.Config{
		Backend: &storefront.Backend{
			Namespace:     opts.Namespace,
			Slot:          slot,
			SaveAttempts:  1,
			SaveBaseDelay: 10 * time.Millisecond,
		},
		Logger: logg,
	})
	if err != nil {
		return err
	}

	ctx, rec := notify.WithRecorder(cmd.Context())
	s, err := manager.Session(ctx, opts.SessionID, persistence.Identity{})
	if err != nil {
		_ = manager.Close(ctx)
		return err
	}

	v, opErr := op(ctx, s)
	if cerr := manager.Close(ctx); cerr != nil && opErr == nil {
		opErr = cerr
	}

	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	if werr := out.Write(v, rec.Drain(), opErr); werr != nil {
		return werr
	}
	return opErr
}

func writef(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}
