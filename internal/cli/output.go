package cli

import (
	"encoding/json"
	"io"

	"github.com/angelmondragon/storefront-backend/internal/notify"
	"github.com/angelmondragon/storefront-backend/internal/view"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

// Exit codes for cartctl.
const (
	ExitSuccess      = 0
	ExitFailure      = 1 // the operation was rejected, e.g. an empty cart at checkout
	ExitCommandError = 2 // bad flags or an unusable slot directory
)

// ExitCode maps an error to the process exit status.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitSuccess
	case pkgerrors.As(err) != nil:
		return ExitFailure
	default:
		return ExitCommandError
	}
}

// OutputFormatter renders a view plus its notifications as text or JSON.
type OutputFormatter struct {
	Format string
	Writer io.Writer
}

// CLIResponse is the JSON shape cartctl prints.
type CLIResponse struct {
	Status        string                `json:"status"`
	View          *view.View            `json:"view,omitempty"`
	Notifications []notify.Notification `json:"notifications"`
	Error         *CLIError             `json:"error,omitempty"`
}

type CLIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (f *OutputFormatter) Write(v view.View, notifications []notify.Notification, opErr error) error {
	if f.Format == "json" {
		return f.writeJSON(v, notifications, opErr)
	}
	f.writeText(v, notifications, opErr)
	return nil
}

func (f *OutputFormatter) writeJSON(v view.View, notifications []notify.Notification, opErr error) error {
	resp := CLIResponse{Status: "ok", Notifications: notifications}
	if resp.Notifications == nil {
		resp.Notifications = []notify.Notification{}
	}
	if opErr != nil {
		resp.Status = "error"
		resp.Error = &CLIError{Code: string(pkgerrors.CodeOf(opErr)), Message: errorMessage(opErr)}
	} else {
		resp.View = &v
	}
	enc := json.NewEncoder(f.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}

func (f *OutputFormatter) writeText(v view.View, notifications []notify.Notification, opErr error) {
	for _, n := range notifications {
		writef(f.Writer, "» %s\n", n.Message)
	}
	if opErr != nil {
		writef(f.Writer, "error: %s\n", errorMessage(opErr))
		return
	}

	if v.Empty {
		writef(f.Writer, "Your %s is empty\n", v.Kind)
		return
	}
	writef(f.Writer, "%s %s\n", v.Kind, v.CountBadge)
	for _, r := range v.Rows {
		variant := r.Size
		if r.Color != "" {
			if variant != "" {
				variant += "/"
			}
			variant += r.Color
		}
		writef(f.Writer, "  %-14s %-10s %-24s x%-3d %s", r.ProductID, variant, r.Name, r.Quantity, r.LineTotalFormatted)
		if r.DiscountLabel != "" {
			writef(f.Writer, "  (%s, was %s)", r.DiscountLabel, r.OriginalPriceFormatted)
		}
		writef(f.Writer, "\n")
	}
	writef(f.Writer, "Total: %s\n", v.TotalFormatted)
}

func errorMessage(err error) string {
	if typed := pkgerrors.As(err); typed != nil && typed.Message() != "" {
		return typed.Message()
	}
	return err.Error()
}
