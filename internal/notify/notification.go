package notify

import (
	"encoding/json"
	"time"
)

// Kind is the semantic event a notification reports.
type Kind string

const (
	KindItemAdded         Kind = "item-added"
	KindItemRemoved       Kind = "item-removed"
	KindQuantityChanged   Kind = "quantity-changed"
	KindCheckoutBlocked   Kind = "checkout-blocked-empty-cart"
	KindItemMoved         Kind = "item-moved"
	KindCheckoutReady     Kind = "checkout-ready"
	KindRemoteUnavailable Kind = "remote-unavailable"
	KindOperationFailed   Kind = "operation-failed"
)

// Level tells the collaborator how prominently to display a notification.
type Level string

const (
	LevelInfo  Level = "info"
	LevelSoft  Level = "soft"
	LevelError Level = "error"
)

// DefaultDismissAfter is the auto-hide timeout used when none is configured.
const DefaultDismissAfter = 3 * time.Second

// Notification is a transient, user-facing confirmation.
type Notification struct {
	Kind         Kind
	Message      string
	Level        Level
	DismissAfter time.Duration
}

type notificationJSON struct {
	Kind           Kind   `json:"kind"`
	Message        string `json:"message"`
	Level          Level  `json:"level"`
	DismissAfterMS int64  `json:"dismiss_after_ms"`
}

func (n Notification) MarshalJSON() ([]byte, error) {
	return json.Marshal(notificationJSON{
		Kind:           n.Kind,
		Message:        n.Message,
		Level:          n.Level,
		DismissAfterMS: n.DismissAfter.Milliseconds(),
	})
}

func (n *Notification) UnmarshalJSON(data []byte) error {
	var raw notificationJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	n.Kind = raw.Kind
	n.Message = raw.Message
	n.Level = raw.Level
	n.DismissAfter = time.Duration(raw.DismissAfterMS) * time.Millisecond
	return nil
}

func ItemAdded(name string) Notification {
	return info(KindItemAdded, name+" added to cart!")
}

func CartQuantityUpdated(name string) Notification {
	return info(KindQuantityChanged, name+" quantity updated in cart!")
}

func QuantityChanged(name string) Notification {
	return info(KindQuantityChanged, name+" quantity updated")
}

func ItemRemoved(name string) Notification {
	return info(KindItemRemoved, name+" removed from cart")
}

func WishlistAdded() Notification {
	return info(KindItemAdded, "Added to wishlist!")
}

func WishlistRemoved() Notification {
	return info(KindItemRemoved, "Removed from wishlist")
}

func ItemMoved(name string) Notification {
	return info(KindItemMoved, name+" moved to cart")
}

func AllMoved() Notification {
	return info(KindItemMoved, "All items moved to cart")
}

func CheckoutBlocked() Notification {
	return Notification{Kind: KindCheckoutBlocked, Message: "Your cart is empty!", Level: LevelError}
}

func CheckoutReady() Notification {
	return info(KindCheckoutReady, "Redirecting to checkout...")
}

func RemoteUnavailable() Notification {
	return Notification{
		Kind:    KindRemoteUnavailable,
		Message: "Couldn't reach your account. Changes are saved on this device.",
		Level:   LevelSoft,
	}
}

func OperationFailed() Notification {
	return Notification{Kind: KindOperationFailed, Message: "Something went wrong. Please try again.", Level: LevelError}
}

func info(kind Kind, message string) Notification {
	return Notification{Kind: kind, Message: message, Level: LevelInfo}
}
