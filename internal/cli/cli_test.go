package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

func run(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(append([]string{"--dir", dir}, args...))
	err := cmd.Execute()
	return buf.String(), err
}

func TestCartAddPersistsAcrossInvocations(t *testing.T) {
	dir := t.TempDir()

	out, err := run(t, dir, "cart", "add", "P1", "--size", "M", "--name", "Linen Shirt", "--price", "1200", "--original-price", "1500", "--qty", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "Linen Shirt added to cart!")
	assert.Contains(t, out, "20% off")

	out, err = run(t, dir, "cart", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Linen Shirt")
	assert.Contains(t, out, "(2 items)")
}

func TestCartQuantityAndRemove(t *testing.T) {
	dir := t.TempDir()
	_, err := run(t, dir, "cart", "add", "P1", "--name", "Tee", "--price", "499")
	require.NoError(t, err)

	out, err := run(t, dir, "cart", "qty", "P1", "--delta", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "Tee quantity updated")
	assert.Contains(t, out, "(3 items)")

	_, err = run(t, dir, "cart", "qty", "P1")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, ExitCode(err))

	out, err = run(t, dir, "cart", "remove", "P1")
	require.NoError(t, err)
	assert.Contains(t, out, "Tee removed from cart")
	assert.Contains(t, out, "Your cart is empty")
}

func TestCheckoutEmptyCartJSON(t *testing.T) {
	dir := t.TempDir()
	out, err := run(t, dir, "--format", "json", "cart", "checkout")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, ExitCode(err))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "Your cart is empty!", resp.Error.Message)
	require.Len(t, resp.Notifications, 1)
	assert.Equal(t, "Your cart is empty!", resp.Notifications[0].Message)
}

func TestWishlistMoveToCart(t *testing.T) {
	dir := t.TempDir()
	out, err := run(t, dir, "wishlist", "toggle", "W1", "--name", "Silk Scarf", "--price", "800")
	require.NoError(t, err)
	assert.Contains(t, out, "Added to wishlist!")

	out, err = run(t, dir, "--format", "json", "wishlist", "move", "W1")
	require.NoError(t, err)
	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.NotNil(t, resp.View)
	assert.EqualValues(t, "cart", resp.View.Kind)
	assert.Equal(t, 1, resp.View.TotalItems)

	out, err = run(t, dir, "wishlist", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Your wishlist is empty")
}

func TestSessionsAreIsolated(t *testing.T) {
	dir := t.TempDir()
	_, err := run(t, dir, "--session", "a", "cart", "add", "P1", "--price", "10")
	require.NoError(t, err)

	out, err := run(t, dir, "--session", "b", "cart", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Your cart is empty")
}

func TestInvalidFlags(t *testing.T) {
	dir := t.TempDir()
	_, err := run(t, dir, "--format", "yaml", "cart", "list")
	require.Error(t, err)

	_, err = run(t, dir, "cart", "add", "P1", "--price", "abc")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, ExitCode(err))
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, ExitSuccess, ExitCode(nil))
	assert.Equal(t, ExitFailure, ExitCode(pkgerrors.New(pkgerrors.CodeValidation, "nope")))
	assert.Equal(t, ExitCommandError, ExitCode(errors.New("flag")))
}
