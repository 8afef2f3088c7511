package sanitize

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrap_SanitizesResult(t *testing.T) {
	op := func(context.Context) (string, error) {
		return `password: 12345, path: ../secrets/../'nuclear_codes.txt'`, nil
	}

	got, err := Wrap(op)(context.Background())
	require.NoError(t, err)
	assert.Equal(t, `password: ****, path: secrets/\'nuclear_codes.txt\'`, got)
}

func TestWrap_TypedResult(t *testing.T) {
	op := func(context.Context) (map[string]any, error) {
		return map[string]any{"password": "12345", "ok": true}, nil
	}

	got, err := Wrap(op)(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"password": Mask, "ok": true}, got)
}

func TestWrap_StructResult(t *testing.T) {
	type creds struct {
		User     string
		Password string
		Path     string
	}
	op := func(context.Context) (*creds, error) {
		return &creds{User: "bob", Password: "hunter2", Path: "../etc/passwd"}, nil
	}

	got, err := Wrap(op)(context.Background())
	require.NoError(t, err)
	assert.Equal(t, &creds{User: "bob", Password: Mask, Path: "etc/passwd"}, got)

	list := func(context.Context) ([]creds, error) {
		return []creds{{Password: "x"}}, nil
	}
	items, err := Wrap(list)(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Mask, items[0].Password)
}

func TestWrap_PropagatesError(t *testing.T) {
	sentinel := errors.New("upstream failed")
	op := func(context.Context) (map[string]any, error) {
		return map[string]any{"token": "leak"}, sentinel
	}

	got, err := Wrap(op)(context.Background())
	assert.Same(t, sentinel, err)
	assert.Nil(t, got)
}

func TestWrap_PassesContext(t *testing.T) {
	type key struct{}
	ctx := context.WithValue(context.Background(), key{}, "v")

	var seen any
	op := func(ctx context.Context) (int, error) {
		seen = ctx.Value(key{})
		return 7, nil
	}

	got, err := Wrap(op)(ctx)
	require.NoError(t, err)
	assert.Equal(t, 7, got)
	assert.Equal(t, "v", seen)
}
