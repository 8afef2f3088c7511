package sanitize

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type issue struct {
	Number int      `json:"number"`
	Title  string   `json:"title"`
	Body   *string  `json:"body,omitempty"`
	Labels []string `json:"labels"`
	Token  string   `json:"token"`
}

func TestNormalize(t *testing.T) {
	body := "see ../docs"
	tree, err := Normalize(issue{Number: 9007199254740993, Title: "t", Body: &body, Labels: []string{"bug"}})
	require.NoError(t, err)

	m, ok := tree.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, json.Number("9007199254740993"), m["number"], "large integers keep full precision")
	assert.Equal(t, "see ../docs", m["body"])
	assert.Equal(t, []any{"bug"}, m["labels"])
}

func TestNormalize_Unsupported(t *testing.T) {
	_, err := Normalize(make(chan int))
	assert.Error(t, err)
}

func TestTree(t *testing.T) {
	body := "it's at ../docs"
	got, err := Tree([]issue{{Number: 1, Title: `"quoted"`, Body: &body, Token: "ghp_x"}})
	require.NoError(t, err)

	assert.Equal(t, []any{
		map[string]any{
			"number": json.Number("1"),
			"title":  `\"quoted\"`,
			"body":   `it\'s at docs`,
			"labels": nil,
			"token":  Mask,
		},
	}, got)
}
