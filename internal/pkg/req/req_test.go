package req

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"syncroom/internal/pkg/errs"
)

type input struct {
	Name string `json:"name"`
}

func jsonRequest(body string) *http.Request {
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	return r
}

func TestBindJSON(t *testing.T) {
	var dst input
	require.Nil(t, BindJSON(jsonRequest(`{"name":"lobby"}`), &dst))
	assert.Equal(t, "lobby", dst.Name)

	assert.Equal(t, errs.ErrInvalidJSONFormat, BindJSON(jsonRequest(`{"nope":1}`), &dst).Code)
	assert.Equal(t, errs.ErrExtraContentInBody, BindJSON(jsonRequest(`{"name":"a"} {"name":"b"}`), &dst).Code)

	plain := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{}`))
	assert.Equal(t, errs.ErrUnsupportedMediaType, BindJSON(plain, &dst).Code)
}

func TestQueryInt(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/?limit=20&bad=x&big=1000", nil)

	n, err := QueryInt(r, "limit", 50, 1, 200)
	require.Nil(t, err)
	assert.Equal(t, 20, n)

	n, err = QueryInt(r, "missing", 50, 1, 200)
	require.Nil(t, err)
	assert.Equal(t, 50, n)

	_, err = QueryInt(r, "bad", 50, 1, 200)
	assert.NotNil(t, err)

	_, err = QueryInt(r, "big", 50, 1, 200)
	assert.NotNil(t, err)
}
