package response

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChainStatus(t *testing.T) {
	t.Parallel()

	resp := FromStatus(http.StatusOK)

	assert.True(t, Filter(resp).Status(http.StatusOK).Live())
	assert.False(t, Filter(resp).Status(http.StatusInternalServerError).Live())
}

func TestChainStatusClasses(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		code   int
		accept func(Chain) Chain
		reject func(Chain) Chain
	}{
		{
			name:   "informational",
			code:   http.StatusContinue,
			accept: Chain.Informational,
			reject: Chain.Success,
		},
		{
			name:   "success",
			code:   http.StatusNoContent,
			accept: Chain.Success,
			reject: Chain.ClientError,
		},
		{
			name:   "redirection",
			code:   http.StatusFound,
			accept: Chain.Redirection,
			reject: Chain.ServerError,
		},
		{
			name:   "client error",
			code:   http.StatusTeapot,
			accept: Chain.ClientError,
			reject: Chain.Informational,
		},
		{
			name:   "server error",
			code:   http.StatusBadGateway,
			accept: Chain.ServerError,
			reject: Chain.Redirection,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			resp := FromStatus(tt.code)
			assert.True(t, tt.accept(Filter(resp)).Live())
			assert.False(t, tt.reject(Filter(resp)).Live())
		})
	}
}

func TestChainHeader(t *testing.T) {
	t.Parallel()

	resp := FromStatus(http.StatusOK)
	resp.Header.Set("Content-Type", "application/json")

	assert.True(t, Filter(resp).Header("Content-Type", "application/json").Live())
	assert.True(t, Filter(resp).Header("content-type", "application/{}").Live())
	assert.True(t, Filter(resp).Header("{}", "application/json").Live())
	assert.False(t, Filter(resp).Header("Content-Type", "text/html").Live())
	assert.False(t, Filter(resp).Header("X-Missing", "{}").Live())
}

func TestChainCustomShortCircuit(t *testing.T) {
	t.Parallel()

	resp := FromStatus(http.StatusOK)

	invoked := false
	c := Filter(resp).Status(http.StatusNotFound).Custom(func(*http.Response) bool {
		invoked = true
		return true
	})

	assert.False(t, c.Live())
	assert.False(t, invoked, "predicates after a failure must not run")
}

func TestChainResponseAccessor(t *testing.T) {
	t.Parallel()

	resp := FromStatus(http.StatusOK)

	got, ok := Filter(resp).Success().Response()
	require.True(t, ok)
	assert.Same(t, resp, got)

	got, ok = Filter(resp).ServerError().Response()
	assert.False(t, ok)
	assert.Nil(t, got)
}

func TestChainAndThen(t *testing.T) {
	t.Parallel()

	resp := FromStatus(http.StatusTeapot)

	code, ok := AndThen(Filter(resp).ClientError(), func(r *http.Response) int {
		return r.StatusCode
	})
	require.True(t, ok)
	assert.Equal(t, http.StatusTeapot, code)

	_, ok = AndThen(Filter(resp).Success(), func(*http.Response) int {
		t.Fatal("must not run on a disqualified chain")
		return 0
	})
	assert.False(t, ok)
}
