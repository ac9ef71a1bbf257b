package transport_test

import (
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/authclient/pkg/transport"
)

type oneShotReader struct {
	r    *strings.Reader
	read bool
}

func (o *oneShotReader) Read(p []byte) (int, error) {
	o.read = true
	return o.r.Read(p)
}

func TestNewRequest_CapturesBody(t *testing.T) {
	t.Parallel()

	src := &oneShotReader{r: strings.NewReader("payload")}
	req, err := transport.NewRequest(http.MethodPost, "/api/users/addresses", src)
	require.NoError(t, err)
	assert.True(t, src.read, "body must be consumed at construction time")

	assert.Equal(t, []byte("payload"), req.Body())
	assert.Equal(t, []byte("payload"), req.Retry().Body(), "replay carries the same body")

	body := req.Body()
	body[0] = 'X'
	assert.Equal(t, []byte("payload"), req.Body(), "Body returns a copy")
}

func TestNewRequest_Defaults(t *testing.T) {
	t.Parallel()

	req, err := transport.NewRequest("", "/api/users/me?x=1", nil)
	require.NoError(t, err)
	assert.Equal(t, http.MethodGet, req.Method())
	assert.Equal(t, "/api/users/me", req.Path())
	assert.Nil(t, req.Body())

	_, err = transport.NewRequest(http.MethodGet, "", nil)
	assert.ErrorIs(t, err, transport.ErrInvalidRequest)
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("broken pipe") }

func TestNewRequest_UnreadableBody(t *testing.T) {
	t.Parallel()

	_, err := transport.NewRequest(http.MethodPost, "/x", failingReader{})
	assert.ErrorIs(t, err, transport.ErrInvalidRequest)
}

func TestRequest_RetryIsCopy(t *testing.T) {
	t.Parallel()

	original, err := transport.NewJSONRequest(http.MethodPost, "http://api.local/api/users/addresses", map[string]string{"city": "Almaty"})
	require.NoError(t, err)

	replay := original.Retry()
	assert.True(t, replay.Retried())
	assert.False(t, original.Retried(), "original descriptor must not be mutated")
	assert.True(t, replay.Retry().Retried(), "flag never resets")

	withHeader := replay.WithHeader("X-Trace", "1")
	assert.Empty(t, replay.Header().Get("X-Trace"))
	assert.Equal(t, "1", withHeader.Header().Get("X-Trace"))
	assert.Equal(t, "application/json", withHeader.Header().Get("Content-Type"))
	assert.Equal(t, "/api/users/addresses", withHeader.Path())
}

func TestResponse_DecodeJSON(t *testing.T) {
	t.Parallel()

	var dst struct{ A int }
	require.NoError(t, (&transport.Response{}).DecodeJSON(&dst))

	err := (&transport.Response{Body: []byte("not json")}).DecodeJSON(&dst)
	assert.ErrorIs(t, err, transport.ErrDecodeResponse)
}
