package apierror

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func response(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func TestCheck(t *testing.T) {
	t.Parallel()

	t.Run("accepted status", func(t *testing.T) {
		require.NoError(t, Check(response(http.StatusCreated, "{}"), http.StatusOK, http.StatusCreated))
	})

	t.Run("vimeo error body", func(t *testing.T) {
		err := Check(response(http.StatusUnauthorized, `{
			"error": "You must provide a valid authenticated access token.",
			"developer_message": "Bearer token missing.",
			"error_code": 8003,
			"link": "https://developer.vimeo.com/api/authentication"
		}`), http.StatusOK)

		var apiErr *Error
		require.True(t, errors.As(err, &apiErr))
		require.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
		require.Equal(t, 8003, apiErr.Code)
		require.Equal(t, "Bearer token missing.", apiErr.DeveloperMessage)
		require.True(t, apiErr.Unauthorized())
		require.False(t, apiErr.Throttled())
		require.Contains(t, err.Error(), "[code 8003]")
	})

	t.Run("non-json body falls back to status text", func(t *testing.T) {
		err := Check(response(http.StatusTooManyRequests, "<html>slow down</html>"), http.StatusOK)

		var apiErr *Error
		require.True(t, errors.As(err, &apiErr))
		require.Equal(t, "Too Many Requests", apiErr.Message)
		require.True(t, apiErr.Throttled())
		require.Equal(t, "vimeo api error 429: Too Many Requests", err.Error())
	})

	t.Run("empty body", func(t *testing.T) {
		apiErr := FromResponse(response(http.StatusBadGateway, ""))
		require.Equal(t, "Bad Gateway", apiErr.Message)
	})
}
