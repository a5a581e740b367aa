package api

import (
	"encoding/json"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

const bonkMint = "DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263"

func decodeResponse(t *testing.T, resp io.ReadCloser) map[string]interface{} {
	t.Helper()
	body, err := io.ReadAll(resp)
	require.NoError(t, err)
	var result map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &result))
	return result
}

// signup registers a user and returns its session token.
func signup(t *testing.T, env *Env, username string) string {
	t.Helper()
	resp, err := env.HTTPPost("/api/auth", map[string]string{
		"action":   "signup",
		"username": username,
		"password": "hunter22",
	})
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	data := decodeResponse(t, resp.Body)["data"].(map[string]interface{})
	token, ok := data["token"].(string)
	require.True(t, ok, "expected token in response")
	return token
}
