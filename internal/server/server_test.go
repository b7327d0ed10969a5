package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/congo-pay/pdavault/internal/config"
	"github.com/congo-pay/pdavault/internal/infra"
	"github.com/congo-pay/pdavault/internal/logging"
	"github.com/congo-pay/pdavault/internal/pubkey"
)

func TestServerRendersJSONErrors(t *testing.T) {
	cfg := config.Config{
		AppName:         "pdavault-test",
		AppEnv:          "development",
		ProgramID:       pubkey.MustParse("A9Lef4z6JBNzZoaQJT722eVuJR8GK5WqSLmgbNaJsacX"),
		AccountSeed:     "user_account",
		SignatureMaxAge: time.Minute,
	}
	srv, err := New(cfg, &infra.Backends{}, logging.Discard())
	require.NoError(t, err)

	resp, err := srv.App().Test(httptest.NewRequest(http.MethodGet, "/api/v1/unknown", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var body map[string]string
	require.NoError(t, json.Unmarshal(raw, &body))
	require.Equal(t, "not_found", body["error"])
	require.NotEmpty(t, body["message"])
}
