package cli

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

// jsonResponse mirrors CLIResponse with the payload left undecoded.
type jsonResponse struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data"`
	Error  *CLIError       `json:"error"`
}

// decodeResponse parses a JSON CLI response and decodes its data into out
// when out is non-nil.
func decodeResponse(t *testing.T, buf *bytes.Buffer, out any) jsonResponse {
	t.Helper()
	var resp jsonResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp), "output: %s", buf.String())
	if out != nil {
		require.NotEmpty(t, resp.Data)
		require.NoError(t, json.Unmarshal(resp.Data, out))
	}
	return resp
}
