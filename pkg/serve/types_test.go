package serve

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequest_ScanUnmarshal(t *testing.T) {
	input := `{"type":"scan","payload":{"content":"card 4111111111111111","source":"upload:1"}}`

	var req Request
	require.NoError(t, json.Unmarshal([]byte(input), &req))
	assert.Equal(t, TypeScan, req.Type)

	var payload ScanPayload
	require.NoError(t, json.Unmarshal(req.Payload, &payload))
	assert.Equal(t, "card 4111111111111111", payload.Content)
	assert.Equal(t, "upload:1", payload.Source)
}

func TestResponse_OmitsEmpty(t *testing.T) {
	data, err := json.Marshal(Response{Success: true, Type: TypeReady})
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":true,"type":"ready"}`, string(data))
}
