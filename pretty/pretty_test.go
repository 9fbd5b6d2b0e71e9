package pretty

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrefixPrettyWriter(t *testing.T) {
	var buf bytes.Buffer
	err := PrefixPrettyWriter(&buf, "result", struct {
		Trigger string
		Reaped  bool
	}{Trigger: "saved", Reaped: true})
	require.NoError(t, err)
	assert.Equal(t, "result: {\n  \"Trigger\": \"saved\",\n  \"Reaped\": true\n}\n", buf.String())
}
