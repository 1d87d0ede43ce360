package format

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type rows [][]string

func (rows) Header() []string    { return []string{"ID", "NAME"} }
func (r rows) Rows() [][]string { return r }

func TestWriteJSONEnvelope(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, Envelope{Data: map[string]int{"n": 1}}, "", false))
	assert.Equal(t, "{\"data\":{\"n\":1}}\n", buf.String())
}

func TestWriteTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, Envelope{Data: rows{{"p1", "Novel"}}}, "table", false))
	out := buf.String()
	assert.Contains(t, out, "NAME")
	assert.Contains(t, out, "Novel")

	buf.Reset()
	require.NoError(t, Write(&buf, Envelope{Data: rows{}}, "table", false))
	assert.Equal(t, "(none)", strings.TrimSpace(buf.String()))
}

func TestTableFallsBackToJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, Envelope{Data: "ok"}, "table", false))
	assert.Contains(t, buf.String(), `"data": "ok"`)
}

func TestUnknownFormat(t *testing.T) {
	assert.Error(t, Write(&bytes.Buffer{}, Envelope{}, "edn", false))
}
