package format

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	ID      int64     `json:"id" yaml:"id"`
	Root    string    `json:"root" yaml:"root"`
	Created time.Time `json:"created" yaml:"created"`
}

func TestJSONFormatter(t *testing.T) {
	var buf bytes.Buffer
	payload := sample{ID: 1, Root: "/data", Created: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)}
	require.NoError(t, (JSONFormatter{}).Write(&buf, payload))
	assert.Equal(t, `{"id":1,"root":"/data","created":"2026-01-02T03:04:05Z"}`+"\n", buf.String())
}

func TestYAMLFormatter(t *testing.T) {
	var buf bytes.Buffer
	payload := []sample{{ID: 1, Root: "/data", Created: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)}}
	require.NoError(t, (YAMLFormatter{}).Write(&buf, payload))

	out := buf.String()
	for _, want := range []string{"- id: 1\n", "  root: /data\n", "  created: 2026-01-02T03:04:05Z\n"} {
		assert.Contains(t, out, want)
	}
}

func TestByName(t *testing.T) {
	for _, name := range []string{"json", "YAML", "yml"} {
		_, err := ByName(name)
		assert.NoError(t, err, name)
	}
	_, err := ByName("xml")
	assert.Error(t, err)
}
