package form

import (
	"bytes"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-urlfetch/urlfetch/internal/errs"
)

func TestValues(t *testing.T) {
	vs, ok := Values(nil)
	require.True(t, ok)
	assert.Empty(t, vs)

	vs, ok = Values(url.Values{"a": {"1"}})
	require.True(t, ok)
	assert.Equal(t, url.Values{"a": {"1"}}, vs)

	vs, ok = Values(map[string][]string{"a": {"1", "2"}})
	require.True(t, ok)
	assert.Equal(t, url.Values{"a": {"1", "2"}}, vs)

	vs, ok = Values(map[string]string{"a": "1"})
	require.True(t, ok)
	assert.Equal(t, url.Values{"a": {"1"}}, vs)

	_, ok = Values(42)
	assert.False(t, ok)
}

func TestEncodeValuesSorted(t *testing.T) {
	got := EncodeValues(url.Values{"b": {"2"}, "a": {"1"}, "c": {"x y"}})
	assert.Equal(t, "a=1&b=2&c=x+y", got)
}

type parsedPart struct {
	field, filename, mediaType, content string
}

// parseBack runs the encoded body through the standard multipart parser
// so the framing is checked by an independent implementation.
func parseBack(t *testing.T, contentType string, body []byte) []parsedPart {
	t.Helper()
	mt, params, err := mime.ParseMediaType(contentType)
	require.NoError(t, err)
	require.Equal(t, "multipart/form-data", mt)
	mr := multipart.NewReader(bytes.NewReader(body), params["boundary"])

	var parts []parsedPart
	for {
		p, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		content, err := io.ReadAll(p)
		require.NoError(t, err)
		parts = append(parts, parsedPart{
			field:     p.FormName(),
			filename:  p.FileName(),
			mediaType: p.Header.Get("Content-Type"),
			content:   string(content),
		})
	}
	return parts
}

func TestEncodeMultipart(t *testing.T) {
	ct, body, err := EncodeMultipart(
		url.Values{"beta": {"2"}, "alpha": {"1"}},
		map[string]File{"upload": FileString("note.txt", "hello file")},
	)
	require.NoError(t, err)

	parts := parseBack(t, ct, body)
	require.Len(t, parts, 3)

	// scalar fields come first, sorted by name
	assert.Equal(t, "alpha", parts[0].field)
	assert.Equal(t, "1", parts[0].content)
	assert.Equal(t, "text/plain", parts[0].mediaType)
	assert.Equal(t, "beta", parts[1].field)

	assert.Equal(t, "upload", parts[2].field)
	assert.Equal(t, "note.txt", parts[2].filename)
	assert.Equal(t, "application/octet-stream", parts[2].mediaType)
	assert.Equal(t, "hello file", parts[2].content)
}

func TestEncodeMultipartRepeatedValues(t *testing.T) {
	ct, body, err := EncodeMultipart(url.Values{"k": {"a", "b"}}, nil)
	require.NoError(t, err)
	parts := parseBack(t, ct, body)
	require.Len(t, parts, 2)
	assert.Equal(t, "a", parts[0].content)
	assert.Equal(t, "b", parts[1].content)
}

func TestEncodeMultipartReaderFile(t *testing.T) {
	ct, body, err := EncodeMultipart(nil, map[string]File{
		"f": FileReader("data.bin", strings.NewReader("streamed")),
	})
	require.NoError(t, err)
	parts := parseBack(t, ct, body)
	require.Len(t, parts, 1)
	assert.Equal(t, "data.bin", parts[0].filename)
	assert.Equal(t, "streamed", parts[0].content)
}

func TestEncodeMultipartNameFromOSFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.csv")
	require.NoError(t, os.WriteFile(path, []byte("a,b\n"), 0o644))
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	ct, body, err := EncodeMultipart(nil, map[string]File{"f": {Reader: f}})
	require.NoError(t, err)
	parts := parseBack(t, ct, body)
	require.Len(t, parts, 1)
	assert.Equal(t, "report.csv", parts[0].filename)
	assert.Equal(t, "a,b\n", parts[0].content)
}

func TestEncodeMultipartMissingName(t *testing.T) {
	_, _, err := EncodeMultipart(nil, map[string]File{
		"f": {Reader: strings.NewReader("anonymous")},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrFileUpload))
}

func TestBoundaryUnique(t *testing.T) {
	ct1, _, err := EncodeMultipart(url.Values{"a": {"1"}}, nil)
	require.NoError(t, err)
	ct2, _, err := EncodeMultipart(url.Values{"a": {"1"}}, nil)
	require.NoError(t, err)
	assert.NotEqual(t, ct1, ct2)

	_, params, err := mime.ParseMediaType(ct1)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(params["boundary"], "urlfetch."))
}
