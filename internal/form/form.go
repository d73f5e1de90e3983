// Package form encodes request bodies: application/x-www-form-urlencoded
// values and multipart/form-data uploads.
package form

import (
	"bytes"
	"encoding/hex"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"

	"github.com/google/uuid"

	"github.com/go-urlfetch/urlfetch/internal/errs"
)

// File is one upload. Exactly one of Content or Reader carries the data;
// Name may be left empty when Reader can report its own (an *os.File
// does). Encoding fails when no filename can be determined.
type File struct {
	Name    string
	Content []byte
	Reader  io.Reader
}

// FileBytes builds an upload from in-memory content.
func FileBytes(name string, content []byte) File {
	return File{Name: name, Content: content}
}

// FileString builds an upload from string content.
func FileString(name, content string) File {
	return File{Name: name, Content: []byte(content)}
}

// FileReader builds an upload drained from r at encode time.
func FileReader(name string, r io.Reader) File {
	return File{Name: name, Reader: r}
}

func (f File) resolve() (name string, content []byte, err error) {
	name = f.Name
	if name == "" {
		if n, ok := f.Reader.(interface{ Name() string }); ok {
			name = filepath.Base(n.Name())
		}
	}
	if name == "" {
		return "", nil, errs.Wrapf(errs.ErrFileUpload, "file must have a filename")
	}
	content = f.Content
	if content == nil && f.Reader != nil {
		if content, err = io.ReadAll(f.Reader); err != nil {
			return "", nil, errs.Wrap(errs.ErrFileUpload, err)
		}
	}
	return name, content, nil
}

// Values converts the accepted parameter/data map shapes to url.Values.
func Values(v interface{}) (url.Values, bool) {
	switch d := v.(type) {
	case nil:
		return url.Values{}, true
	case url.Values:
		return d, true
	case map[string][]string:
		return url.Values(d), true
	case map[string]string:
		vs := make(url.Values, len(d))
		for k, s := range d {
			vs.Set(k, s)
		}
		return vs, true
	}
	return nil, false
}

// EncodeValues renders v as an urlencoded body. Keys are sorted, values
// keep their order and repeat per key.
func EncodeValues(v url.Values) string {
	return v.Encode()
}

// boundaryPrefix is computed once per process, uuid makes each boundary
// unique while keeping equal lengths.
var boundaryPrefix = sync.OnceValue(func() string {
	prefix := "urlfetch"
	if uid := os.Getuid(); uid >= 0 {
		prefix += "." + strconv.Itoa(uid)
	}
	return prefix + "." + strconv.Itoa(os.Getpid())
})

func chooseBoundary() string {
	u := uuid.New()
	return boundaryPrefix() + "." + hex.EncodeToString(u[:])
}

// EncodeMultipart renders scalar fields and file uploads as a
// multipart/form-data body and returns the matching Content-Type.
func EncodeMultipart(data url.Values, files map[string]File) (contentType string, body []byte, err error) {
	boundary := chooseBoundary()
	partBoundary := "--" + boundary + "\r\n"

	names := make([]string, 0, len(data))
	for k := range data {
		names = append(names, k)
	}
	sort.Strings(names)
	fields := make([]string, 0, len(files))
	for k := range files {
		fields = append(fields, k)
	}
	sort.Strings(fields)

	b := &bytes.Buffer{}
	for _, name := range names {
		for _, value := range data[name] {
			b.WriteString(partBoundary)
			b.WriteString("Content-Disposition: form-data; name=\"" + name + "\"\r\n")
			b.WriteString("Content-Type: text/plain\r\n\r\n")
			b.WriteString(value)
			b.WriteString("\r\n")
		}
	}
	for _, field := range fields {
		name, content, ferr := files[field].resolve()
		if ferr != nil {
			return "", nil, ferr
		}
		b.WriteString(partBoundary)
		b.WriteString("Content-Disposition: form-data; name=\"" + field + "\"; filename=\"" + name + "\"\r\n")
		b.WriteString("Content-Type: application/octet-stream\r\n\r\n")
		b.Write(content)
		b.WriteString("\r\n")
	}
	b.WriteString("--" + boundary + "--\r\n")
	return "multipart/form-data; boundary=" + boundary, b.Bytes(), nil
}
