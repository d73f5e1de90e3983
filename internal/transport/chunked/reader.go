// Package chunked decodes the HTTP/1.1 chunked transfer coding.
package chunked

import (
	"bufio"
	"errors"
	"io"
)

func NewReader(r io.Reader) io.Reader {
	br, ok := r.(*bufio.Reader)
	if !ok {
		br = bufio.NewReader(r)
	}
	return &chunkedReader{Reader: br}
}

type chunkedReader struct {
	*bufio.Reader
	chunk      io.Reader
	read, size int64
}

// readChunkHeader parses the size line of the next chunk. Anything after
// a ';' is a chunk extension and is thrown away, as is trailing
// whitespace some servers emit before it.
func (c *chunkedReader) readChunkHeader() (size uint64, err error) {
	digits := 0
	ext := false
	for isPrefix := true; isPrefix; {
		var line []byte
		line, isPrefix, err = c.ReadLine()
		if err != nil {
			if err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			return 0, err
		}
		for _, b := range line {
			if ext {
				continue
			}
			switch {
			case b == ';' || b == ' ' || b == '\t':
				ext = true
				continue
			case '0' <= b && b <= '9':
				b = b - '0'
			case 'a' <= b && b <= 'f':
				b = b - 'a' + 10
			case 'A' <= b && b <= 'F':
				b = b - 'A' + 10
			default:
				return 0, errors.New("invalid byte in chunk length")
			}
			if digits++; digits > 15 {
				return 0, errors.New("http chunk length too large")
			}
			size <<= 4
			size |= uint64(b)
		}
	}
	if digits == 0 {
		return 0, errors.New("missing chunk length")
	}
	return size, nil
}

func (c *chunkedReader) readChunkEnd() error {
	cr, _ := c.ReadByte()
	lf, err := c.ReadByte()
	if err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return err
	}
	if cr != '\r' || lf != '\n' {
		return errors.New("malformed chunked encoding")
	}
	return nil
}

func (c *chunkedReader) Read(p []byte) (n int, err error) {
	if c.chunk == nil {
		size, err := c.readChunkHeader()
		if err != nil {
			return 0, err
		}
		if size == 0 {
			return 0, io.EOF
		}
		c.chunk = io.LimitReader(c.Reader, int64(size))
		c.size = int64(size)
		c.read = 0
	}
	n, err = c.chunk.Read(p)
	c.read += int64(n)
	if err == io.EOF {
		if c.read != c.size {
			return n, io.ErrUnexpectedEOF
		}
		err = c.readChunkEnd()
		c.chunk = nil
	}
	return n, err
}
