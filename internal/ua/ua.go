// Package ua samples a random User-Agent line from a list file without
// reading the whole file: seek to a random offset, skip the partial
// line, take the next one.
package ua

import (
	"bufio"
	"errors"
	"io"
	"math/rand"
	"os"
	"strings"
)

// Random picks one line from the file at path. Lines starting with '#'
// and blank lines are skipped; hitting the end wraps around to the
// start. After a few unlucky attempts it gives up with an empty string
// so the caller can fall back to a fixed agent.
func Random(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return "", err
	}
	size := st.Size()
	if size == 0 {
		return "", nil
	}

	for attempt := 0; attempt < 3; attempt++ {
		if _, err := f.Seek(rand.Int63n(size), io.SeekStart); err != nil {
			return "", err
		}
		br := bufio.NewReader(f)
		if _, err := br.ReadString('\n'); err != nil && !errors.Is(err, io.EOF) {
			return "", err
		}
		line, err := br.ReadString('\n')
		if errors.Is(err, io.EOF) && line == "" {
			// wrapped off the end, take the first line instead
			if _, err := f.Seek(0, io.SeekStart); err != nil {
				return "", err
			}
			line, err = bufio.NewReader(f).ReadString('\n')
			if err != nil && !errors.Is(err, io.EOF) {
				return "", err
			}
		} else if err != nil && !errors.Is(err, io.EOF) {
			return "", err
		}
		line = strings.TrimSpace(line)
		if line != "" && line[0] != '#' {
			return line, nil
		}
	}
	return "", nil
}
