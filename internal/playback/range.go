// Package playback streams library videos over HTTP with byte-range
// support, so browsers can seek while reviewing search results.
package playback

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrBadRange      = errors.New("malformed range header")
	ErrUnsatisfiable = errors.New("range not satisfiable")
)

// ByteRange is a resolved, inclusive byte span within a file of known size.
type ByteRange struct {
	Start int64
	End   int64
}

func (b ByteRange) Length() int64 {
	return b.End - b.Start + 1
}

func (b ByteRange) ContentRange(total int64) string {
	return fmt.Sprintf("bytes %d-%d/%d", b.Start, b.End, total)
}

// ResolveRange parses a Range header against the file size. A missing
// header resolves to (nil, nil): serve the whole file. Multi-range requests
// degrade to their first span, which players accept.
func ResolveRange(header string, size int64) (*ByteRange, error) {
	if header == "" {
		return nil, nil
	}

	spec, ok := strings.CutPrefix(header, "bytes=")
	if !ok {
		return nil, ErrBadRange
	}
	if first, _, multi := strings.Cut(spec, ","); multi {
		spec = strings.TrimSpace(first)
	}

	startStr, endStr, ok := strings.Cut(spec, "-")
	if !ok {
		return nil, ErrBadRange
	}

	// "-N" means the final N bytes.
	if startStr == "" {
		n, err := strconv.ParseInt(endStr, 10, 64)
		if err != nil || n <= 0 {
			return nil, ErrBadRange
		}
		start := size - n
		if start < 0 {
			start = 0
		}
		return &ByteRange{Start: start, End: size - 1}, nil
	}

	start, err := strconv.ParseInt(startStr, 10, 64)
	if err != nil || start < 0 {
		return nil, ErrBadRange
	}

	end := size - 1
	if endStr != "" {
		end, err = strconv.ParseInt(endStr, 10, 64)
		if err != nil {
			return nil, ErrBadRange
		}
		if end >= size {
			end = size - 1
		}
	}

	if start >= size || start > end {
		return nil, ErrUnsatisfiable
	}
	return &ByteRange{Start: start, End: end}, nil
}
