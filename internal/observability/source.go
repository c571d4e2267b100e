package observability

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"
)

// RawLog is the unprocessed text of one log together with where it came from.
type RawLog struct {
	Name string
	Text string
	// Previous is set when a pod log comes from the last terminated container.
	Previous bool
}

// Size returns the byte length of the text.
func (r *RawLog) Size() int64 { return int64(len(r.Text)) }

// Source supplies one RawLog per call.
type Source interface {
	Read(ctx context.Context) (*RawLog, error)
}

// TextSource is log text given literally on the command line.
type TextSource struct {
	Text string
}

func (s TextSource) Read(context.Context) (*RawLog, error) {
	return &RawLog{Name: "text", Text: s.Text}, nil
}

// FileSource reads a whole file. Path "-" reads stdin.
type FileSource struct {
	Path  string
	Stdin io.Reader
}

func (s FileSource) Read(context.Context) (*RawLog, error) {
	if s.Path == "-" {
		in := s.Stdin
		if in == nil {
			in = os.Stdin
		}
		data, err := io.ReadAll(in)
		if err != nil {
			return nil, fmt.Errorf("reading stdin: %w", err)
		}
		return &RawLog{Name: "stdin", Text: toValidUTF8(data)}, nil
	}

	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("reading log file: %w", err)
	}
	return &RawLog{Name: "file:" + s.Path, Text: toValidUTF8(data)}, nil
}

// toValidUTF8 replaces invalid byte sequences so binary noise in a log
// cannot break prompt encoding.
func toValidUTF8(data []byte) string {
	if utf8.Valid(data) {
		return string(data)
	}
	return strings.ToValidUTF8(string(data), string(utf8.RuneError))
}
