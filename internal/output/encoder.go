package output

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/JonMunkholm/pifcsv/internal/pif"
)

// Encoder writes a stream of records. Close finishes the document; it does
// not close the underlying writer.
type Encoder interface {
	Encode(s *pif.System) error
	Close() error
}

// NewEncoder returns an encoder for f writing to w.
func NewEncoder(w io.Writer, f Format) (Encoder, error) {
	switch f {
	case FormatJSON:
		return &jsonArrayEncoder{w: w}, nil
	case FormatNDJSON:
		return &ndjsonEncoder{enc: json.NewEncoder(w)}, nil
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		return &yamlEncoder{enc: enc}, nil
	}
	return nil, fmt.Errorf("unknown output format %q", f)
}

// jsonArrayEncoder streams records as the elements of one indented array.
type jsonArrayEncoder struct {
	w     io.Writer
	count int
}

func (e *jsonArrayEncoder) Encode(s *pif.System) error {
	data, err := json.MarshalIndent(s, "  ", "  ")
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	sep := ",\n  "
	if e.count == 0 {
		sep = "[\n  "
	}
	if _, err := io.WriteString(e.w, sep); err != nil {
		return err
	}
	if _, err := e.w.Write(data); err != nil {
		return err
	}
	e.count++
	return nil
}

func (e *jsonArrayEncoder) Close() error {
	end := "\n]\n"
	if e.count == 0 {
		end = "[]\n"
	}
	_, err := io.WriteString(e.w, end)
	return err
}

type ndjsonEncoder struct {
	enc *json.Encoder
}

func (e *ndjsonEncoder) Encode(s *pif.System) error {
	return e.enc.Encode(s)
}

func (e *ndjsonEncoder) Close() error { return nil }

type yamlEncoder struct {
	enc *yaml.Encoder
}

func (e *yamlEncoder) Encode(s *pif.System) error {
	return e.enc.Encode(s)
}

func (e *yamlEncoder) Close() error {
	return e.enc.Close()
}
