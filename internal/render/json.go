package render

import (
	"encoding/json"
	"fmt"
	"io"
)

// JSONWriter outputs the full view as JSON.
type JSONWriter struct{}

func (j *JSONWriter) Write(w io.Writer, v *View) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("writing JSON: %w", err)
	}
	_, err = fmt.Fprintln(w)
	return err
}
