package document

import (
	"encoding/json"
	"io"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

func (d Document) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.ToMap())
}

func (d *Document) UnmarshalJSON(data []byte) error {
	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	return d.fromWire(m)
}

func (d Document) MarshalYAML() (interface{}, error) {
	return d.ToMap(), nil
}

func (d *Document) UnmarshalYAML(value *yaml.Node) error {
	var m map[string]interface{}
	if err := value.Decode(&m); err != nil {
		return err
	}
	return d.fromWire(m)
}

func (d *Document) fromWire(m map[string]interface{}) error {
	decoded, err := FromMap(m)
	if err != nil {
		return err
	}
	*d = *decoded
	return nil
}

// Encode writes the document as "json" or "yaml".
func Encode(w io.Writer, d *Document, format string) error {
	switch format {
	case "json", "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return errors.Wrapf(enc.Encode(d), "Failed to encode json")
	case "yaml", "yml":
		enc := yaml.NewEncoder(w)
		defer enc.Close()
		return errors.Wrapf(enc.Encode(d), "Failed to encode yaml")
	}
	return errors.Errorf("Unknown document format %q", format)
}

func Decode(r io.Reader, format string) (*Document, error) {
	d := &Document{}
	switch format {
	case "json", "":
		if err := json.NewDecoder(r).Decode(d); err != nil {
			return nil, errors.Wrapf(err, "Failed to decode json")
		}
	case "yaml", "yml":
		if err := yaml.NewDecoder(r).Decode(d); err != nil {
			return nil, errors.Wrapf(err, "Failed to decode yaml")
		}
	default:
		return nil, errors.Errorf("Unknown document format %q", format)
	}
	return d, nil
}
