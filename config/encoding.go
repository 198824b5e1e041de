package config

import (
	"github.com/pkg/errors"
	"golang.org/x/text/encoding/charmap"
)

const DefaultEncoding = "Windows 1252"

var currentCharMap = charmap.Windows1252

func FindEncoding(name string) (*charmap.Charmap, error) {
	for _, enc := range charmap.All {
		if cm, ok := enc.(*charmap.Charmap); ok {
			if cm.String() == name {
				return cm, nil
			}
		}
	}
	return nil, errors.Errorf("Failed to find encoding %q", name)
}

// SetEncoding selects the code page used when reading legacy names.
func SetEncoding(name string) error {
	cm, err := FindEncoding(name)
	if err != nil {
		return err
	}
	currentCharMap = cm
	return nil
}

func ListEncodings() []string {
	list := make([]string, 0)
	for _, enc := range charmap.All {
		if cm, ok := enc.(*charmap.Charmap); ok {
			list = append(list, cm.String())
		}
	}
	return list
}

func GetEncoding() *charmap.Charmap {
	return currentCharMap
}
