package fbx

import (
	"bufio"
	"encoding/base64"
	"fmt"
	"io"
	"reflect"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

type exporter struct {
	tabs int
	w    *bufio.Writer
}

func (e *exporter) fillTabs(diff int) {
	for i := 0; i < e.tabs+diff; i++ {
		e.w.WriteRune('\t')
	}
}

func (e *exporter) tabsInc() { e.tabs++ }
func (e *exporter) tabsDec() { e.tabs-- }

func (e *exporter) printf(format string, args ...interface{}) {
	e.w.WriteString(fmt.Sprintf(format, args...))
}
func (e *exporter) print(s string) {
	e.w.WriteString(s)
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func (e *exporter) simpleValueString(v reflect.Value) string {
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(v.Int(), 10)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(v.Uint(), 10)
	case reflect.Float32, reflect.Float64:
		return formatFloat(v.Float())
	case reflect.String:
		return "\"" + strings.ReplaceAll(asciiName(v.String()), "\"", "&quot;") + "\""
	case reflect.Bool:
		if v.Bool() {
			return "T"
		}
		return "F"
	default:
		return ""
	}
}

func (e *exporter) exportProperty(v interface{}) error {
	switch p := v.(type) {
	case []byte:
		e.printf("\"%s\"", base64.StdEncoding.EncodeToString(p))
		return nil
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		l := rv.Len()
		e.printf("*%d {\n", l)
		e.fillTabs(1)
		e.print("a: ")
		for i := 0; i < l; i++ {
			if i != 0 {
				e.print(",")
			}
			e.print(e.simpleValueString(rv.Index(i)))
		}
		e.print("\n")
		e.fillTabs(0)
		e.print("}")
		return nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64,
		reflect.String, reflect.Bool:
		e.print(e.simpleValueString(rv))
		return nil
	}
	return errors.Errorf("Unsupported property type %T", v)
}

func (e *exporter) exportNode(n *Node) error {
	e.fillTabs(0)
	e.printf("%s: ", n.Name)

	for i, p := range n.Properties {
		if i != 0 {
			e.print(", ")
		}
		if err := e.exportProperty(p); err != nil {
			return errors.Wrapf(err, "Node %q", n.Name)
		}
	}

	if len(n.Nodes) != 0 || len(n.Properties) == 0 {
		if len(n.Properties) != 0 {
			e.print(" ")
		}
		e.print("{\n")
		e.tabsInc()
		for _, child := range n.Nodes {
			if err := e.exportNode(child); err != nil {
				return err
			}
		}
		e.tabsDec()
		e.fillTabs(0)
		e.print("}")
	}
	e.print("\n")
	if e.tabs == 0 {
		e.print("\n")
	}
	return nil
}

// WriteASCII writes f in the FBX ascii syntax.
func WriteASCII(w io.Writer, f *File) error {
	bw := bufio.NewWriter(w)
	major, minor := MajorMinor(f.Version)
	fmt.Fprintf(bw, "; FBX %d.%d.0 project file\n", major, minor)
	bw.WriteString("; ----------------------------------------------------\n\n")

	e := &exporter{w: bw}
	for _, n := range f.Root().Nodes {
		if err := e.exportNode(n); err != nil {
			return err
		}
	}
	return bw.Flush()
}
