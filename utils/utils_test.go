package utils

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRandomNamesAreUnique(t *testing.T) {
	rng := NewRandomNameGenerator(1)
	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		name := rng.RandomName()
		assert.NotEmpty(t, name)
		assert.False(t, seen[name], name)
		seen[name] = true
	}
}

func TestRandomFloatRange(t *testing.T) {
	rng := NewRandomNameGenerator(2)
	for i := 0; i < 100; i++ {
		v := rng.RandomFloat(-10, 10)
		assert.GreaterOrEqual(t, v, -10.0)
		assert.LessOrEqual(t, v, 10.0)
	}
}

func TestDump(t *testing.T) {
	type pair struct {
		Name  string
		Value map[string]int
	}
	var buf bytes.Buffer
	Fdump(&buf, pair{Name: "a", Value: map[string]int{"z": 1, "b": 2}})
	out := buf.String()
	assert.Contains(t, out, `Name: (string) (len=1) "a"`)
	assert.Less(t, bytes.Index(buf.Bytes(), []byte(`"b"`)), bytes.Index(buf.Bytes(), []byte(`"z"`)))
	assert.Equal(t, out, SDump(pair{Name: "a", Value: map[string]int{"z": 1, "b": 2}}))
}
