package fbx

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"io"
	"math"

	"github.com/pkg/errors"
)

var binaryMagic = []byte("Kaydara FBX Binary  \x00\x1a\x00")

const binaryHeaderSize = 27

// maxArrayElements limits allocations caused by corrupted array headers.
const maxArrayElements = 1 << 28

// maxInflateRatio is the largest expansion deflate can produce.
const maxInflateRatio = 1032

func IsBinary(data []byte) bool {
	return bytes.HasPrefix(data, binaryMagic)
}

type binaryReader struct {
	data    []byte
	version uint32
	wide    bool
	opts    ReadOptions
}

func readBinary(data []byte, opts ReadOptions) (*File, error) {
	if len(data) < binaryHeaderSize || !IsBinary(data) {
		return nil, errors.New("Not a binary FBX file")
	}

	r := &binaryReader{
		data:    data,
		version: binary.LittleEndian.Uint32(data[23:27]),
		opts:    opts,
	}
	r.wide = r.version >= 7500

	f := newFile(r.version, true)

	offset := uint64(binaryHeaderSize)
	for {
		node, next, err := r.readNode(offset, 0)
		if err != nil {
			return nil, err
		}
		if node == nil {
			break
		}
		f.Root().AddNode(node)
		offset = next
		if offset >= uint64(len(data)) {
			break
		}
	}
	return f, nil
}

func (r *binaryReader) headerSize() uint64 {
	if r.wide {
		return 25
	}
	return 13
}

func (r *binaryReader) uint(offset uint64) uint64 {
	if r.wide {
		return binary.LittleEndian.Uint64(r.data[offset:])
	}
	return uint64(binary.LittleEndian.Uint32(r.data[offset:]))
}

// readNode returns a nil node for the null record that ends a node list.
func (r *binaryReader) readNode(offset uint64, depth int) (*Node, uint64, error) {
	if depth > 64 {
		return nil, 0, errors.Errorf("Node nesting too deep at offset %d", offset)
	}
	hs := r.headerSize()
	if offset+hs > uint64(len(r.data)) {
		// some writers omit the trailing null record
		if offset == uint64(len(r.data)) {
			return nil, offset, nil
		}
		return nil, 0, errors.Errorf("Truncated node record at offset %d", offset)
	}

	w := uint64(4)
	if r.wide {
		w = 8
	}
	endOffset := r.uint(offset)
	numProps := r.uint(offset + w)
	propsLen := r.uint(offset + 2*w)
	nameLen := uint64(r.data[offset+3*w])

	if endOffset == 0 {
		return nil, offset + hs, nil
	}
	if endOffset > uint64(len(r.data)) || endOffset <= offset {
		return nil, 0, errors.Errorf("Invalid node end offset %d at offset %d", endOffset, offset)
	}

	pos := offset + hs
	if pos+nameLen > endOffset {
		return nil, 0, errors.Errorf("Invalid node name length at offset %d", offset)
	}
	node := NewNode(string(r.data[pos : pos+nameLen]))
	pos += nameLen

	propsEnd := pos + propsLen
	if propsEnd > endOffset {
		return nil, 0, errors.Errorf("Property list of %q overflows node at offset %d", node.Name, offset)
	}
	for i := uint64(0); i < numProps; i++ {
		v, next, err := r.readProperty(pos, propsEnd)
		if err != nil {
			return nil, 0, errors.Wrapf(err, "Node %q property %d", node.Name, i)
		}
		node.Properties = append(node.Properties, v)
		pos = next
	}
	pos = propsEnd

	for pos < endOffset {
		child, next, err := r.readNode(pos, depth+1)
		if err != nil {
			return nil, 0, err
		}
		if child == nil {
			break
		}
		node.AddNode(child)
		pos = next
	}

	return node, endOffset, nil
}

func (r *binaryReader) need(pos, n, end uint64) error {
	if pos+n > end || pos+n < pos {
		return errors.Errorf("Truncated property at offset %d", pos)
	}
	return nil
}

func (r *binaryReader) readProperty(pos, end uint64) (interface{}, uint64, error) {
	if err := r.need(pos, 1, end); err != nil {
		return nil, 0, err
	}
	code := r.data[pos]
	pos++
	le := binary.LittleEndian

	scalar := func(size uint64) ([]byte, error) {
		if err := r.need(pos, size, end); err != nil {
			return nil, err
		}
		return r.data[pos : pos+size], nil
	}

	switch code {
	case 'Y':
		b, err := scalar(2)
		if err != nil {
			return nil, 0, err
		}
		return int16(le.Uint16(b)), pos + 2, nil
	case 'C':
		b, err := scalar(1)
		if err != nil {
			return nil, 0, err
		}
		return b[0] != 0, pos + 1, nil
	case 'I':
		b, err := scalar(4)
		if err != nil {
			return nil, 0, err
		}
		return int32(le.Uint32(b)), pos + 4, nil
	case 'F':
		b, err := scalar(4)
		if err != nil {
			return nil, 0, err
		}
		return math.Float32frombits(le.Uint32(b)), pos + 4, nil
	case 'D':
		b, err := scalar(8)
		if err != nil {
			return nil, 0, err
		}
		return math.Float64frombits(le.Uint64(b)), pos + 8, nil
	case 'L':
		b, err := scalar(8)
		if err != nil {
			return nil, 0, err
		}
		return int64(le.Uint64(b)), pos + 8, nil
	case 'S', 'R':
		b, err := scalar(4)
		if err != nil {
			return nil, 0, err
		}
		n := uint64(le.Uint32(b))
		pos += 4
		if err := r.need(pos, n, end); err != nil {
			return nil, 0, err
		}
		raw := r.data[pos : pos+n]
		if code == 'R' {
			return append([]byte{}, raw...), pos + n, nil
		}
		return r.opts.decodeString(raw), pos + n, nil
	case 'f', 'd', 'l', 'i', 'b':
		return r.readArray(code, pos, end)
	}
	return nil, 0, errors.Errorf("Unknown property type %q at offset %d", code, pos-1)
}

func (r *binaryReader) readArray(code byte, pos, end uint64) (interface{}, uint64, error) {
	if err := r.need(pos, 12, end); err != nil {
		return nil, 0, err
	}
	le := binary.LittleEndian
	count := uint64(le.Uint32(r.data[pos:]))
	encoding := le.Uint32(r.data[pos+4:])
	compressedLen := uint64(le.Uint32(r.data[pos+8:]))
	pos += 12

	if count > maxArrayElements {
		return nil, 0, errors.Errorf("Array of %d elements is too large", count)
	}

	var elemSize uint64
	switch code {
	case 'f', 'i':
		elemSize = 4
	case 'd', 'l':
		elemSize = 8
	case 'b':
		elemSize = 1
	}

	var raw []byte
	switch encoding {
	case 0:
		if err := r.need(pos, count*elemSize, end); err != nil {
			return nil, 0, err
		}
		raw = r.data[pos : pos+count*elemSize]
		pos += count * elemSize
	case 1:
		if err := r.need(pos, compressedLen, end); err != nil {
			return nil, 0, err
		}
		if count*elemSize > compressedLen*maxInflateRatio {
			return nil, 0, errors.Errorf("Compressed array of %d bytes can not hold %d elements", compressedLen, count)
		}
		zr, err := zlib.NewReader(bytes.NewReader(r.data[pos : pos+compressedLen]))
		if err != nil {
			return nil, 0, errors.Wrapf(err, "Failed to open compressed array")
		}
		raw = make([]byte, count*elemSize)
		if _, err := io.ReadFull(zr, raw); err != nil {
			return nil, 0, errors.Wrapf(err, "Failed to inflate array of %d elements", count)
		}
		zr.Close()
		pos += compressedLen
	default:
		return nil, 0, errors.Errorf("Unknown array encoding %d", encoding)
	}

	switch code {
	case 'f':
		out := make([]float32, count)
		for i := range out {
			out[i] = math.Float32frombits(le.Uint32(raw[i*4:]))
		}
		return out, pos, nil
	case 'd':
		out := make([]float64, count)
		for i := range out {
			out[i] = math.Float64frombits(le.Uint64(raw[i*8:]))
		}
		return out, pos, nil
	case 'i':
		out := make([]int32, count)
		for i := range out {
			out[i] = int32(le.Uint32(raw[i*4:]))
		}
		return out, pos, nil
	case 'l':
		out := make([]int64, count)
		for i := range out {
			out[i] = int64(le.Uint64(raw[i*8:]))
		}
		return out, pos, nil
	default:
		out := make([]bool, count)
		for i := range out {
			out[i] = raw[i] != 0
		}
		return out, pos, nil
	}
}
