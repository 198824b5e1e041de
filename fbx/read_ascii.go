package fbx

import (
	"strconv"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/timtadh/lexmachine"
	"github.com/timtadh/lexmachine/machines"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokName
	tokNumber
	tokString
	tokWord
	tokComma
	tokStar
	tokOpen
	tokClose
)

type token struct {
	kind tokenKind
	text string
	line int
}

var (
	asciiLexer     *lexmachine.Lexer
	asciiLexerOnce sync.Once
	asciiLexerErr  error
)

func init() {
	asciiLexer = lexmachine.NewLexer()
	asciiLexer.Add([]byte(`[A-Za-z0-9_\|]+:`), getToken(tokName))
	asciiLexer.Add([]byte(`"[^"]*"`), getToken(tokString))
	asciiLexer.Add([]byte(`[\+\-]?([0-9]+\.?[0-9]*|\.[0-9]+)([eE][\+\-]?[0-9]+)?`), getToken(tokNumber))
	asciiLexer.Add([]byte(`[\+\-]?(inf|Inf|INF|infinity|Infinity|nan|NaN|NAN)`), getToken(tokNumber))
	asciiLexer.Add([]byte(`[A-Za-z_][A-Za-z0-9_\|\.\+\-]*`), getToken(tokWord))
	asciiLexer.Add([]byte(`\*`), getToken(tokStar))
	asciiLexer.Add([]byte(`,`), getToken(tokComma))
	asciiLexer.Add([]byte(`\{`), getToken(tokOpen))
	asciiLexer.Add([]byte(`\}`), getToken(tokClose))
	asciiLexer.Add([]byte(`;[^\n]*`), skip)
	asciiLexer.Add([]byte(`\s+`), skip)
}

func getToken(kind tokenKind) lexmachine.Action {
	return func(s *lexmachine.Scanner, m *machines.Match) (interface{}, error) {
		return s.Token(int(kind), string(m.Bytes), m), nil
	}
}

func skip(scan *lexmachine.Scanner, match *machines.Match) (interface{}, error) {
	return nil, nil
}

// tokenStream turns scanner output into parser tokens with one token of
// lookahead.
type tokenStream struct {
	scanner *lexmachine.Scanner
	line    int
	peek    *token
}

func newTokenStream(data []byte) (*tokenStream, error) {
	// compiled once, scanners share the dfa
	asciiLexerOnce.Do(func() {
		asciiLexerErr = asciiLexer.Compile()
	})
	if asciiLexerErr != nil {
		return nil, errors.Wrapf(asciiLexerErr, "Failed to compile lexer")
	}
	scanner, err := asciiLexer.Scanner(data)
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to create lexer scanner")
	}
	return &tokenStream{scanner: scanner, line: 1}, nil
}

func (l *tokenStream) next() (token, error) {
	if l.peek != nil {
		t := *l.peek
		l.peek = nil
		return t, nil
	}

	itok, err, eos := l.scanner.Next()
	if eos {
		return token{kind: tokEOF, line: l.line}, nil
	}
	if err != nil {
		return token{}, errors.Wrapf(err, "Failed to parse token after line %d", l.line)
	}
	tok := itok.(*lexmachine.Token)
	l.line = tok.StartLine

	t := token{kind: tokenKind(tok.Type), text: tok.Value.(string), line: tok.StartLine}
	switch t.kind {
	case tokName:
		t.text = strings.TrimSuffix(t.text, ":")
	case tokString:
		t.text = t.text[1 : len(t.text)-1]
	case tokNumber:
		if _, err := strconv.ParseFloat(t.text, 64); err != nil {
			t.kind = tokWord
		}
	}
	return t, nil
}

func (l *tokenStream) unread(t token) {
	l.peek = &t
}

type asciiParser struct {
	lex  *tokenStream
	opts ReadOptions
}

func readASCII(data []byte, opts ReadOptions) (*File, error) {
	lex, err := newTokenStream(data)
	if err != nil {
		return nil, err
	}
	p := &asciiParser{lex: lex, opts: opts}

	var nodes []*Node
	for {
		t, err := p.lex.next()
		if err != nil {
			return nil, err
		}
		if t.kind == tokEOF {
			break
		}
		if t.kind != tokName {
			return nil, errors.Errorf("Expected node name at line %d", t.line)
		}
		node, err := p.parseNode(t.text, 0)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, node)
	}
	if len(nodes) == 0 {
		return nil, errors.New("No FBX nodes found")
	}

	version := uint32(7400)
	if v, ok := PropInt64(findTop(nodes, "FBXHeaderExtension", "FBXVersion"), 0); ok {
		version = uint32(v)
	}

	f := newFile(version, false)
	for _, n := range nodes {
		f.Root().AddNode(n)
	}
	return f, nil
}

func findTop(nodes []*Node, path ...string) *Node {
	for _, n := range nodes {
		if n.Name == path[0] {
			return Path(n, path[1:]...)
		}
	}
	return nil
}

func (p *asciiParser) parseNode(name string, depth int) (*Node, error) {
	if depth > 64 {
		return nil, errors.Errorf("Node nesting too deep in %q", name)
	}
	node := NewNode(name)

	for {
		t, err := p.lex.next()
		if err != nil {
			return nil, err
		}
		switch t.kind {
		case tokComma:
			// empty leading value, as in "Content: ,"
			continue
		case tokNumber, tokString, tokWord:
			node.Properties = append(node.Properties, p.scalar(t))
		case tokStar:
			arr, err := p.parseArray()
			if err != nil {
				return nil, errors.Wrapf(err, "Node %q", name)
			}
			node.Properties = append(node.Properties, arr)
		case tokOpen:
			if err := p.parseChildren(node, depth); err != nil {
				return nil, err
			}
			return node, nil
		default:
			p.lex.unread(t)
			return node, nil
		}

		t, err = p.lex.next()
		if err != nil {
			return nil, err
		}
		switch t.kind {
		case tokComma:
			continue
		case tokOpen:
			if err := p.parseChildren(node, depth); err != nil {
				return nil, err
			}
			return node, nil
		default:
			p.lex.unread(t)
			return node, nil
		}
	}
}

func (p *asciiParser) parseChildren(node *Node, depth int) error {
	for {
		t, err := p.lex.next()
		if err != nil {
			return err
		}
		switch t.kind {
		case tokClose:
			return nil
		case tokName:
			child, err := p.parseNode(t.text, depth+1)
			if err != nil {
				return err
			}
			node.AddNode(child)
		case tokEOF:
			return errors.Errorf("Unexpected end of file inside %q", node.Name)
		default:
			return errors.Errorf("Unexpected token %q inside %q at line %d", t.text, node.Name, t.line)
		}
	}
}

// parseArray reads "*N { a: v,v,... }" after the star.
func (p *asciiParser) parseArray() (interface{}, error) {
	t, err := p.lex.next()
	if err != nil {
		return nil, err
	}
	if t.kind != tokNumber {
		return nil, errors.Errorf("Expected array length at line %d", t.line)
	}
	count, err := strconv.Atoi(t.text)
	if err != nil || count < 0 {
		return nil, errors.Errorf("Invalid array length %q at line %d", t.text, t.line)
	}
	if t, err = p.lex.next(); err != nil {
		return nil, err
	} else if t.kind != tokOpen {
		return nil, errors.Errorf("Expected '{' after array length at line %d", t.line)
	}

	var values []string
	for {
		t, err := p.lex.next()
		if err != nil {
			return nil, err
		}
		switch t.kind {
		case tokName:
			if t.text != "a" {
				return nil, errors.Errorf("Unexpected %q in array at line %d", t.text, t.line)
			}
		case tokNumber:
			values = append(values, t.text)
		case tokComma:
		case tokClose:
			if len(values) != count {
				return nil, errors.Errorf("Array declares %d values but has %d", count, len(values))
			}
			return numberArray(values)
		default:
			return nil, errors.Errorf("Unexpected token in array at line %d", t.line)
		}
	}
}

func numberArray(values []string) (interface{}, error) {
	isFloat := false
	for _, v := range values {
		if strings.ContainsAny(v, ".eEnN") {
			isFloat = true
			break
		}
	}
	if isFloat {
		out := make([]float64, len(values))
		for i, v := range values {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return nil, errors.Wrapf(err, "Invalid number %q", v)
			}
			out[i] = f
		}
		return out, nil
	}
	out := make([]int64, len(values))
	for i, v := range values {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "Invalid integer %q", v)
		}
		out[i] = n
	}
	return out, nil
}

func (p *asciiParser) scalar(t token) interface{} {
	switch t.kind {
	case tokString:
		return p.opts.decodeString([]byte(strings.ReplaceAll(t.text, "&quot;", "\"")))
	case tokNumber:
		if n, err := strconv.ParseInt(t.text, 10, 64); err == nil {
			return n
		}
		f, _ := strconv.ParseFloat(t.text, 64)
		return f
	}
	switch t.text {
	case "T", "Y":
		return true
	case "F", "N":
		return false
	}
	return t.text
}
