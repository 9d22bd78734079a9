package geost

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// Token types for the lexer.
type tokenType int

const (
	tokenEOF tokenType = iota
	tokenIdent
	tokenString
	tokenOp
	tokenAnd
	tokenOr
	tokenNot
	tokenLParen
	tokenRParen
	tokenComma
	tokenInvalid
)

type token struct {
	typ tokenType
	val string
}

// Lexer tokenizes a filter expression string.
type lexer struct {
	input string
	pos   int
}

func newLexer(input string) *lexer {
	return &lexer{input: input}
}

func (l *lexer) next() token {
	l.skipWhitespace()

	if l.pos >= len(l.input) {
		return token{typ: tokenEOF}
	}

	ch := l.input[l.pos]

	switch ch {
	case '(':
		l.pos++
		return token{typ: tokenLParen, val: "("}
	case ')':
		l.pos++
		return token{typ: tokenRParen, val: ")"}
	case ',':
		l.pos++
		return token{typ: tokenComma, val: ","}
	case '\'':
		return l.scanString()
	case '=':
		l.pos++
		return token{typ: tokenOp, val: "="}
	case '!':
		if l.pos+1 < len(l.input) && l.input[l.pos+1] == '=' {
			l.pos += 2
			return token{typ: tokenOp, val: "!="}
		}
	case '<', '>':
		op := string(ch)
		l.pos++
		if l.pos < len(l.input) && l.input[l.pos] == '=' {
			op += "="
			l.pos++
		}
		return token{typ: tokenOp, val: op}
	}

	if isIdentStart(ch) {
		return l.scanIdent()
	}

	l.pos++
	return token{typ: tokenInvalid, val: string(ch)}
}

func (l *lexer) skipWhitespace() {
	for l.pos < len(l.input) && unicode.IsSpace(rune(l.input[l.pos])) {
		l.pos++
	}
}

func (l *lexer) scanIdent() token {
	start := l.pos
	for l.pos < len(l.input) && isIdentChar(l.input[l.pos]) {
		l.pos++
	}
	val := l.input[start:l.pos]

	switch strings.ToUpper(val) {
	case "AND":
		return token{typ: tokenAnd, val: val}
	case "OR":
		return token{typ: tokenOr, val: val}
	case "NOT":
		return token{typ: tokenNot, val: val}
	}

	return token{typ: tokenIdent, val: val}
}

func (l *lexer) scanString() token {
	l.pos++ // opening quote
	start := l.pos
	for l.pos < len(l.input) && l.input[l.pos] != '\'' {
		l.pos++
	}
	if l.pos >= len(l.input) {
		return token{typ: tokenInvalid, val: l.input[start:]}
	}
	val := l.input[start:l.pos]
	l.pos++ // closing quote
	return token{typ: tokenString, val: val}
}

func isIdentStart(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') ||
		(ch >= '0' && ch <= '9') || ch == '_' || ch == '-' || ch == '*'
}

func isIdentChar(ch byte) bool {
	return isIdentStart(ch) || ch == '.'
}

// Parser builds a Predicate tree from tokens.
type parser struct {
	lex *lexer
	cur token
}

func newParser(input string) *parser {
	p := &parser{lex: newLexer(input)}
	p.cur = p.lex.next()
	return p
}

func (p *parser) advance() {
	p.cur = p.lex.next()
}

// ParsePredicate parses a filter expression string.
// Grammar:
//
//	expr   = term (OR term)*
//	term   = factor (AND factor)*
//	factor = NOT factor | '(' expr ')' | leaf
//	leaf   = BBOX '(' num ',' num ',' num ',' num ')'
//	       | DURING '(' bound ',' bound ')'       bound = RFC 3339 string | '*'
//	       | IN '(' value (',' value)* ')'
//	       | INCLUDE | EXCLUDE
//	       | ident op value                       op = '=' '!=' '<' '<=' '>' '>='
func ParsePredicate(input string) (Predicate, error) {
	if strings.TrimSpace(input) == "" {
		return nil, nil
	}
	p := newParser(input)
	pred, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if p.cur.typ != tokenEOF {
		return nil, fmt.Errorf("unexpected input after expression: %q", p.cur.val)
	}
	return pred, nil
}

func (p *parser) parseExpr() (Predicate, error) {
	left, err := p.parseTerm()
	if err != nil {
		return nil, err
	}

	children := []Predicate{left}
	for p.cur.typ == tokenOr {
		p.advance()
		right, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		children = append(children, right)
	}

	return NewOr(children...), nil
}

func (p *parser) parseTerm() (Predicate, error) {
	left, err := p.parseFactor()
	if err != nil {
		return nil, err
	}

	children := []Predicate{left}
	for p.cur.typ == tokenAnd {
		p.advance()
		right, err := p.parseFactor()
		if err != nil {
			return nil, err
		}
		children = append(children, right)
	}

	return NewAnd(children...), nil
}

func (p *parser) parseFactor() (Predicate, error) {
	switch p.cur.typ {
	case tokenNot:
		p.advance()
		child, err := p.parseFactor()
		if err != nil {
			return nil, err
		}
		return Not{Child: child}, nil

	case tokenLParen:
		p.advance()
		expr, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if p.cur.typ != tokenRParen {
			return nil, fmt.Errorf("expected ')', got %q", p.cur.val)
		}
		p.advance()
		return expr, nil
	}

	return p.parseLeaf()
}

func (p *parser) parseLeaf() (Predicate, error) {
	if p.cur.typ != tokenIdent {
		return nil, fmt.Errorf("expected predicate, got %q", p.cur.val)
	}
	name := p.cur.val

	switch strings.ToUpper(name) {
	case "INCLUDE":
		p.advance()
		return All{}, nil
	case "EXCLUDE":
		p.advance()
		return None{}, nil
	case "BBOX":
		p.advance()
		return p.parseBBox()
	case "DURING":
		p.advance()
		return p.parseDuring()
	case "IN":
		p.advance()
		return p.parseIDIn()
	}

	p.advance()
	return p.parseComparison(name)
}

func (p *parser) parseBBox() (Predicate, error) {
	args, err := p.parseArgs(4)
	if err != nil {
		return nil, err
	}
	nums := make([]float64, 4)
	for i, a := range args {
		n, err := strconv.ParseFloat(a, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid BBOX coordinate %q", a)
		}
		nums[i] = n
	}
	return BBox{Box: Box{MinX: nums[0], MinY: nums[1], MaxX: nums[2], MaxY: nums[3]}}, nil
}

func (p *parser) parseDuring() (Predicate, error) {
	args, err := p.parseArgs(2)
	if err != nil {
		return nil, err
	}
	var d During
	if args[0] != "*" {
		t, err := time.Parse(time.RFC3339, args[0])
		if err != nil {
			return nil, fmt.Errorf("invalid DURING start %q", args[0])
		}
		d.Start = t
	}
	if args[1] != "*" {
		t, err := time.Parse(time.RFC3339, args[1])
		if err != nil {
			return nil, fmt.Errorf("invalid DURING end %q", args[1])
		}
		d.End = t
	}
	return d, nil
}

func (p *parser) parseIDIn() (Predicate, error) {
	args, err := p.parseArgs(0)
	if err != nil {
		return nil, err
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("IN requires at least one id")
	}
	return NewIDIn(args...), nil
}

// parseArgs consumes a parenthesized argument list. want=0 accepts any
// positive count.
func (p *parser) parseArgs(want int) ([]string, error) {
	if p.cur.typ != tokenLParen {
		return nil, fmt.Errorf("expected '(', got %q", p.cur.val)
	}
	p.advance()

	var args []string
	for {
		if p.cur.typ != tokenIdent && p.cur.typ != tokenString {
			return nil, fmt.Errorf("expected argument, got %q", p.cur.val)
		}
		args = append(args, p.cur.val)
		p.advance()

		if p.cur.typ == tokenComma {
			p.advance()
			continue
		}
		break
	}

	if p.cur.typ != tokenRParen {
		return nil, fmt.Errorf("expected ')', got %q", p.cur.val)
	}
	p.advance()

	if want > 0 && len(args) != want {
		return nil, fmt.Errorf("expected %d arguments, got %d", want, len(args))
	}
	return args, nil
}

func (p *parser) parseComparison(name string) (Predicate, error) {
	if p.cur.typ != tokenOp {
		return nil, fmt.Errorf("expected operator after %q, got %q", name, p.cur.val)
	}
	op := p.cur.val
	p.advance()

	if p.cur.typ != tokenIdent && p.cur.typ != tokenString {
		return nil, fmt.Errorf("expected value, got %q", p.cur.val)
	}
	value := p.cur.val
	p.advance()

	switch op {
	case "=":
		return Equals{Name: name, Value: value}, nil
	case "!=":
		return Not{Child: Equals{Name: name, Value: value}}, nil
	case "<":
		return Range{Name: name, Hi: value}, nil
	case "<=":
		return Range{Name: name, Hi: value, IncHi: true}, nil
	case ">":
		return Range{Name: name, Lo: value}, nil
	case ">=":
		return Range{Name: name, Lo: value, IncLo: true}, nil
	}
	return nil, fmt.Errorf("unknown operator %q", op)
}
