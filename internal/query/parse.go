package query

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/specialistvlad/rulegraph/internal/graph"
)

var clauseKeywords = []string{"MATCH", "WHERE", "SET", "RETURN"}

var aliasRe = regexp.MustCompile(`(?is)^(.*\S)\s+AS\s+([A-Za-z_][A-Za-z0-9_]*)$`)

type clause struct {
	keyword string
	body    string
	offset  int // offset of body in the query text
}

// Parse parses query text. Malformed queries fail with a *SyntaxError, as do
// references to unbound variables and calls to unknown functions.
func Parse(text string) (*Query, error) {
	clauses, err := splitClauses(text)
	if err != nil {
		return nil, err
	}

	q := &Query{Text: text, attrs: make(map[string][]string)}
	p := &parser{q: q, slots: make(map[string]int)}

	for _, c := range clauses {
		switch c.keyword {
		case "MATCH":
			err = p.parseMatch(c)
		case "WHERE":
			err = p.parseWhere(c)
		case "SET":
			err = p.parseSet(c)
		case "RETURN":
			err = p.parseReturn(c)
		}
		if err != nil {
			return nil, err
		}
	}

	if !p.hasReturn {
		for _, v := range q.vars {
			q.Return = append(q.Return, Projection{
				Name: v,
				Expr: &hclsyntax.ScopeTraversalExpr{Traversal: hcl.Traversal{hcl.TraverseRoot{Name: v}}},
				Var:  v,
			})
		}
	}
	q.slots = len(p.slots)
	q.varSlot = make(map[string]int, len(q.vars))
	for _, v := range q.vars {
		q.varSlot[v] = p.slots[v]
	}
	return q, nil
}

// splitClauses cuts the text at clause keywords that appear outside strings
// and brackets and checks their order.
func splitClauses(text string) ([]clause, error) {
	var (
		clauses []clause
		depth   int
		inQuote bool
		start   = -1
	)

	for i := 0; i < len(text); i++ {
		c := text[i]
		if inQuote {
			switch c {
			case '\\':
				i++
			case '"':
				inQuote = false
			}
			continue
		}
		switch c {
		case '"':
			inQuote = true
			continue
		case '(', '[', '{':
			depth++
			continue
		case ')', ']', '}':
			depth--
			if depth < 0 {
				return nil, syntaxErrorf(i, "unbalanced %q", c)
			}
			continue
		}
		if depth > 0 || (i > 0 && !isSpace(text[i-1])) {
			continue
		}

		kw := keywordAt(text, i)
		if kw == "" || followsAS(text, i) {
			continue
		}
		if len(clauses) == 0 && strings.TrimSpace(text[:i]) != "" {
			return nil, syntaxErrorf(0, "query must start with MATCH")
		}
		if len(clauses) > 0 {
			clauses[len(clauses)-1].body = text[start:i]
		}
		clauses = append(clauses, clause{keyword: kw, offset: i + len(kw)})
		start = i + len(kw)
		i = start - 1
	}

	if inQuote {
		return nil, syntaxErrorf(len(text), "unterminated string")
	}
	if depth != 0 {
		return nil, syntaxErrorf(len(text), "unbalanced brackets")
	}
	if len(clauses) == 0 {
		return nil, syntaxErrorf(0, "query must start with MATCH")
	}
	clauses[len(clauses)-1].body = text[start:]

	if clauses[0].keyword != "MATCH" {
		return nil, syntaxErrorf(clauses[0].offset-len(clauses[0].keyword), "query must start with MATCH")
	}
	last := -1
	for _, c := range clauses {
		rank := slices.Index(clauseKeywords, c.keyword)
		if rank <= last {
			return nil, syntaxErrorf(c.offset-len(c.keyword), "unexpected %s clause", c.keyword)
		}
		last = rank
		if strings.TrimSpace(c.body) == "" {
			return nil, syntaxErrorf(c.offset, "empty %s clause", c.keyword)
		}
	}
	return clauses, nil
}

// followsAS reports whether the word before offset i is AS. A keyword in
// that position is a column alias.
func followsAS(text string, i int) bool {
	words := strings.Fields(text[:i])
	return len(words) > 0 && strings.EqualFold(words[len(words)-1], "AS")
}

func keywordAt(text string, i int) string {
	for _, kw := range clauseKeywords {
		end := i + len(kw)
		if end > len(text) || !strings.EqualFold(text[i:end], kw) {
			continue
		}
		if end < len(text) && isIdentByte(text[end]) {
			continue
		}
		return kw
	}
	return ""
}

type parser struct {
	q         *Query
	slots     map[string]int
	anon      int
	hasReturn bool
}

// slot returns the binding index for a variable, allocating one on first
// use. Every anonymous node gets a fresh slot.
func (p *parser) slot(name string) int {
	if name == "" {
		p.anon++
		// Anonymous keys cannot collide with identifiers.
		name = fmt.Sprintf(" anon%d", p.anon)
	}
	if s, ok := p.slots[name]; ok {
		return s
	}
	s := len(p.slots)
	p.slots[name] = s
	if !strings.HasPrefix(name, " ") {
		p.q.vars = append(p.q.vars, name)
	}
	return s
}

func (p *parser) bound(name string) bool {
	return slices.Contains(p.q.vars, name)
}

func (p *parser) parseMatch(c clause) error {
	pp := &patternParser{src: c.body, base: c.offset}
	patterns, err := pp.parsePatterns()
	if err != nil {
		return err
	}
	for i := range patterns {
		pat := &patterns[i]
		pat.Start.slot = p.slot(pat.Start.Var)
		for j := range pat.Steps {
			pat.Steps[j].Node.slot = p.slot(pat.Steps[j].Node.Var)
		}
	}
	p.q.Patterns = patterns
	return nil
}

func (p *parser) parseWhere(c clause) error {
	expr, err := p.parseExpr(c.body, c.offset)
	if err != nil {
		return err
	}
	p.q.Where = expr
	return nil
}

func (p *parser) parseSet(c clause) error {
	items, err := splitTopLevel(c.body, c.offset)
	if err != nil {
		return err
	}
	for _, item := range items {
		parts := strings.Split(strings.TrimSpace(item.text), ":")
		if len(parts) < 2 {
			return syntaxErrorf(item.offset, "SET item %q must be var:Label", strings.TrimSpace(item.text))
		}
		update := LabelUpdate{Var: strings.TrimSpace(parts[0])}
		if !p.bound(update.Var) {
			return syntaxErrorf(item.offset, "unbound variable %q in SET", update.Var)
		}
		for _, label := range parts[1:] {
			label = strings.TrimSpace(label)
			if !isIdent(label) {
				return syntaxErrorf(item.offset, "invalid label %q in SET", label)
			}
			update.Labels = append(update.Labels, label)
		}
		p.q.Set = append(p.q.Set, update)
	}
	return nil
}

func (p *parser) parseReturn(c clause) error {
	p.hasReturn = true
	body, offset := c.body, c.offset

	trimmed := strings.TrimLeft(body, " \t\r\n")
	if len(trimmed) > len("DISTINCT") && strings.EqualFold(trimmed[:len("DISTINCT")], "DISTINCT") && isSpace(trimmed[len("DISTINCT")]) {
		p.q.Distinct = true
		skip := len(body) - len(trimmed) + len("DISTINCT")
		body, offset = body[skip:], offset+skip
	}

	items, err := splitTopLevel(body, offset)
	if err != nil {
		return err
	}
	seen := make(map[string]bool)
	for _, item := range items {
		text := strings.TrimSpace(item.text)
		if text == "" {
			return syntaxErrorf(item.offset, "empty RETURN item")
		}
		name := text
		if m := aliasRe.FindStringSubmatch(text); m != nil {
			text, name = m[1], m[2]
		}

		expr, err := p.parseExpr(text, item.offset+strings.Index(item.text, text))
		if err != nil {
			return err
		}
		proj := Projection{Name: name, Expr: expr}
		if t, ok := expr.(*hclsyntax.ScopeTraversalExpr); ok && len(t.Traversal) == 1 {
			proj.Var = t.Traversal.RootName()
		}
		if seen[name] {
			return syntaxErrorf(item.offset, "duplicate column %q", name)
		}
		seen[name] = true
		p.q.Return = append(p.q.Return, proj)
	}
	return nil
}

// parseExpr parses an HCL expression and checks that it only references
// bound variables and known functions.
func (p *parser) parseExpr(src string, offset int) (hcl.Expression, error) {
	expr, diags := hclsyntax.ParseExpression([]byte(src), "query", hcl.Pos{Line: 1, Column: 1})
	if diags.HasErrors() {
		return nil, diagError(diags, offset)
	}

	for _, t := range expr.Variables() {
		root := t.RootName()
		if !p.bound(root) {
			return nil, syntaxErrorf(offset+t.SourceRange().Start.Byte, "unbound variable %q", root)
		}
		if len(t) > 1 {
			if attr, ok := t[1].(hcl.TraverseAttr); ok && !slices.Contains(p.q.attrs[root], attr.Name) {
				p.q.attrs[root] = append(p.q.attrs[root], attr.Name)
			}
		}
	}

	diags = hclsyntax.VisitAll(expr, func(n hclsyntax.Node) hcl.Diagnostics {
		call, ok := n.(*hclsyntax.FunctionCallExpr)
		if !ok {
			return nil
		}
		if _, known := functions[call.Name]; known {
			return nil
		}
		return hcl.Diagnostics{{
			Severity: hcl.DiagError,
			Summary:  "unknown function " + call.Name,
			Subject:  call.NameRange.Ptr(),
		}}
	})
	if diags.HasErrors() {
		return nil, diagError(diags, offset)
	}
	return expr, nil
}

func diagError(diags hcl.Diagnostics, offset int) *SyntaxError {
	d := diags[0]
	if d.Subject != nil {
		offset += d.Subject.Start.Byte
	}
	msg := d.Summary
	if d.Detail != "" {
		msg += ": " + d.Detail
	}
	return &SyntaxError{Offset: offset, Msg: msg}
}

type item struct {
	text   string
	offset int
}

// splitTopLevel splits at commas outside strings and brackets.
func splitTopLevel(s string, base int) ([]item, error) {
	var (
		items   []item
		depth   int
		inQuote bool
		start   int
	)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inQuote {
			switch c {
			case '\\':
				i++
			case '"':
				inQuote = false
			}
			continue
		}
		switch c {
		case '"':
			inQuote = true
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
		case ',':
			if depth == 0 {
				items = append(items, item{text: s[start:i], offset: base + start})
				start = i + 1
			}
		}
	}
	items = append(items, item{text: s[start:], offset: base + start})
	for _, it := range items {
		if strings.TrimSpace(it.text) == "" {
			return nil, syntaxErrorf(it.offset, "empty list item")
		}
	}
	return items, nil
}

// patternParser reads the MATCH clause.
type patternParser struct {
	src  string
	pos  int
	base int
}

func (pp *patternParser) errorf(format string, args ...any) *SyntaxError {
	return syntaxErrorf(pp.base+pp.pos, format, args...)
}

func (pp *patternParser) skipSpace() {
	for pp.pos < len(pp.src) && isSpace(pp.src[pp.pos]) {
		pp.pos++
	}
}

func (pp *patternParser) consume(tok string) bool {
	pp.skipSpace()
	if strings.HasPrefix(pp.src[pp.pos:], tok) {
		pp.pos += len(tok)
		return true
	}
	return false
}

func (pp *patternParser) expect(tok string) error {
	if !pp.consume(tok) {
		return pp.errorf("expected %q", tok)
	}
	return nil
}

func (pp *patternParser) ident() string {
	pp.skipSpace()
	start := pp.pos
	for pp.pos < len(pp.src) && isIdentByte(pp.src[pp.pos]) {
		if pp.pos == start && pp.src[pp.pos] >= '0' && pp.src[pp.pos] <= '9' {
			break
		}
		pp.pos++
	}
	return pp.src[start:pp.pos]
}

func (pp *patternParser) parsePatterns() ([]Pattern, error) {
	var patterns []Pattern
	for {
		pat, err := pp.parsePath()
		if err != nil {
			return nil, err
		}
		patterns = append(patterns, pat)
		if pp.consume(",") {
			continue
		}
		pp.skipSpace()
		if pp.pos < len(pp.src) {
			return nil, pp.errorf("unexpected %q in MATCH", pp.src[pp.pos:pp.pos+1])
		}
		return patterns, nil
	}
}

func (pp *patternParser) parsePath() (Pattern, error) {
	start, err := pp.parseNode()
	if err != nil {
		return Pattern{}, err
	}
	pat := Pattern{Start: start}
	for {
		pp.skipSpace()
		rest := pp.src[pp.pos:]
		if !strings.HasPrefix(rest, "-") && !strings.HasPrefix(rest, "<-") {
			return pat, nil
		}
		rel, err := pp.parseRel()
		if err != nil {
			return Pattern{}, err
		}
		node, err := pp.parseNode()
		if err != nil {
			return Pattern{}, err
		}
		pat.Steps = append(pat.Steps, Step{Rel: rel, Node: node})
	}
}

func (pp *patternParser) parseNode() (NodePattern, error) {
	if err := pp.expect("("); err != nil {
		return NodePattern{}, err
	}
	n := NodePattern{Var: pp.ident()}
	for pp.consume(":") {
		label := pp.ident()
		if label == "" {
			return NodePattern{}, pp.errorf("expected label after ':'")
		}
		n.Labels = append(n.Labels, label)
	}
	if err := pp.expect(")"); err != nil {
		return NodePattern{}, err
	}
	return n, nil
}

func (pp *patternParser) parseRel() (RelPattern, error) {
	if pp.consume("<-") {
		typ, err := pp.parseRelBody()
		if err != nil {
			return RelPattern{}, err
		}
		if pp.consume("->") {
			return RelPattern{}, pp.errorf("relationship cannot point both ways")
		}
		if err := pp.expect("-"); err != nil {
			return RelPattern{}, err
		}
		return RelPattern{Type: typ, Dir: graph.Incoming}, nil
	}

	if err := pp.expect("-"); err != nil {
		return RelPattern{}, err
	}
	typ, err := pp.parseRelBody()
	if err != nil {
		return RelPattern{}, err
	}
	if !pp.consume("->") {
		return RelPattern{}, pp.errorf("undirected relationships are not supported, expected \"->\"")
	}
	return RelPattern{Type: typ, Dir: graph.Outgoing}, nil
}

// parseRelBody reads the optional `[:TYPE]` part of a relationship.
func (pp *patternParser) parseRelBody() (string, error) {
	if !pp.consume("[") {
		return "", nil
	}
	if v := pp.ident(); v != "" {
		return "", pp.errorf("relationship variables are not supported")
	}
	var typ string
	if pp.consume(":") {
		if typ = pp.ident(); typ == "" {
			return "", pp.errorf("expected relationship type after ':'")
		}
	}
	if err := pp.expect("]"); err != nil {
		return "", err
	}
	return typ, nil
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

func isIdentByte(c byte) bool {
	return c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}

func isIdent(s string) bool {
	if s == "" || s[0] >= '0' && s[0] <= '9' {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !isIdentByte(s[i]) {
			return false
		}
	}
	return true
}
