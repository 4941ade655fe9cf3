package lexparse

import (
	"fmt"

	"github.com/just-be-dev/pex-sub001/internal/ast"
)

// ParseMode configures optional front-end behaviors that live entirely in
// this package: ShellMode auto-injects $$ into the program's last
// top-level expression when it contains no source reference at all.
type ParseMode int

const (
	ShellMode ParseMode = 1 << iota
)

// Parse parses a complete PEX program into the AST contract internal/lower
// consumes.
func Parse(src string, mode ParseMode) (*ast.File, error) {
	p := &parser{lex: NewLexer(src)}
	if err := p.advance(); err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	if p.tok.Kind != TEOF {
		return nil, fmt.Errorf("lexparse: unexpected trailing token at offset %d", p.tok.Pos)
	}
	if mode&ShellMode != 0 {
		body = applyShellMode(body)
	}
	return &ast.File{Body: body}, nil
}

type parser struct {
	lex *Lexer
	tok Token
}

func (p *parser) advance() error {
	t, err := p.lex.Next()
	if err != nil {
		return err
	}
	p.tok = t
	return nil
}

func (p *parser) skipSemis() error {
	for p.tok.Kind == TSemi {
		if err := p.advance(); err != nil {
			return err
		}
	}
	return nil
}

func (p *parser) atBlockEnd() bool {
	return p.tok.Kind == TEOF || p.tok.Kind == TRParen
}

// parseBlock parses a sequence of statements at the current lexical scope,
// stopping at a block terminator (EOF or an enclosing ')'). A let:/fn:
// statement swallows every statement that syntactically follows it into
// its own Rest field, so it is always the last element of the returned
// slice; internal/lower.lowerSeq relies on exactly this shape.
func (p *parser) parseBlock() ([]ast.Node, error) {
	if err := p.skipSemis(); err != nil {
		return nil, err
	}
	if p.atBlockEnd() {
		return nil, nil
	}

	if p.tok.Kind == TIdentColon && p.tok.Text == "let" {
		n, err := p.parseLet()
		if err != nil {
			return nil, err
		}
		return []ast.Node{n}, nil
	}
	if p.tok.Kind == TIdentColon && p.tok.Text == "fn" {
		n, err := p.parseFn()
		if err != nil {
			return nil, err
		}
		return []ast.Node{n}, nil
	}

	stmt, err := p.parseStmt()
	if err != nil {
		return nil, err
	}
	if err := p.skipSemis(); err != nil {
		return nil, err
	}
	rest, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return append([]ast.Node{stmt}, rest...), nil
}

// parseStmt parses one ordinary statement: either a "name: args..." effect
// invocation or a plain expression.
func (p *parser) parseStmt() (ast.Node, error) {
	if p.tok.Kind == TIdentColon {
		return p.parseEffectStmt()
	}
	return p.parsePipeline()
}

func (p *parser) parseLet() (ast.Node, error) {
	if err := p.advance(); err != nil { // consume "let:"
		return nil, err
	}
	if p.tok.Kind != TIdent {
		return nil, fmt.Errorf("lexparse: expected identifier after 'let:' at offset %d", p.tok.Pos)
	}
	name := p.tok.Text
	if err := p.advance(); err != nil {
		return nil, err
	}
	value, err := p.parsePipeline()
	if err != nil {
		return nil, err
	}
	if err := p.skipSemis(); err != nil {
		return nil, err
	}
	rest, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return &ast.Let{Name: name, Value: value, Rest: rest}, nil
}

func (p *parser) parseFn() (ast.Node, error) {
	if err := p.advance(); err != nil { // consume "fn:"
		return nil, err
	}
	if p.tok.Kind != TIdent {
		return nil, fmt.Errorf("lexparse: expected identifier after 'fn:' at offset %d", p.tok.Pos)
	}
	name := p.tok.Text
	if err := p.advance(); err != nil {
		return nil, err
	}
	params, err := p.parseParamList()
	if err != nil {
		return nil, err
	}
	body, err := p.parseStmtsUntilSemi()
	if err != nil {
		return nil, err
	}
	if err := p.skipSemis(); err != nil {
		return nil, err
	}
	rest, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return &ast.Fn{Name: name, Params: params, Body: body, Rest: rest}, nil
}

func (p *parser) parseParamList() ([]string, error) {
	if p.tok.Kind != TLParen {
		return nil, fmt.Errorf("lexparse: expected '(' to start parameter list at offset %d", p.tok.Pos)
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	var params []string
	for p.tok.Kind != TRParen {
		if p.tok.Kind != TIdent {
			return nil, fmt.Errorf("lexparse: expected parameter name at offset %d", p.tok.Pos)
		}
		params = append(params, p.tok.Text)
		if err := p.advance(); err != nil {
			return nil, err
		}
	}
	if err := p.advance(); err != nil { // consume ')'
		return nil, err
	}
	return params, nil
}

// parseStmtsUntilSemi reads one or more expressions up to the next
// statement separator, treating a multi-token fn body as an implicit
// sequence.
func (p *parser) parseStmtsUntilSemi() ([]ast.Node, error) {
	var nodes []ast.Node
	for p.tok.Kind != TSemi && p.tok.Kind != TEOF && p.tok.Kind != TRParen {
		n, err := p.parsePipeline()
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	return nodes, nil
}

func (p *parser) parseEffectStmt() (ast.Node, error) {
	name := p.tok.Text
	if err := p.advance(); err != nil { // consume "name:"
		return nil, err
	}
	args, err := p.parseStmtsUntilSemi()
	if err != nil {
		return nil, err
	}
	return &ast.Effect{Name: name, Args: args}, nil
}

// parsePipeline parses "stage | stage | ...", desugaring left to right into
// nested calls. $ inside a later stage is substituted with the previous
// stage's AST; a stage with no $ is treated as the callee applied to the
// previous stage's value.
func (p *parser) parsePipeline() (ast.Node, error) {
	first, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	result := first
	for p.tok.Kind == TPipe {
		if err := p.advance(); err != nil {
			return nil, err
		}
		stage, err := p.parsePrimary()
		if err != nil {
			return nil, err
		}
		result = desugarPipeStage(stage, result)
	}
	return result, nil
}

func desugarPipeStage(stage, prev ast.Node) ast.Node {
	if containsPipeSlot(stage) {
		return substitutePipeSlot(stage, prev)
	}
	return &ast.Call{Callee: stage, Args: []ast.Node{prev}}
}

func containsPipeSlot(n ast.Node) bool {
	switch x := n.(type) {
	case *ast.PipeSlot:
		return true
	case *ast.Call:
		if containsPipeSlot(x.Callee) {
			return true
		}
		for _, a := range x.Args {
			if containsPipeSlot(a) {
				return true
			}
		}
		return false
	case *ast.If:
		return containsPipeSlot(x.Cond) || containsPipeSlot(x.Then) || (x.Else != nil && containsPipeSlot(x.Else))
	case *ast.And:
		return containsPipeSlot(x.Left) || containsPipeSlot(x.Right)
	case *ast.Or:
		return containsPipeSlot(x.Left) || containsPipeSlot(x.Right)
	default:
		return false
	}
}

func substitutePipeSlot(n, prev ast.Node) ast.Node {
	switch x := n.(type) {
	case *ast.PipeSlot:
		return prev
	case *ast.Call:
		args := make([]ast.Node, len(x.Args))
		for i, a := range x.Args {
			args[i] = substitutePipeSlot(a, prev)
		}
		return &ast.Call{Callee: substitutePipeSlot(x.Callee, prev), Args: args}
	case *ast.If:
		var els ast.Node
		if x.Else != nil {
			els = substitutePipeSlot(x.Else, prev)
		}
		return &ast.If{Cond: substitutePipeSlot(x.Cond, prev), Then: substitutePipeSlot(x.Then, prev), Else: els}
	case *ast.And:
		return &ast.And{Left: substitutePipeSlot(x.Left, prev), Right: substitutePipeSlot(x.Right, prev)}
	case *ast.Or:
		return &ast.Or{Left: substitutePipeSlot(x.Left, prev), Right: substitutePipeSlot(x.Right, prev)}
	default:
		return n
	}
}

// parsePrimary parses a single non-pipeline expression: a literal, a source
// reference, an identifier, or a parenthesized form.
func (p *parser) parsePrimary() (ast.Node, error) {
	switch p.tok.Kind {
	case TNumber:
		n := &ast.Literal{Kind: ast.LitNumber, Num: p.tok.Num}
		return n, p.advance()
	case TString:
		n := &ast.Literal{Kind: ast.LitString, Str: p.tok.Str}
		return n, p.advance()
	case TRegex:
		n := &ast.Literal{Kind: ast.LitRegex}
		n.Regex.Pattern, n.Regex.Flags = p.tok.Text, p.tok.Str
		return n, p.advance()
	case TDollarDollar:
		return &ast.SourceRef{Whole: true}, p.advance()
	case TDollarNum:
		n := &ast.SourceRef{Index: int(p.tok.Num)}
		return n, p.advance()
	case TDollar:
		return &ast.PipeSlot{}, p.advance()
	case TIdent:
		return p.parseIdentOrKeyword()
	case TLParen:
		return p.parseParen()
	default:
		return nil, fmt.Errorf("lexparse: unexpected token at offset %d", p.tok.Pos)
	}
}

func (p *parser) parseIdentOrKeyword() (ast.Node, error) {
	text := p.tok.Text
	switch text {
	case "true":
		n := &ast.Literal{Kind: ast.LitBool, Bool: true}
		return n, p.advance()
	case "false":
		n := &ast.Literal{Kind: ast.LitBool, Bool: false}
		return n, p.advance()
	case "null":
		n := &ast.Literal{Kind: ast.LitNull}
		return n, p.advance()
	default:
		n := &ast.Ident{Name: text}
		return n, p.advance()
	}
}

// parseParen parses a parenthesized form: a let:/fn: block, a special form
// (if/and/or/fn/effect) or an ordinary call "(callee arg...)".
func (p *parser) parseParen() (ast.Node, error) {
	if err := p.advance(); err != nil { // consume '('
		return nil, err
	}
	if p.tok.Kind == TIdentColon && (p.tok.Text == "let" || p.tok.Text == "fn") {
		// parseBlock stops at the closing ')' and returns the single let/fn
		// node that swallows the rest of the block.
		block, err := p.parseBlock()
		if err != nil {
			return nil, err
		}
		if p.tok.Kind != TRParen {
			return nil, fmt.Errorf("lexparse: expected ')' to close block at offset %d", p.tok.Pos)
		}
		return block[0], p.advance()
	}
	if p.tok.Kind == TIdent {
		switch p.tok.Text {
		case "if":
			return p.finishIf()
		case "and":
			return p.finishBinaryForm(func(l, r ast.Node) ast.Node { return &ast.And{Left: l, Right: r} })
		case "or":
			return p.finishBinaryForm(func(l, r ast.Node) ast.Node { return &ast.Or{Left: l, Right: r} })
		case "fn":
			return p.finishFnExpr()
		case "effect":
			return p.finishEffectExpr()
		}
	}

	callee, err := p.parsePipeline()
	if err != nil {
		return nil, err
	}
	var args []ast.Node
	for p.tok.Kind != TRParen {
		if p.tok.Kind == TEOF {
			return nil, fmt.Errorf("lexparse: unterminated '(' ")
		}
		a, err := p.parsePipeline()
		if err != nil {
			return nil, err
		}
		args = append(args, a)
	}
	if err := p.advance(); err != nil { // consume ')'
		return nil, err
	}
	return &ast.Call{Callee: callee, Args: args}, nil
}

func (p *parser) finishIf() (ast.Node, error) {
	if err := p.advance(); err != nil { // consume "if"
		return nil, err
	}
	cond, err := p.parsePipeline()
	if err != nil {
		return nil, err
	}
	then, err := p.parsePipeline()
	if err != nil {
		return nil, err
	}
	var els ast.Node
	if p.tok.Kind != TRParen {
		els, err = p.parsePipeline()
		if err != nil {
			return nil, err
		}
	}
	if p.tok.Kind != TRParen {
		return nil, fmt.Errorf("lexparse: expected ')' to close 'if' at offset %d", p.tok.Pos)
	}
	return &ast.If{Cond: cond, Then: then, Else: els}, p.advance()
}

func (p *parser) finishBinaryForm(build func(l, r ast.Node) ast.Node) (ast.Node, error) {
	if err := p.advance(); err != nil { // consume "and"/"or"
		return nil, err
	}
	left, err := p.parsePipeline()
	if err != nil {
		return nil, err
	}
	right, err := p.parsePipeline()
	if err != nil {
		return nil, err
	}
	if p.tok.Kind != TRParen {
		return nil, fmt.Errorf("lexparse: expected ')' at offset %d", p.tok.Pos)
	}
	return build(left, right), p.advance()
}

func (p *parser) finishFnExpr() (ast.Node, error) {
	if err := p.advance(); err != nil { // consume "fn"
		return nil, err
	}
	params, err := p.parseParamList()
	if err != nil {
		return nil, err
	}
	var body []ast.Node
	for p.tok.Kind != TRParen {
		if p.tok.Kind == TEOF {
			return nil, fmt.Errorf("lexparse: unterminated anonymous fn")
		}
		n, err := p.parsePipeline()
		if err != nil {
			return nil, err
		}
		body = append(body, n)
	}
	return &ast.FnExpr{Params: params, Body: body}, p.advance()
}

// finishEffectExpr parses the "(effect name arg...)" sugar for an effect
// invocation used as an expression, equivalent in meaning to the "name:"
// trailing-colon statement form.
func (p *parser) finishEffectExpr() (ast.Node, error) {
	if err := p.advance(); err != nil { // consume "effect"
		return nil, err
	}
	if p.tok.Kind != TIdent {
		return nil, fmt.Errorf("lexparse: expected effect name at offset %d", p.tok.Pos)
	}
	name := p.tok.Text
	if err := p.advance(); err != nil {
		return nil, err
	}
	var args []ast.Node
	for p.tok.Kind != TRParen {
		if p.tok.Kind == TEOF {
			return nil, fmt.Errorf("lexparse: unterminated effect expression")
		}
		n, err := p.parsePipeline()
		if err != nil {
			return nil, err
		}
		args = append(args, n)
	}
	return &ast.Effect{Name: name, Args: args}, p.advance()
}

// applyShellMode injects $$ into the last top-level expression of body
// when it contains no source reference at all.
func applyShellMode(body []ast.Node) []ast.Node {
	if len(body) == 0 {
		return body
	}
	last := len(body) - 1
	if n := injectSourceRef(body[last]); n != nil {
		body[last] = n
	}
	return body
}

// injectSourceRef returns a rewritten node with $$ appended as an argument
// when n contains no source reference, or nil if n already has one (no
// rewrite needed). Let/Fn nodes recurse into whichever branch is the
// effective tail of the block (their own Rest, defaulting to Value/Body).
func injectSourceRef(n ast.Node) ast.Node {
	switch x := n.(type) {
	case *ast.Let:
		if len(x.Rest) > 0 {
			if r := injectSourceRef(x.Rest[len(x.Rest)-1]); r != nil {
				x.Rest[len(x.Rest)-1] = r
				return x
			}
			return nil
		}
		return nil
	case *ast.Fn:
		if len(x.Rest) > 0 {
			if r := injectSourceRef(x.Rest[len(x.Rest)-1]); r != nil {
				x.Rest[len(x.Rest)-1] = r
				return x
			}
		}
		return nil
	default:
		if hasSourceRef(n) {
			return nil
		}
		if c, ok := n.(*ast.Call); ok {
			c.Args = append(c.Args, &ast.SourceRef{Whole: true})
			return c
		}
		return &ast.Call{Callee: n, Args: []ast.Node{&ast.SourceRef{Whole: true}}}
	}
}

func hasSourceRef(n ast.Node) bool {
	switch x := n.(type) {
	case *ast.SourceRef:
		return true
	case *ast.Call:
		if hasSourceRef(x.Callee) {
			return true
		}
		for _, a := range x.Args {
			if hasSourceRef(a) {
				return true
			}
		}
		return false
	case *ast.If:
		return hasSourceRef(x.Cond) || hasSourceRef(x.Then) || (x.Else != nil && hasSourceRef(x.Else))
	case *ast.And:
		return hasSourceRef(x.Left) || hasSourceRef(x.Right)
	case *ast.Or:
		return hasSourceRef(x.Left) || hasSourceRef(x.Right)
	default:
		return false
	}
}
