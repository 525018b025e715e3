// Copyright (C) 2022 Sneller, Inc.
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

package query

// Parse reads the query text into an Expr tree. The grammar is a design
// choice the base specification leaves open; this recursive-descent parser
// supports:
//
//	expr       := app
//	app        := primary primary*            (left-associative: ((f x) y))
//	primary    := base trailer*
//	trailer    := '{' predicate '}'            (wraps as a filter predicate-op)
//	base       := NUMBER | STRING | ident
//	            | '(' expr ')'
//	            | '[' (expr (',' expr)*)? ']'  (stream literal)
//	            | '|' (IDENT (',' IDENT)*)? '|' expr   (lambda)
//	predicate  := orPred
//	orPred     := andPred ('or' andPred)*
//	andPred    := notPred ('and' notPred)*
//	notPred    := 'not' notPred | atomPred
//	atomPred   := IDENT ':' predValue
//	            | 'ends' '(' predicate ')'
//	            | 'any' '(' predicate ')'
//	            | 'all' '(' predicate ')'
//	            | '(' predicate ')'
//	predValue  := REGEX | atomPred | expr
func Parse(src string) (Expr, error) {
	p := &parser{lx: newLexer(src)}
	if err := p.advance(); err != nil {
		return nil, err
	}
	e, err := p.parseApp()
	if err != nil {
		return nil, err
	}
	if p.tok.kind != tokEOF {
		return nil, p.errorf("unexpected trailing input")
	}
	return e, nil
}

type parser struct {
	lx  *lexer
	tok token
}

func (p *parser) errorf(format string, args ...any) error {
	return p.lx.errorf(format, args...)
}

func (p *parser) advance() error {
	t, err := p.lx.next()
	if err != nil {
		return err
	}
	p.tok = t
	return nil
}

func (p *parser) expect(k tokKind, what string) error {
	if p.tok.kind != k {
		return p.errorf("expected %s", what)
	}
	return p.advance()
}

// parseApp parses a juxtaposition chain of primaries as left-associative
// application (§3's App: argument, function — the first primary is the
// function, each subsequent primary is applied to the running result).
func (p *parser) parseApp() (Expr, error) {
	e, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for p.startsPrimary() {
		arg, err := p.parsePrimary()
		if err != nil {
			return nil, err
		}
		e = &App{Func: e, Arg: arg}
	}
	return e, nil
}

func (p *parser) startsPrimary() bool {
	switch p.tok.kind {
	case tokNumber, tokString, tokIdent, tokLParen, tokLBracket, tokPipe:
		return true
	default:
		return false
	}
}

func (p *parser) parsePrimary() (Expr, error) {
	e, err := p.parseBase()
	if err != nil {
		return nil, err
	}
	for p.tok.kind == tokLBrace {
		e, err = p.parseTrailer(e)
		if err != nil {
			return nil, err
		}
	}
	return e, nil
}

// parseTrailer wraps stream in a filter predicate-op: `stream { predicate }`
// (§3's PredicateOp, always Op=Filter from concrete syntax).
func (p *parser) parseTrailer(stream Expr) (Expr, error) {
	if err := p.advance(); err != nil { // consume '{'
		return nil, err
	}
	pred, err := p.parsePredicate()
	if err != nil {
		return nil, err
	}
	if err := p.expect(tokRBrace, "'}'"); err != nil {
		return nil, err
	}
	return &PredicateOp{Stream: stream, Op: OpFilter, Pred: pred}, nil
}

func (p *parser) parseBase() (Expr, error) {
	switch p.tok.kind {
	case tokNumber:
		n := p.tok.num
		if err := p.advance(); err != nil {
			return nil, err
		}
		return Number(n), nil

	case tokString:
		s := p.tok.text
		if err := p.advance(); err != nil {
			return nil, err
		}
		return String(s), nil

	case tokIdent:
		name := p.tok.text
		if err := p.advance(); err != nil {
			return nil, err
		}
		if kind, ok := ReservedVar(name); ok {
			return &Var{Kind: kind, Name: name}, nil
		}
		return &Var{Kind: VarLexical, Name: name}, nil

	case tokLParen:
		if err := p.advance(); err != nil {
			return nil, err
		}
		e, err := p.parseApp()
		if err != nil {
			return nil, err
		}
		if err := p.expect(tokRParen, "')'"); err != nil {
			return nil, err
		}
		return e, nil

	case tokLBracket:
		return p.parseStreamLiteral()

	case tokPipe:
		return p.parseLambda()

	default:
		return nil, p.errorf("expected an expression")
	}
}

func (p *parser) parseStreamLiteral() (Expr, error) {
	if err := p.advance(); err != nil { // consume '['
		return nil, err
	}
	var elems []Expr
	if p.tok.kind != tokRBracket {
		for {
			e, err := p.parseApp()
			if err != nil {
				return nil, err
			}
			elems = append(elems, e)
			if p.tok.kind != tokComma {
				break
			}
			if err := p.advance(); err != nil {
				return nil, err
			}
		}
	}
	if err := p.expect(tokRBracket, "']'"); err != nil {
		return nil, err
	}
	return &StreamLiteral{Elems: elems}, nil
}

func (p *parser) parseLambda() (Expr, error) {
	if err := p.advance(); err != nil { // consume opening '|'
		return nil, err
	}
	var formals []string
	if p.tok.kind != tokPipe {
		for {
			if p.tok.kind != tokIdent {
				return nil, p.errorf("expected a formal parameter name")
			}
			formals = append(formals, p.tok.text)
			if err := p.advance(); err != nil {
				return nil, err
			}
			if p.tok.kind != tokComma {
				break
			}
			if err := p.advance(); err != nil {
				return nil, err
			}
		}
	}
	if err := p.expect(tokPipe, "'|'"); err != nil {
		return nil, err
	}
	body, err := p.parseApp()
	if err != nil {
		return nil, err
	}
	return &Lambda{Formals: formals, Body: body}, nil
}

// --- predicates ---------------------------------------------------------

func (p *parser) parsePredicate() (Predicate, error) {
	return p.parseOr()
}

func (p *parser) parseOr() (Predicate, error) {
	first, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	subs := []Predicate{first}
	for p.tok.kind == tokIdent && p.tok.text == "or" {
		if err := p.advance(); err != nil {
			return nil, err
		}
		next, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		subs = append(subs, next)
	}
	if len(subs) == 1 {
		return subs[0], nil
	}
	return &PredOr{Subs: subs}, nil
}

func (p *parser) parseAnd() (Predicate, error) {
	first, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	subs := []Predicate{first}
	for p.tok.kind == tokIdent && p.tok.text == "and" {
		if err := p.advance(); err != nil {
			return nil, err
		}
		next, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		subs = append(subs, next)
	}
	if len(subs) == 1 {
		return subs[0], nil
	}
	return &PredAnd{Subs: subs}, nil
}

func (p *parser) parseNot() (Predicate, error) {
	if p.tok.kind == tokIdent && p.tok.text == "not" {
		if err := p.advance(); err != nil {
			return nil, err
		}
		sub, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return &PredNot{Sub: sub}, nil
	}
	return p.parseAtomPred()
}

func (p *parser) parseAtomPred() (Predicate, error) {
	if p.tok.kind == tokLParen {
		if err := p.advance(); err != nil {
			return nil, err
		}
		pred, err := p.parsePredicate()
		if err != nil {
			return nil, err
		}
		if err := p.expect(tokRParen, "')'"); err != nil {
			return nil, err
		}
		return pred, nil
	}

	if p.tok.kind == tokIdent {
		switch p.tok.text {
		case "ends":
			return p.parseQuantifier(func(sub Predicate) Predicate { return &PredEnds{Sub: sub} })
		case "any":
			return p.parseQuantifier(func(sub Predicate) Predicate { return &PredAny{Sub: sub} })
		case "all":
			return p.parseQuantifier(func(sub Predicate) Predicate { return &PredAll{Sub: sub} })
		}

		name := p.tok.text
		if err := p.advance(); err != nil {
			return nil, err
		}
		if err := p.expect(tokColon, "':'"); err != nil {
			return nil, err
		}
		sub, err := p.parsePredValue()
		if err != nil {
			return nil, err
		}
		return &PredField{Name: name, Sub: sub}, nil
	}

	return nil, p.errorf("expected a predicate")
}

func (p *parser) parseQuantifier(wrap func(Predicate) Predicate) (Predicate, error) {
	if err := p.advance(); err != nil { // consume keyword
		return nil, err
	}
	if err := p.expect(tokLParen, "'('"); err != nil {
		return nil, err
	}
	sub, err := p.parsePredicate()
	if err != nil {
		return nil, err
	}
	if err := p.expect(tokRParen, "')'"); err != nil {
		return nil, err
	}
	return wrap(sub), nil
}

// parsePredValue parses the right-hand side of a field predicate: a regex
// literal, a nested quantifier/parenthesized predicate, or an expression
// tested for equality (§3's Predicate variants).
func (p *parser) parsePredValue() (Predicate, error) {
	if p.tok.kind == tokRegex {
		src := p.tok.text
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &PredRegex{Source: src}, nil
	}
	if p.tok.kind == tokLParen || (p.tok.kind == tokIdent && isQuantifierKeyword(p.tok.text)) {
		return p.parseAtomPred()
	}
	e, err := p.parseApp()
	if err != nil {
		return nil, err
	}
	return &PredExpr{E: e}, nil
}

func isQuantifierKeyword(s string) bool {
	return s == "ends" || s == "any" || s == "all"
}
