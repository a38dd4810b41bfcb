package sql

// parser of the sql, which is tailered for our own usage. We briefly describe
// the grammar of sql as following EBNF
//
// ### statement -------------------------------------------------------------
//
// code := create-view | query
//
// create-view :=
//     CREATE (OR REPLACE)? (TEMPORARY|TEMP)? VIEW ID AS query
//
// query := with? select
// with := WITH with-binding (',' with-binding)*
// with-binding := ID AS '(' select ')'
//
// select :=
//     SELECT DISTINCT? projection
//     from?
//     where?
//     order-by?
//     limit?
//     format?
//
// projection := project-var (',' project-var)*
// project-var := '*' | ID '.' '*' | expr as?
// as := [AS ID]?
//
// from := FROM from-var ((','|JOIN) from-var)*
// from-var := LATERAL? from-source from-alias?
// from-source :=
//   ID '(' fn-arg-list? ')' |
//   VALUES tuple (',' tuple)* |
//   ID
// fn-arg-list := fn-arg (',' fn-arg)*
// fn-arg := expr | TABLE '(' (select | ID) ')'
// tuple := '(' const (',' const)* ')'
// from-alias := AS ID ('(' ID (',' ID)* ')')?
//
// where := WHERE expr
//
// order-by := ORDERBY expr (',' expr)* (ASC|DESC)?
//
// limit := LIMIT INT
//
// ### expression -------------------------------------------------------------
// expr :=
//   ternary |
//   binary  |
//   unary   |
//   primary |
//   suffix  |
//   const
//
// ternary := expr '?' expr ':' expr
//
// binary := expr binary-op binary
// binary-op := ... | LIKE | IS | IN | BETWEEN, with NOT prefix desugared
//
// unary := unary-op+ expr
// unary-op := ...
//
// primary := '(' expr ')'
//
// suffix := expr suffix-component-list?
// suffix-component-list := (index | dot | call)+
// index := '[' expr ']'
// dot := '.' (ID|STR)
// call := '(' call-arg-list? ')'
// call-arg-list := expr (',' expr)*
//
// const := INT | FLOAT | TRUE | FALSE | NULL | STR
//
// ----------------------------------------------------------------------------

import (
	"fmt"
)

const (
	atomicConst = iota
	atomicId
	atomicExpr
)

const (
	stageNA = iota
	stageInProjection
)

type Parser struct {
	L     *Lexer
	stage int // used to notify certain grammar
}

func newParser(xx string) *Parser {
	return &Parser{
		L: newLexer(xx),
	}
}

func NewParser(xx string) *Parser {
	return newParser(xx)
}

func (self *Parser) posStart() int {
	return self.L.Cursor
}

func (self *Parser) posEnd() int {
	return self.L.Cursor
}

func (self *Parser) snippet(start, end int) string {
	if start >= end {
		start = end
	}
	return self.L.Source[start:end]
}

func (self *Parser) err(msg string) error {
	if self.L.Token == TkError {
		return fmt.Errorf("%s", self.L.Lexeme.Text)
	} else {
		return fmt.Errorf("%s: %s", self.L.dinfo(), msg)
	}
}

func (self *Parser) expect(tk int) error {
	if self.L.Token == tk {
		self.L.Next()
		return nil
	} else {
		return self.err("unexpected token during grammar parsing")
	}
}

func (self *Parser) currentCodeInfo(start int) CodeInfo {
	return CodeInfo{
		Start:   start,
		End:     self.posEnd(),
		Snippet: self.snippet(start, self.posEnd()),
	}
}

func (self *Parser) Parse() (*Code, error) {
	c := &Code{}
	start := self.posStart()

	self.L.Next()
	switch self.L.Token {
	case TkSelect, TkWith:
		if n, err := self.parseQuery(); err != nil {
			return nil, err
		} else {
			c.Select = n
		}
		break

	case TkCreate:
		if n, err := self.parseCreateView(); err != nil {
			return nil, err
		} else {
			c.CreateView = n
		}
		break

	default:
		return nil, self.err("unknown statement, expect *select* or *create view*")
	}

	c.CodeInfo = self.currentCodeInfo(start)

	if self.L.Token == TkSemicolon {
		self.L.Next()
	}
	if self.L.Token != TkEof {
		return nil, self.err("dangling code after parser thinks the statement is finished")
	}
	return c, nil
}

func (self *Parser) parseCreateView() (*CreateView, error) {
	start := self.posStart()
	out := &CreateView{}

	self.L.Next() // eat the *create*

	if self.L.Token == TkOr {
		if self.L.Next() != TkReplace {
			return nil, self.err("expect *replace* after *or* in create view")
		}
		out.Replace = true
		self.L.Next()
	}

	if self.L.Token == TkTemporary {
		out.Temporary = true
		self.L.Next()
	}

	if err := self.expect(TkView); err != nil {
		return nil, err
	}

	if self.L.Token != TkId {
		return nil, self.err("expect an identifier to name the view")
	}
	out.Name = self.L.Lexeme.Text
	self.L.Next()

	if err := self.expect(TkAs); err != nil {
		return nil, err
	}

	if self.L.Token != TkSelect && self.L.Token != TkWith {
		return nil, self.err("expect a *select* as the view's body")
	}

	if n, err := self.parseQuery(); err != nil {
		return nil, err
	} else {
		out.Query = n
	}

	out.CodeInfo = self.currentCodeInfo(start)
	return out, nil
}

// parseQuery parses an optional WITH prefix followed by the select itself.
// The CTE list is attached onto the returned select.
func (self *Parser) parseQuery() (*Select, error) {
	with := []*CTE{}

	if self.L.Token == TkWith {
		self.L.Next()

		if err := self.parseSqlList(
			func(idx int) error {
				cteStart := self.posStart()

				if self.L.Token != TkId {
					return self.err("expect an identifier to name the with binding")
				}
				name := self.L.Lexeme.Text
				self.L.Next()

				if err := self.expect(TkAs); err != nil {
					return err
				}
				if err := self.expect(TkLPar); err != nil {
					return err
				}
				if self.L.Token != TkSelect {
					return self.err("expect a *select* as the with binding's body")
				}
				q, err := self.parseSelect()
				if err != nil {
					return err
				}
				if err := self.expect(TkRPar); err != nil {
					return err
				}

				with = append(with, &CTE{
					CodeInfo: self.currentCodeInfo(cteStart),
					Name:     name,
					Query:    q,
				})
				return nil
			},
		); err != nil {
			return nil, err
		}
	}

	if self.L.Token != TkSelect {
		return nil, self.err("expect a *select* after the with bindings")
	}

	sel, err := self.parseSelect()
	if err != nil {
		return nil, err
	}
	sel.With = with
	return sel, nil
}

func (self *Parser) parseSelect() (*Select, error) {
	self.L.Next() // skip the *select* keyword

	var projection *Projection
	var from *From
	var where *Where
	var orderBy *OrderBy
	var limit *Limit
	var format *Format

	distinct := false

	start := self.posStart()

	if self.L.Token == TkDistinct {
		distinct = true
		self.L.Next()
	}

	// projection
	if n, err := self.parseProjection(); err != nil {
		return nil, err
	} else {
		projection = n
	}

LOOP:
	for {
		switch self.L.Token {
		case TkFrom:
			if from != nil {
				return nil, self.err("from cluase has already been specified")
			}

			if n, err := self.parseFrom(); err != nil {
				return nil, err
			} else {
				from = n
			}
			break

		case TkWhere:
			if where != nil {
				return nil, self.err("where clause has already been specified")
			}
			if n, err := self.parseWhere(); err != nil {
				return nil, err
			} else {
				where = n
			}
			break

		case TkOrderBy:
			if orderBy != nil {
				return nil, self.err("order by clause has already been specified")
			}
			if n, err := self.parseOrderBy(); err != nil {
				return nil, err
			} else {
				orderBy = n
			}
			break

		case TkLimit:
			if limit != nil {
				return nil, self.err("limit caluse has already been specified")
			}
			if n, err := self.parseLimit(); err != nil {
				return nil, err
			} else {
				limit = n
			}
			break

		case TkFormat:
			if format != nil {
				return nil, self.err("format clause has already been specified")
			}
			if n, err := self.parseFormat(); err != nil {
				return nil, err
			} else {
				format = n
			}
			break

		default:
			break LOOP
		}
	}
	end := self.posEnd()

	if from == nil {
		return nil, self.err("from clause is not specified")
	}

	return &Select{
		CodeInfo: CodeInfo{
			Start:   start,
			End:     end,
			Snippet: self.snippet(start, end),
		},
		Distinct:   distinct,
		Projection: projection,
		From:       from,
		Where:      where,
		OrderBy:    orderBy,
		Limit:      limit,
		Format:     format,
	}, nil
}

func (self *Parser) parseFormat() (*Format, error) {
	self.L.Next()
	format := &Format{}

	for {
		key := ""
		idx := -1 // column index, only used when key is "column"

		var val *Const

		if self.L.Token != TkId {
			return nil, self.err("expect a *identifier* to be format option")
		}
		key = self.L.Lexeme.Text
		self.L.Next()

		switch key {
		case "title", "border", "base", "number", "string", "rest", "padding":
			break
		case "column":
			if self.L.Token != TkLPar {
				return nil, self.err(
					"expect a '(index)' after column format option",
				)
			} else {
				self.L.Next()
			}
			if self.L.Token != TkInt {
				return nil, self.err(
					"expect a positive integer to specify column index",
				)
			} else {
				idx = int(self.L.Lexeme.Int)
			}
			if self.L.Next() != TkRPar {
				return nil, self.err(
					"expect a ')' to close index expression for column format option",
				)
			}
			self.L.Next()
			break
		default:
			return nil, self.err(
				"unknown format option",
			)
		}

		if self.L.Token != TkAssign {
			return nil, self.err("expect a '=' to assign a value to format option")
		}
		self.L.Next()
		if c := self.parseConstExpr(); c == nil {
			return nil, self.err("expect a const/literal expression to be format option value")
		} else {
			val = c
		}

		switch key {
		case "title":
			format.Title = val
			break
		case "border":
			format.Border = val
			break
		case "padding":
			format.Padding = val
			break
		case "base":
			format.Base = val
			break
		case "number":
			format.Number = val
			break
		case "string":
			format.String = val
			break
		case "rest":
			format.Rest = val
			break
		default:
			format.Column = append(format.Column, FormatColumn{
				Index: idx,
				Value: val,
			})
			break
		}

		if self.L.Token != TkComma {
			break
		} else {
			self.L.Next()
		}
	}

	return format, nil
}

func (self *Parser) parseProjection() (*Projection, error) {
	x := SelectVarList{}
	start := self.posStart()

	if err := self.parseSqlList(
		func(idx int) error {
			if n, err := self.parseProjectionVar(idx); err != nil {
				return err
			} else {
				if x.HasStar() {
					return self.err("duplicated */wildcard specified")
				}
				x = append(x, n)
			}
			return nil
		},
	); err != nil {
		return nil, err
	}

	return &Projection{
		CodeInfo:  self.currentCodeInfo(start),
		ValueList: x,
	}, nil
}

func (self *Parser) parseProjectionVar(idx int) (SelectVar, error) {
	start := self.posStart()

	switch self.L.Token {
	case TkMul: // star
		self.L.Next()
		return &Star{
			CodeInfo: self.currentCodeInfo(start),
		}, nil

	default:
		var val Expr
		alias := ""
		self.stage = stageInProjection

		if e, err := self.parseExpr(); err != nil {
			return nil, err
		} else {
			val = e
		}

		self.stage = stageNA

		// a *f.** parses as a primary with a dot-star suffix, recognize it and
		// turn it into the qualified wildcard
		if ts, ok := asTableStar(val); ok {
			ts.CodeInfo = self.currentCodeInfo(start)
			return ts, nil
		}

		if self.L.Token == TkAs {
			if self.L.Next() != TkId {
				return nil, self.err("expect an alias identifier after *as*")
			}
			alias = self.L.Lexeme.Text
			self.L.Next()
		}

		return &Col{
			CodeInfo: self.currentCodeInfo(start),
			ColIndex: idx,
			As:       alias,
			Value:    val,
		}, nil
	}
}

func asTableStar(e Expr) (*TableStar, bool) {
	p, ok := e.(*Primary)
	if !ok {
		return nil, false
	}
	ref, ok := p.Leading.(*Ref)
	if !ok || len(p.Suffix) != 1 {
		return nil, false
	}
	suff := p.Suffix[0]
	if suff.Ty != SuffixDot || suff.Component != "*" {
		return nil, false
	}
	return &TableStar{Table: ref.Id}, true
}

// SQLLIST, which is a name I coin to represent grammar like following :
// element (',' element)*, the difference between the normal one is that the
// list will never be empty.  This sort of list is kind of stupid, since we need
// to at least expect one from the vars, and afterwards, we expect another one
// *after* a ',' here.  this is same for *projection*, *from*, *order by*

func (self *Parser) parseSqlList(
	visitor func(int) error,
) error {
	if err := visitor(0); err != nil {
		return err
	}
	idx := 1

	for {
		if self.L.Token != TkComma {
			break
		}
		self.L.Next()
		if err := visitor(idx); err != nil {
			return err
		}
		idx++
	}

	return nil
}

func (self *Parser) parseFromArg() (*FromArg, error) {
	start := self.posStart()
	arg := &FromArg{}

	if self.L.Token == TkTable {
		self.L.Next()
		if err := self.expect(TkLPar); err != nil {
			return nil, err
		}

		spec := &TableSpec{}
		specStart := self.posStart()

		switch self.L.Token {
		case TkSelect:
			if n, err := self.parseSelect(); err != nil {
				return nil, err
			} else {
				spec.Query = n
			}
			break

		case TkId:
			spec.Name = self.L.Lexeme.Text
			self.L.Next()
			break

		default:
			return nil, self.err("expect a *select* or a view name inside of table(...)")
		}

		if err := self.expect(TkRPar); err != nil {
			return nil, err
		}

		spec.CodeInfo = self.currentCodeInfo(specStart)
		arg.Table = spec
	} else {
		if e, err := self.parseExpr(); err != nil {
			return nil, err
		} else {
			arg.Value = e
		}
	}

	arg.CodeInfo = self.currentCodeInfo(start)
	return arg, nil
}

func (self *Parser) parseFromVar() (*FromVar, error) {
	fromVar := &FromVar{}
	start := self.posStart()

	if self.L.Token == TkLateral {
		fromVar.Lateral = true
		self.L.Next()
	}

	switch self.L.Token {
	case TkValues:
		fromVar.Kind = FromKindValues
		self.L.Next()

		if err := self.parseSqlList(
			func(idx int) error {
				if err := self.expect(TkLPar); err != nil {
					return err
				}
				tuple := []*Const{}
				for self.L.Token != TkRPar {
					if n := self.parseConstExpr(); n == nil {
						return self.err("expect a valid constant inside of values tuple")
					} else {
						tuple = append(tuple, n)
					}
					if self.L.Token == TkComma {
						self.L.Next()
					}
				}
				self.L.Next()
				if len(tuple) == 0 {
					return self.err("values tuple is empty, which is not allowed")
				}
				fromVar.Tuples = append(fromVar.Tuples, tuple)
				return nil
			},
		); err != nil {
			return nil, err
		}
		break

	case TkId:
		fromVar.Name = self.L.Lexeme.Text
		self.L.Next()

		if self.L.Token == TkLPar {
			fromVar.Kind = FromKindFunc
			self.L.Next()

			for self.L.Token != TkRPar {
				if n, err := self.parseFromArg(); err != nil {
					return nil, err
				} else {
					fromVar.Args = append(fromVar.Args, n)
				}
				if self.L.Token == TkComma {
					self.L.Next()
				}
			}
			self.L.Next()
		} else {
			fromVar.Kind = FromKindRef
		}
		break

	default:
		return nil, self.err("expect a table function call, *values*, or a view name")
	}

	// optional alias, with an optional column alias list, ie *as t(a, b)*
	if self.L.Token == TkAs {
		if self.L.Next() != TkId {
			return nil, self.err("expect a identifier after *as*")
		}
		fromVar.Alias = self.L.Lexeme.Text
		self.L.Next()

		if self.L.Token == TkLPar {
			self.L.Next()
			for {
				if self.L.Token != TkId {
					return nil, self.err("expect a identifier to be column alias")
				}
				fromVar.ColAlias = append(fromVar.ColAlias, self.L.Lexeme.Text)
				if self.L.Next() != TkComma {
					break
				}
				self.L.Next()
			}
			if err := self.expect(TkRPar); err != nil {
				return nil, err
			}
		}
	}

	fromVar.CodeInfo = self.currentCodeInfo(start)
	return fromVar, nil
}

func (self *Parser) parseFrom() (*From, error) {
	from := &From{}
	start := self.posStart()

	self.L.Next() // eat the *from*

	// a JOIN between sources is the same thing as a ',', both mean the
	// cross/lateral product of the sources
	for {
		if n, err := self.parseFromVar(); err != nil {
			return nil, err
		} else {
			from.VarList = append(from.VarList, n)
		}
		if self.L.Token == TkComma || self.L.Token == TkJoin {
			self.L.Next()
		} else {
			break
		}
	}

	from.CodeInfo = self.currentCodeInfo(start)
	return from, nil
}

func (self *Parser) parseWhere() (*Where, error) {
	start := self.posStart()

	self.L.Next()
	if n, err := self.parseExpr(); err != nil {
		return nil, err
	} else {
		return &Where{
			CodeInfo:  self.currentCodeInfo(start),
			Condition: n,
		}, nil
	}
}

func (self *Parser) parseOrderBy() (*OrderBy, error) {
	oB := &OrderBy{
		Order: OrderAsc,
	}
	start := self.posStart()
	self.L.Next() // eat order by

	// list of expression to be used for sorting keys

	if err := self.parseSqlList(
		func(idx int) error {
			if c, err := self.parseExpr(); err != nil {
				return err
			} else {
				oB.Name = append(oB.Name, c)
			}
			return nil
		},
	); err != nil {
		return nil, err
	}

	switch self.L.Token {
	case TkAsc:
		oB.Order = OrderAsc
		self.L.Next()
		break

	case TkDesc:
		oB.Order = OrderDesc
		self.L.Next()
		break

	default:
		break
	}

	oB.CodeInfo = self.currentCodeInfo(start)
	return oB, nil
}

func (self *Parser) parseLimit() (*Limit, error) {
	limit := &Limit{}

	if self.L.Next() != TkInt {
		return nil, self.err("expect a integer after limit")
	}
	limit.Limit = self.L.Lexeme.Int
	self.L.Next()
	return limit, nil
}

// ----------------------------------------------------------------------------
// Expression Parsing
// ----------------------------------------------------------------------------

func (self *Parser) parseExpr() (Expr, error) {
	return self.parseTernary()
}

func (self *Parser) parseTernary() (Expr, error) {
	start := self.posStart()

	cond, err := self.parseBinary()
	if err != nil {
		return nil, err
	}

	// check whether we have a ? mark
	if self.L.Token == TkQuestion {
		self.L.Next()

		l, err := self.parseBinary()

		if err != nil {
			return nil, err
		}

		if err := self.expect(TkColon); err != nil {
			return nil, err
		}

		r, err := self.parseBinary()
		if err != nil {
			return nil, err
		}

		end := self.posEnd()

		return &Ternary{
			Cond: cond,
			B0:   l,
			B1:   r,
			CodeInfo: CodeInfo{
				Start:   start,
				End:     end,
				Snippet: self.snippet(start, end),
			},
		}, nil
	}
	return cond, nil
}

const maxOpPrec = 7
const invalidOpPrec = -1

func (self *Parser) binPrec(tk int) int {
	switch tk {
	case TkOr:
		return 0
	case TkAnd:
		return 1
	case TkIn, TkBetween, TkLike, TkIs, TkNot:
		return 2
	case TkEq, TkNe, TkAssign:
		return 3
	case TkLt, TkLe, TkGt, TkGe:
		return 4
	case TkAdd, TkSub:
		return 5
	case TkMul, TkDiv, TkMod:
		return 6
	default:
		return invalidOpPrec
	}
}

// Binary parsing, precedence climbing
func (self *Parser) doParseBin(prec int) (Expr, error) {
	if prec == maxOpPrec {
		return self.parseUnary()
	}

	start := self.posStart()

	l, err := self.parseUnary()
	if err != nil {
		return nil, err
	}

	return self.doParseBinRest(l, prec, start)
}

func (self *Parser) parseBinary() (Expr, error) {
	return self.doParseBin(0)
}

func (self *Parser) doParseBinBetweenRHS(
	prec int,
) (Expr, Expr, error) {
	lowerBound, err := self.doParseBin(prec)
	if err != nil {
		return nil, nil, err
	}

	if self.L.Token != TkAnd {
		return nil, nil, self.err("expect AND for BETWEEN operator")
	}
	self.L.Next()

	upperBound, err := self.doParseBin(prec)
	if err != nil {
		return nil, nil, err
	}

	return lowerBound, upperBound, nil
}

func (self *Parser) doParseBinInRHS(
	prec int,
) ([]Expr, error) {
	if self.L.Token != TkLPar {
		return nil, self.err("expect '(' for IN operator's lhs")
	}
	self.L.Next()

	out := []Expr{}

	for self.L.Token != TkRPar {
		if v, err := self.parseExpr(); err != nil {
			return nil, err
		} else {
			out = append(out, v)
		}
		if self.L.Token == TkComma {
			self.L.Next()
		} else if self.L.Token != TkRPar {
			return nil, self.err("expect a ',' or ')' after element in IN's lhs")
		}
	}

	self.L.Next()
	if len(out) == 0 {
		return nil, self.err("IN operator's RHS is an empty set, which is not allowed")
	}
	return out, nil
}

// IS's RHS can only be NULL or NOT NULL, desugar into a TkIs binary against
// the null constant, maybe wrapped with a NOT
func (self *Parser) doParseBinIsRHS(
	lhs Expr,
	start int,
) (Expr, error) {
	negate := false

	if self.L.Token == TkNot {
		negate = true
		self.L.Next()
	}

	if self.L.Token != TkNull {
		return nil, self.err("expect NULL after IS operator")
	}
	nullStart := self.posStart()
	self.L.Next()

	var out Expr

	out = &Binary{
		Op: TkIs,
		L:  lhs,
		R: &Const{
			Ty:       ConstNull,
			CodeInfo: self.currentCodeInfo(nullStart),
		},
		CodeInfo: self.currentCodeInfo(start),
	}

	if negate {
		out = &Unary{
			Op:       []int{TkNot},
			Operand:  out,
			CodeInfo: self.currentCodeInfo(start),
		}
	}
	return out, nil
}

func (self *Parser) doParseBinRest(lhs Expr,
	prec int,
	start int,
) (Expr, error) {

	for {
		tk := self.L.Token
		nextPrec := self.binPrec(tk)

		if nextPrec == invalidOpPrec {
			break
		} else if nextPrec < prec {
			break
		}

		// single '=' means equality inside of an expression
		if tk == TkAssign {
			tk = TkEq
		}

		ntk := self.L.Next() // eat the operator token

		if tk == TkNot {
			switch ntk {
			case TkIn:
				tk = tkNotIn
				self.L.Next()
				break

			case TkBetween:
				tk = tkNotBetween
				self.L.Next()
				break

			case TkLike:
				tk = tkNotLike
				self.L.Next()
				break

			default:
				return nil, self.err(
					"NOT operator shows up, but expect a suffix operator, " +
						"example like NOT IN, NOT BETWEEN, NOT LIKE etcd ... ",
				)
			}
		}

		var newNode Expr
		switch tk {
		case TkBetween, tkNotBetween:
			if lower, upper, err := self.doParseBinBetweenRHS(nextPrec + 1); err != nil {
				return nil, err
			} else {
				ge := &Binary{
					Op:       TkGe,
					L:        lhs,
					R:        lower,
					CodeInfo: self.currentCodeInfo(start),
				}

				le := &Binary{
					Op:       TkLe,
					L:        lhs,
					R:        upper,
					CodeInfo: self.currentCodeInfo(start),
				}

				between := &Binary{
					Op:       TkAnd,
					L:        ge,
					R:        le,
					CodeInfo: self.currentCodeInfo(start),
				}

				if tk == TkBetween {
					newNode = between
				} else {
					newNode = &Unary{
						Op:       []int{TkNot},
						Operand:  between,
						CodeInfo: self.currentCodeInfo(start),
					}
				}
			}
			break

		case TkIn, tkNotIn:
			if v, err := self.doParseBinInRHS(nextPrec + 1); err != nil {
				return nil, err
			} else {
				var out Expr

				for _, vv := range v {
					eq := &Binary{
						Op:       TkEq,
						L:        lhs,
						R:        vv,
						CodeInfo: self.currentCodeInfo(start),
					}

					if out == nil {
						out = eq
					} else {
						out = &Binary{
							Op:       TkOr,
							L:        out,
							R:        eq,
							CodeInfo: self.currentCodeInfo(start),
						}
					}
				}

				if out == nil {
					out = &Const{
						Ty:       ConstBool,
						Bool:     false,
						CodeInfo: self.currentCodeInfo(start),
					}
				}

				if tk == tkNotIn {
					newNode = &Unary{
						Op:       []int{TkNot},
						Operand:  out,
						CodeInfo: self.currentCodeInfo(start),
					}
				} else {
					newNode = out
				}
			}
			break

		case TkLike, tkNotLike:
			if v, err := self.doParseBin(nextPrec + 1); err != nil {
				return nil, err
			} else {
				like := &Binary{
					Op:       TkLike,
					L:        lhs,
					R:        v,
					CodeInfo: self.currentCodeInfo(start),
				}
				if tk == tkNotLike {
					newNode = &Unary{
						Op:       []int{TkNot},
						Operand:  like,
						CodeInfo: self.currentCodeInfo(start),
					}
				} else {
					newNode = like
				}
			}
			break

		case TkIs:
			if v, err := self.doParseBinIsRHS(lhs, start); err != nil {
				return nil, err
			} else {
				newNode = v
			}
			break

		default:
			if v, err := self.doParseBin(nextPrec + 1); err != nil {
				return nil, err
			} else {
				newNode = &Binary{
					Op:       tk,
					L:        lhs,
					R:        v,
					CodeInfo: self.currentCodeInfo(start),
				}
			}
			break
		}

		lhs = newNode
		start = self.posEnd()
	}

	return lhs, nil
}

func (self *Parser) parseUnary() (Expr, error) {
	opList := []int{}

	start := self.posStart()

	for {
		cur := self.L.Token
		if cur == TkAdd || cur == TkSub || cur == TkNot {
			opList = append(opList, cur)
			self.L.Next()
		} else {
			break
		}
	}

	expr, err := self.parsePrimary()
	if err != nil {
		return nil, err
	}

	end := self.posEnd()

	if len(opList) > 0 {
		return &Unary{
			Op:      opList,
			Operand: expr,
			CodeInfo: CodeInfo{
				Start:   start,
				End:     end,
				Snippet: self.snippet(start, end),
			},
		}, nil
	} else {
		return expr, nil
	}
}

func (self *Parser) parsePrimary() (Expr, error) {
	start := self.posStart()

	atomic, err := self.parseAtomic()
	if err != nil {
		return nil, err
	}

	suffix := []*Suffix{}

	// check whether we have suffix afterwards
loop:
	for {
		tk := self.L.Token
		switch tk {
		case TkDot:
			dot, err := self.parseSuffixDot()
			if err != nil {
				return nil, err
			}
			suffix = append(suffix, dot)
			break

		case TkLSqr:
			index, err := self.parseSuffixIndex()
			if err != nil {
				return nil, err
			}
			suffix = append(suffix, index)
			break

		case TkLPar:
			call, err := self.parseSuffixCall(atomic)
			if err != nil {
				return nil, err
			}
			suffix = append(suffix, call)
			break

		default:
			break loop
		}
	}

	end := self.posEnd()

	if len(suffix) > 0 {
		return &Primary{
			Leading: atomic,
			Suffix:  suffix,
			CodeInfo: CodeInfo{
				Start:   start,
				End:     end,
				Snippet: self.snippet(start, end),
			},
		}, nil
	} else {
		return atomic, nil
	}
}

func (self *Parser) parseSuffixDot() (*Suffix, error) {
	start := self.posStart()
	n := self.L.Next()
	id := ""

	switch n {
	case TkId, TkStr:
		id = self.L.Lexeme.Text
		self.L.Next()
		break

	case TkMul:
		// the qualified wildcard, ie *f.**, only valid inside of projection
		if self.stage == stageInProjection {
			id = "*"
			self.L.Next()
		} else {
			return nil, self.err("invalid '*' after '.', must be in projection")
		}
		break

	default:
		return nil, self.err("expect a identifier after '.' operator")
	}

	end := self.posEnd()
	return &Suffix{
		Ty:        SuffixDot,
		Component: id,
		CodeInfo: CodeInfo{
			Start:   start,
			End:     end,
			Snippet: self.snippet(start, end),
		},
	}, nil
}

func (self *Parser) parseSuffixIndex() (*Suffix, error) {
	start := self.posStart()
	self.L.Next()

	expr, err := self.parseExpr()
	if err != nil {
		return nil, err
	}
	if err := self.expect(TkRSqr); err != nil {
		return nil, err
	}

	end := self.posEnd()

	return &Suffix{
		Ty:    SuffixIndex,
		Index: expr,
		CodeInfo: CodeInfo{
			Start:   start,
			End:     end,
			Snippet: self.snippet(start, end),
		},
	}, nil
}

func (self *Parser) parseSuffixCall(leading Expr) (*Suffix, error) {
	start := self.posStart()

	params := []Expr{}

	if self.L.Next() != TkRPar {
		for self.L.Token != TkRPar {
			if e, err := self.parseExpr(); err != nil {
				return nil, err
			} else {
				params = append(params, e)
			}
			if self.L.Token == TkComma {
				self.L.Next()
			}
		}
		self.L.Next()
	} else {
		self.L.Next()
	}

	end := self.posEnd()

	return &Suffix{
		Ty: SuffixCall,
		Call: &Call{
			Parameters: params,
			CodeInfo: CodeInfo{
				Start:   start,
				End:     end,
				Snippet: self.snippet(start, end),
			},
		},
		CodeInfo: CodeInfo{
			Start:   start,
			End:     end,
			Snippet: self.snippet(start, end),
		},
	}, nil
}

func (self *Parser) parseConstExpr() *Const {
	start := self.posStart()

	switch self.L.Token {
	case TkTrue, TkFalse:
		booleanVal := false
		if self.L.Token == TkTrue {
			booleanVal = true
		} else {
			booleanVal = false
		}
		self.L.Next()
		return &Const{
			Ty:       ConstBool,
			Bool:     booleanVal,
			CodeInfo: self.currentCodeInfo(start),
		}

	case TkNull:
		self.L.Next()
		return &Const{
			Ty:       ConstNull,
			CodeInfo: self.currentCodeInfo(start),
		}

	case TkStr:
		str := self.L.Lexeme.Text
		self.L.Next()
		return &Const{
			Ty:       ConstStr,
			String:   str,
			CodeInfo: self.currentCodeInfo(start),
		}

	case TkInt:
		v := self.L.Lexeme.Int
		self.L.Next()
		return &Const{
			Ty:       ConstInt,
			Int:      v,
			CodeInfo: self.currentCodeInfo(start),
		}

	case TkReal:
		v := self.L.Lexeme.Real
		self.L.Next()
		return &Const{
			Ty:       ConstReal,
			Real:     v,
			CodeInfo: self.currentCodeInfo(start),
		}

	// unary can also be treated as *constant expression*, but in our grammar
	// it is indeed an unary expression, we need to resolve this here as well
	case TkNot, TkAdd, TkSub:
		uop := []int{self.L.Token}
		self.L.Next()

		// get all the unary operations, this is really constant folding ...
	LOOP:
		for {
			switch self.L.Token {
			case TkNot, TkSub:
				uop = append(uop, self.L.Token)
				self.L.Next()
				break
			case TkAdd:
				self.L.Next()
				break
			default:
				break LOOP
			}
		}

		// try to parse the rest as constant expression
		if cc := self.parseConstExpr(); cc == nil {
			return nil
		} else {
			lUop := len(uop)
			for i := lUop - 1; i >= 0; i-- {
				op := uop[i]
				switch op {
				case TkNot:
					switch cc.Ty {
					case ConstNull:
						cc.Bool = true
						cc.Ty = ConstBool
						break
					case ConstBool:
						cc.Bool = !cc.Bool
						break
					case ConstInt:
						cc.Bool = (cc.Int != 0)
						cc.Ty = ConstBool
						break
					case ConstReal:
						cc.Bool = (cc.Real != 0.0)
						cc.Ty = ConstBool
						break
					default:
						cc.Bool = (len(cc.String) != 0)
						cc.Ty = ConstBool
						break
					}
					break
				default:
					switch cc.Ty {
					case ConstBool:
						if cc.Bool {
							cc.Int = int64(-1)
						} else {
							cc.Int = int64(0)
						}
						cc.Ty = ConstInt
						break
					case ConstInt:
						cc.Int = -cc.Int
						break
					case ConstReal:
						cc.Real = -cc.Real
						break
					default:
						return nil
					}
					break
				}
			}
			return cc
		}

	default:
		return nil
	}
}

func (self *Parser) parseAtomic() (Expr, error) {
	var c *Const
	var id string
	var expr Expr
	var ty int

	start := self.posStart()

	switch self.L.Token {
	// =======================================================================
	// Const value

	case TkTrue, TkFalse, TkNull, TkStr, TkInt, TkReal:
		ty = atomicConst
		c = self.parseConstExpr()
		if c == nil {
			panic("unreachable")
		}
		break

	case TkId:
		ty = atomicId
		id = self.L.Lexeme.Text
		self.L.Next()
		break

	case TkLPar:
		self.L.Next()
		e, err := self.parseExpr()
		if err != nil {
			return nil, err
		}
		if err := self.expect(TkRPar); err != nil {
			return nil, err
		}
		expr = e
		ty = atomicExpr
		break

	default:
		return nil, self.err("unexpected token for expression")
	}

	end := self.posEnd()

	switch ty {
	case atomicConst:
		return c, nil

	case atomicId:
		return &Ref{
			Id: id,
			CodeInfo: CodeInfo{
				Start:   start,
				End:     end,
				Snippet: self.snippet(start, end),
			},
		}, nil

	case atomicExpr:
		return expr, nil

	default:
		panic("unreachable")
	}
}
