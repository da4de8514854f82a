// Package token defines the lexical vocabulary of PEPL: token kinds, the
// fixed keyword table, and the Token type itself.
package token

import (
	"sort"

	"pepl/internal/diag"
)

// Kind identifies the lexical category of a Token.
type Kind int

const (
	EOF Kind = iota
	Newline

	Number // integer or decimal literal
	String
	InterpolationStart
	InterpolationEnd
	Ident
	True
	False
	Nil

	// Keywords
	KwType
	KwState
	KwCapabilities
	KwRequired
	KwOptional
	KwCredentials
	KwDerived
	KwInvariant
	KwAction
	KwView
	KwUpdate
	KwHandleEvent
	KwLet
	KwSet
	KwIf
	KwElse
	KwFor
	KwIn
	KwMatch
	KwAssert
	KwReturn
	KwTest
	KwTests
	KwWithResponses
	KwOk
	KwErr
	KwAnd
	KwOr
	KwNot
	KwList
	KwRecord
	KwResult
	KwNumber
	KwStringT
	KwBool
	KwColor
	KwSurface
	KwInputEvent
	KwFn

	// stdlib module names not already covered by a type keyword above
	// (list/string/color/record double as both, see keywords table below)
	ModMath
	ModCore
	ModHTTP
	ModStorage
	ModLocation
	ModNotifications
	ModTime

	// Operators (17 total)
	Plus
	Minus
	Star
	Slash
	Percent
	EqEq
	NotEq
	Lt
	Gt
	Le
	Ge
	Question
	QuestionQuestion
	Ellipsis
	Assign
	Arrow
	Pipe

	// Delimiters
	LParen
	RParen
	LBrace
	RBrace
	LBracket
	RBracket
	Comma
	Dot
	Colon
)

// keywords is the fixed table of the 39 reserved keywords of PEPL plus the
// 11 reserved stdlib module names.
var keywords = map[string]Kind{
	"type":            KwType,
	"state":           KwState,
	"capabilities":    KwCapabilities,
	"required":        KwRequired,
	"optional":        KwOptional,
	"credentials":     KwCredentials,
	"derived":         KwDerived,
	"invariant":       KwInvariant,
	"action":          KwAction,
	"view":            KwView,
	"update":          KwUpdate,
	"handleEvent":     KwHandleEvent,
	"let":             KwLet,
	"set":             KwSet,
	"if":              KwIf,
	"else":            KwElse,
	"for":             KwFor,
	"in":              KwIn,
	"match":           KwMatch,
	"assert":          KwAssert,
	"return":          KwReturn,
	"test":            KwTest,
	"tests":           KwTests,
	"with_responses":  KwWithResponses,
	"Ok":              KwOk,
	"Err":             KwErr,
	"and":             KwAnd,
	"or":              KwOr,
	"not":             KwNot,
	"list":            KwList,
	"record":          KwRecord,
	"Result":          KwResult,
	"number":          KwNumber,
	"string":          KwStringT,
	"bool":            KwBool,
	"color":           KwColor,
	"Surface":         KwSurface,
	"InputEvent":      KwInputEvent,
	"fn":              KwFn,
	"true":            True,
	"false":           False,
	"nil":             Nil,

	"math":          ModMath,
	"core":          ModCore,
	"http":          ModHTTP,
	"storage":       ModStorage,
	"location":      ModLocation,
	"notifications": ModNotifications,
	"time":          ModTime,
}

// list/string/color/record double as both a type-annotation keyword and a
// stdlib module name (list.push(...), string.upper(...), color.rgb(...),
// record.merge(...)); the parser disambiguates by syntactic position (a
// following `.ident(`), never by Kind, so the keyword table maps each to
// its single type-keyword Kind only.

// Lookup returns the Kind for an identifier text if it names a keyword or
// reserved stdlib module, and ok=false otherwise (an ordinary identifier).
func Lookup(text string) (Kind, bool) {
	k, ok := keywords[text]
	return k, ok
}

// Keywords returns every reserved word and module name recognized by
// Lookup, sorted alphabetically. A language
// reference renderer uses this to list the closed keyword vocabulary
// without duplicating the table.
func Keywords() []string {
	out := make([]string, 0, len(keywords))
	for k := range keywords {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// IsReservedModuleName reports whether name is one of the 11 reserved
// stdlib module names that may not be rebound.
func IsReservedModuleName(name string) bool {
	switch name {
	case "math", "core", "list", "record", "string", "http", "storage",
		"location", "notifications", "time", "color":
		return true
	}
	return false
}

// Token is one lexical unit: its Kind, verbatim source text, and Span.
// Interpolation segment markers carry no text of their own.
type Token struct {
	Kind Kind
	Text string
	Span diag.Span
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "UNKNOWN"
}

var kindNames = map[Kind]string{
	EOF: "EOF", Newline: "NEWLINE", Number: "NUMBER", String: "STRING",
	InterpolationStart: "INTERP_START", InterpolationEnd: "INTERP_END",
	Ident: "IDENT", True: "TRUE", False: "FALSE", Nil: "NIL",
	Plus: "+", Minus: "-", Star: "*", Slash: "/", Percent: "%",
	EqEq: "==", NotEq: "!=", Lt: "<", Gt: ">", Le: "<=", Ge: ">=",
	Question: "?", QuestionQuestion: "??", Ellipsis: "...", Assign: "=",
	Arrow: "->", Pipe: "|",
	LParen: "(", RParen: ")", LBrace: "{", RBrace: "}",
	LBracket: "[", RBracket: "]", Comma: ",", Dot: ".", Colon: ":",
}
