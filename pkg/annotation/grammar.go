// Package annotation reads //axon:: annotation strings and replays them
// through pkg/decorate, so controllers can be declared in comment syntax:
//
//	//axon::controller /users -Middleware=auth
//	//axon::get /:id
//	//axon::param 0 id
//	//axon::http 200
package annotation

import (
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// Prefix starts every annotation line
const Prefix = "//axon::"

// Annotation is one parsed //axon:: line
type Annotation struct {
	Pos  lexer.Position
	Kind string `parser:"'//' 'axon' '::' @Ident"`
	Args []*Arg `parser:"@@*"`
}

// Arg is a positional value or a -Key[=Value] option
type Arg struct {
	Option *Option `parser:"  @@"`
	Value  *Value  `parser:"| @@"`
}

// Option is -Key, -Key=Value or -Key=a,b,c
type Option struct {
	Key    string   `parser:"'-' @Ident"`
	Values []*Value `parser:"( '=' @@ ( ',' @@ )* )?"`
}

// Value is a single literal
type Value struct {
	String *string `parser:"  @String"`
	Path   *string `parser:"| @Path"`
	Number *string `parser:"| @Number"`
	Ident  *string `parser:"| @Ident"`
}

var annotationLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Comment", Pattern: `//`},
	{Name: "Separator", Pattern: `::`},
	{Name: "String", Pattern: `"(\\"|[^"])*"`},
	{Name: "Path", Pattern: `/[^\s,]*`},
	{Name: "Number", Pattern: `[0-9]+(\.[0-9]+)?`},
	{Name: "Ident", Pattern: `[a-zA-Z_][a-zA-Z0-9_./]*`},
	{Name: "Punct", Pattern: `[-=,]`},
	{Name: "Whitespace", Pattern: `\s+`},
})

var parser = participle.MustBuild[Annotation](
	participle.Lexer(annotationLexer),
	participle.Elide("Whitespace"),
	participle.Unquote("String"),
	participle.UseLookahead(2),
)

// Parse parses a single annotation line
func Parse(line string) (*Annotation, error) {
	return parser.ParseString("", strings.TrimSpace(line))
}

// Lines returns the annotation lines found in text, in order
func Lines(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, Prefix) {
			out = append(out, line)
		}
	}
	return out
}

// Positional returns the positional values in order
func (a *Annotation) Positional() []*Value {
	var out []*Value
	for _, arg := range a.Args {
		if arg.Value != nil {
			out = append(out, arg.Value)
		}
	}
	return out
}

// Options returns the options keyed by name. A repeated key keeps the last one.
func (a *Annotation) Options() map[string]*Option {
	out := make(map[string]*Option)
	for _, arg := range a.Args {
		if arg.Option != nil {
			out[arg.Option.Key] = arg.Option
		}
	}
	return out
}

// Text returns the literal as written, without quotes
func (v *Value) Text() string {
	switch {
	case v == nil:
		return ""
	case v.String != nil:
		return *v.String
	case v.Path != nil:
		return *v.Path
	case v.Number != nil:
		return *v.Number
	case v.Ident != nil:
		return *v.Ident
	}
	return ""
}

// Int returns the literal as an integer
func (v *Value) Int() (int, bool) {
	if v == nil || v.Number == nil {
		return 0, false
	}
	n, err := strconv.Atoi(*v.Number)
	return n, err == nil
}

// Interface returns numbers as int or float64 and everything else as string
func (v *Value) Interface() interface{} {
	if v != nil && v.Number != nil {
		if n, ok := v.Int(); ok {
			return n
		}
		f, _ := strconv.ParseFloat(*v.Number, 64)
		return f
	}
	return v.Text()
}

// Flag reports whether the option was given without a value
func (o *Option) Flag() bool {
	return len(o.Values) == 0
}

// Texts returns every value of the option as text
func (o *Option) Texts() []string {
	out := make([]string, len(o.Values))
	for i, v := range o.Values {
		out[i] = v.Text()
	}
	return out
}
