package blockmesh

import (
	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// The grammar covers the generic OpenFOAM dictionary syntax: keyed entries
// holding either a sub-dictionary or a run of values closed by ';'.

type foamFile struct {
	Entries []*foamEntry `@@*`
}

type foamEntry struct {
	Key    string       `@Ident`
	Dict   *foamDict    `( @@`
	Values []*foamValue `| @@* ";" )`
}

type foamDict struct {
	Open    bool         `@"{"`
	Entries []*foamEntry `@@* "}"`
}

type foamList struct {
	Open  bool         `@"("`
	Items []*foamValue `@@* ")"`
}

type foamValue struct {
	Number *float64  `  @Number`
	Word   *string   `| @Ident`
	Str    *string   `| @String`
	List   *foamList `| @@`
	Dict   *foamDict `| @@`
}

var foamLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Comment", Pattern: `//[^\n]*|/\*[\s\S]*?\*/`},
	{Name: "Number", Pattern: `[-+]?(\d+\.?\d*|\.\d+)([eE][-+]?\d+)?`},
	{Name: "Ident", Pattern: `[A-Za-z_][A-Za-z0-9_.:]*`},
	{Name: "String", Pattern: `"[^"]*"`},
	{Name: "Punct", Pattern: `[(){};]`},
	{Name: "Whitespace", Pattern: `\s+`},
})

var foamParser = participle.MustBuild[foamFile](
	participle.Lexer(foamLexer),
	participle.Elide("Comment", "Whitespace"),
	participle.Unquote("String"),
)
