package exprlang

import (
	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// Division must be written with whitespace after the slash, otherwise "/x"
// lexes as an absolute path.
var exprLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Whitespace", Pattern: `[ \r\n\t]+`},
	{Name: "String", Pattern: `"(\\"|[^"])*"`},
	{Name: "Hex", Pattern: `0[xX][0-9a-fA-F]+`},
	{Name: "Float", Pattern: `\d+\.\d+`},
	{Name: "Int", Pattern: `\d+`},
	{Name: "Path", Pattern: `(\.\./)+[A-Za-z_]\w*([./][A-Za-z_]\w*)*|/[A-Za-z_]\w*([./][A-Za-z_]\w*)*|[A-Za-z_]\w*(\.[A-Za-z_]\w*)*`},
	{Name: "Op", Pattern: `==|!=|<=|>=|&&|\|\||[-<>+*/(),]`},
})

var (
	predicateParser = participle.MustBuild[orNode](
		participle.Lexer(exprLexer),
		participle.Elide("Whitespace"),
		participle.Unquote("String"),
		participle.UseLookahead(2),
	)
	expressionParser = participle.MustBuild[sumNode](
		participle.Lexer(exprLexer),
		participle.Elide("Whitespace"),
		participle.Unquote("String"),
		participle.UseLookahead(2),
	)
)

type orNode struct {
	Terms []*andNode `parser:"@@ ( '||' @@ )*"`
}

type andNode struct {
	Terms []*cmpNode `parser:"@@ ( '&&' @@ )*"`
}

type cmpNode struct {
	Group *orNode      `parser:"  '(' @@ ')'"`
	Left  string       `parser:"| @Path"`
	Op    string       `parser:"  @( '==' | '!=' | '<=' | '>=' | '<' | '>' )"`
	Right *operandNode `parser:"  @@"`
}

type operandNode struct {
	Neg  bool         `parser:"@'-'?"`
	Lit  *literalNode `parser:"( @@"`
	Path *string      `parser:"| @Path )"`
}

type literalNode struct {
	Hex   *string `parser:"  @Hex"`
	Float *string `parser:"| @Float"`
	Int   *string `parser:"| @Int"`
	Str   *string `parser:"| @String"`
	Bool  *string `parser:"| @( 'true' | 'false' )"`
}

type sumNode struct {
	Head *productNode `parser:"@@"`
	Tail []*sumTail   `parser:"@@*"`
}

type sumTail struct {
	Op   string       `parser:"@( '+' | '-' )"`
	Term *productNode `parser:"@@"`
}

type productNode struct {
	Head *factorNode   `parser:"@@"`
	Tail []*productTail `parser:"@@*"`
}

type productTail struct {
	Op     string      `parser:"@( '*' | '/' )"`
	Factor *factorNode `parser:"@@"`
}

type factorNode struct {
	Neg   bool         `parser:"@'-'?"`
	Call  *callNode    `parser:"( @@"`
	Group *sumNode     `parser:"| '(' @@ ')'"`
	Lit   *literalNode `parser:"| @@"`
	Path  *string      `parser:"| @Path )"`
}

type callNode struct {
	Func string  `parser:"@( 'len' | 'size' | 'checksum' ) '('"`
	Arg  string  `parser:"@( Path | String )"`
	Algo *string `parser:"( ',' @String )? ')'"`
}
