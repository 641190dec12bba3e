package parse

import (
	"testing"

	"src.lsh.sh/pkg/tt"
)

func TestQuote(t *testing.T) {
	tt.Test(t, tt.Fn("Quote", Quote).ArgsFmt("(%q)"), tt.Table{
		// Empty string is single-quoted.
		tt.Args("").Rets(`''`),

		// Bare word when possible.
		tt.Args("x-y:z@h/d").Rets("x-y:z@h/d"),

		// Single quote when there are special characters.
		tt.Args("x$y ef").Rets("'x$y ef'"),
		tt.Args("a,b").Rets("'a,b'"),
		tt.Args("{a}").Rets("'{a}'"),

		// Tilde needs quoting only leading the word.
		tt.Args("~x").Rets("'~x'"),
		tt.Args("x~").Rets("x~"),

		// Double quote when there is a single quote or unprintable char.
		tt.Args("it's $x").Rets(`"it's \$x"`),
		tt.Args("a\nb").Rets(`"a\nb"`),
		tt.Args("\t\"\\").Rets(`"\t\"\\"`),
	})
}
