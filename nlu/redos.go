package nlu

import "github.com/pkg/errors"

// CheckPattern flags regexp constructs with exponential blowup potential in
// backtracking engines: a quantified group whose body is itself quantified,
// e.g. (a+)+, (\d*){2,} or ([^"]*)*.
//
// Go's own regexp is RE2 and runs in linear time regardless, but trigger
// patterns registered with a skill routinely end up re-used by client-side
// and third-party matchers, so risky ones are worth a warning at
// registration time.
func CheckPattern(expr string) error {

	type group struct {
		start      int
		quantified bool // body contains a quantifier
	}

	var (
		stack   []group
		class   bool // inside [...]
		escaped bool
	)

	quantifierAt := func(i int) bool {
		switch expr[i] {
		case '*', '+', '{':
			return true
		}
		return false
	}

	for i := 0; i < len(expr); i++ {
		if escaped {
			escaped = false
			continue
		}
		switch c := expr[i]; {
		case c == '\\':
			escaped = true
		case class:
			if c == ']' {
				class = false
			}
		case c == '[':
			class = true
		case c == '(':
			stack = append(stack, group{start: i})
		case c == ')':
			if len(stack) == 0 {
				break // unbalanced; leave it to regexp.Compile
			}
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if top.quantified && i+1 < len(expr) && quantifierAt(i+1) {
				return errors.Errorf(
					"pattern %q: quantified group %q is itself quantified; "+
						"exponential blowup in backtracking engines",
					expr, expr[top.start:i+1],
				)
			}
			// nested quantifier bubbles up to the enclosing group
			if len(stack) > 0 && top.quantified {
				stack[len(stack)-1].quantified = true
			}
		case quantifierAt(i):
			if len(stack) > 0 {
				stack[len(stack)-1].quantified = true
			}
		}
	}

	return nil
}
