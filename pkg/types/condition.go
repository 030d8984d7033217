package types

// Conditions maps column names to expected values for FindBy, FindSoleBy,
// and Where. A nil value matches NULL and a slice value matches any of its
// elements.
//
// The lookup methods also accept these other condition forms:
//
//	FindBy(nil)                        unconstrained
//	FindBy("")                         unconstrained
//	FindBy([]any{})                    unconstrained
//	FindBy("rating > ?", 3)            predicate with positional values
//	FindBy([]any{"rating > ?", 3})     predicate in array form
type Conditions map[string]any

// Predicate builds the array form of a predicate condition.
func Predicate(expr string, values ...any) []any {
	out := make([]any, 0, len(values)+1)
	out = append(out, expr)
	return append(out, values...)
}
