// Package rules evaluates admission expressions against a factory snapshot.
//
// Three engines share the Evaluator interface: expr-lang/expr (the default),
// cel-go, and goja behind the js_eval build tag. Each evaluation sees the
// snapshot keys as top level variables plus now, args and metadata. A Policy
// compiles an ordered rule set and admits a request only when every rule
// yields true.
package rules
