//go:build !js_eval

package rules

// NewJSEvaluator is unavailable without the js_eval build tag.
func NewJSEvaluator(opts ...JSOption) Evaluator {
	_ = applyJSOptions(opts)
	return nil
}

func isJSEvaluator(Evaluator) bool {
	return false
}

// JSAvailable reports whether the binary was built with the js_eval tag.
func JSAvailable() bool {
	return false
}
