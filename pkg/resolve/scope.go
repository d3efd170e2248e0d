package resolve

import "github.com/scala-steward/coursier/pkg/descriptor"

// TransitionScope applies the standard scope transition table: the scope
// a dependency declared with `declared` takes on when reached through an
// edge inherited as `inherited`. The second return is false when the
// edge drops out of the transitive closure.
//
//	declared \ inherited   compile   runtime   provided   test
//	compile                compile   runtime   -          -
//	runtime                runtime   runtime   -          -
//	provided               -         -         -          -
//	test                   -         -         -          -
func TransitionScope(inherited, declared descriptor.Scope) (descriptor.Scope, bool) {
	switch declared {
	case descriptor.ScopeCompile, "":
		switch inherited {
		case descriptor.ScopeCompile:
			return descriptor.ScopeCompile, true
		case descriptor.ScopeRuntime:
			return descriptor.ScopeRuntime, true
		}
	case descriptor.ScopeRuntime:
		switch inherited {
		case descriptor.ScopeCompile, descriptor.ScopeRuntime:
			return descriptor.ScopeRuntime, true
		}
	}
	return "", false
}

// defaultRootScopes are the scopes of direct root dependencies that
// participate in resolution. Test-scoped roots are opt-in via
// WithRootScopes.
var defaultRootScopes = map[descriptor.Scope]bool{
	descriptor.ScopeCompile:  true,
	descriptor.ScopeRuntime:  true,
	descriptor.ScopeProvided: true,
}
