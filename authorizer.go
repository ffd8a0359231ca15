package tokenauth

import (
	"strconv"
	"strings"

	"github.com/gobwas/glob"
	goerrors "github.com/goliatone/go-errors"
)

// Checker is a named, path-scoped predicate over an Authentication. The
// param is the rule's argument: a role name, an authority expression, a
// minimum mfa level.
type Checker interface {
	Check(auth *Authentication, param string) bool
}

// CheckerFunc adapts a function into a Checker.
type CheckerFunc func(auth *Authentication, param string) bool

func (f CheckerFunc) Check(auth *Authentication, param string) bool {
	return f(auth, param)
}

// Rule binds an Ant-style path pattern to a named checker and an optional
// parameter.
type Rule struct {
	Pattern string
	Checker string
	Param   string

	matcher glob.Glob
}

// Checker names registered by default.
const (
	CheckerRole      = "role"
	CheckerAuthority = "authority"
	CheckerMFA       = "mfa"
)

// Engine evaluates exclude patterns and path-scoped rules against the
// restored Authentication. All state is built at construction and read-only
// afterwards.
type Engine struct {
	excludes  []glob.Glob
	rules     []Rule
	checkers  map[string]Checker
	hierarchy map[string][]string
	prefix    string
	logger    Logger
}

type EngineOption func(*Engine)

// WithChecker registers a custom named checker. Rules referencing unknown
// checker names fail closed at Authorize time.
func WithChecker(name string, c Checker) EngineOption {
	return func(e *Engine) {
		if name != "" && c != nil {
			e.checkers[name] = c
		}
	}
}

// WithRules appends authorization rules. Rules are evaluated in
// registration order; every rule whose pattern matches the path must pass.
// An empty rule set means authenticated is sufficient.
func WithRules(rules ...Rule) EngineOption {
	return func(e *Engine) {
		e.rules = append(e.rules, rules...)
	}
}

// WithEngineLogger overrides the engine logger.
func WithEngineLogger(l Logger) EngineOption {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewEngine compiles the exclude patterns and role hierarchy from cfg and
// applies the options. Invalid path patterns are an error here rather than
// a silent never-match at request time.
func NewEngine(cfg Config, opts ...EngineOption) (*Engine, error) {
	e := &Engine{
		checkers:  map[string]Checker{},
		hierarchy: expandHierarchy(cfg.GetRoleHierarchy()),
		prefix:    cfg.GetRolePrefix(),
		logger:    defLogger{},
	}

	e.checkers[CheckerRole] = CheckerFunc(e.checkRole)
	e.checkers[CheckerAuthority] = CheckerFunc(checkAuthority)
	e.checkers[CheckerMFA] = CheckerFunc(checkMFA)

	for _, pattern := range cfg.GetPathExcludes() {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, goerrors.Wrap(err, goerrors.CategoryBadInput, "invalid exclude pattern").
				WithMetadata(map[string]any{"pattern": pattern})
		}
		e.excludes = append(e.excludes, g)
	}

	for _, opt := range opts {
		opt(e)
	}

	for i := range e.rules {
		g, err := glob.Compile(e.rules[i].Pattern, '/')
		if err != nil {
			return nil, goerrors.Wrap(err, goerrors.CategoryBadInput, "invalid rule pattern").
				WithMetadata(map[string]any{"pattern": e.rules[i].Pattern})
		}
		e.rules[i].matcher = g
	}

	return e, nil
}

// Authorize returns nil when the request may proceed. Excluded paths bypass
// every check, including authentication itself. Otherwise the context must
// be authenticated and every rule matching the path must pass; rules whose
// pattern does not match are skipped, not failed.
func (e *Engine) Authorize(path string, auth *Authentication) error {
	if e.IsExcluded(path) {
		return nil
	}

	if auth.IsEmpty() || !auth.IsAuthenticated() {
		return NewAuthError(KindUnauthenticated)
	}

	for _, rule := range e.rules {
		if rule.matcher == nil || !rule.matcher.Match(path) {
			continue
		}
		checker, ok := e.checkers[rule.Checker]
		if !ok {
			e.logger.Error("unknown authorization checker %q for pattern %q", rule.Checker, rule.Pattern)
			return NewAuthError(KindForbidden)
		}
		if !checker.Check(auth, rule.Param) {
			return NewAuthError(KindForbidden)
		}
	}

	return nil
}

// IsExcluded reports whether the path matches one of the configured exclude
// patterns. Excluded paths are served regardless of token validity, so the
// pipeline adapters consult this before rendering a stored restore failure.
func (e *Engine) IsExcluded(path string) bool {
	for _, g := range e.excludes {
		if g.Match(path) {
			return true
		}
	}
	return false
}

// HasRole reports whether the authentication holds the role, applying the
// configured prefix and walking the hierarchy: a granted role implies every
// role reachable from it.
func (e *Engine) HasRole(auth *Authentication, role string) bool {
	required := e.prefixed(role)
	for _, granted := range auth.Authorities() {
		if !strings.HasPrefix(granted, e.prefix) {
			continue
		}
		if granted == required {
			return true
		}
		for _, implied := range e.hierarchy[granted] {
			if implied == required {
				return true
			}
		}
	}
	return false
}

func (e *Engine) prefixed(role string) string {
	if e.prefix == "" || strings.HasPrefix(role, e.prefix) {
		return role
	}
	return e.prefix + role
}

func (e *Engine) checkRole(auth *Authentication, param string) bool {
	return e.HasRole(auth, param)
}

func checkAuthority(auth *Authentication, param string) bool {
	return HasAuthority(auth.Authorities(), param)
}

func checkMFA(auth *Authentication, param string) bool {
	level, err := strconv.Atoi(param)
	if err != nil {
		return false
	}
	return int(auth.StatusFlags().MFALevel) >= level
}

// expandHierarchy flattens the role implication edges to their transitive
// closure with a fixed-point pass, so lookups at request time are a single
// slice scan. Cycles are tolerated.
func expandHierarchy(edges map[string][]string) map[string][]string {
	closure := make(map[string]map[string]bool, len(edges))
	for role, implied := range edges {
		set := map[string]bool{}
		for _, r := range implied {
			set[r] = true
		}
		closure[role] = set
	}

	for changed := true; changed; {
		changed = false
		for role, set := range closure {
			for implied := range set {
				for transitive := range closure[implied] {
					if transitive != role && !set[transitive] {
						set[transitive] = true
						changed = true
					}
				}
			}
		}
	}

	out := make(map[string][]string, len(closure))
	for role, set := range closure {
		for implied := range set {
			out[role] = append(out[role], implied)
		}
	}
	return out
}

// RequireRole builds a rule requiring the role on matching paths.
func RequireRole(pattern, role string) Rule {
	return Rule{Pattern: pattern, Checker: CheckerRole, Param: role}
}

// RequireAuthority builds a rule requiring the authority expression on
// matching paths.
func RequireAuthority(pattern, authority string) Rule {
	return Rule{Pattern: pattern, Checker: CheckerAuthority, Param: authority}
}

// RequireMFA builds a rule requiring at least the given mfa level on
// matching paths.
func RequireMFA(pattern string, level uint8) Rule {
	return Rule{Pattern: pattern, Checker: CheckerMFA, Param: strconv.Itoa(int(level))}
}
