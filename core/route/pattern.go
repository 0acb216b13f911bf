package route

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

const defaultParamPattern = `[^/]+`

var paramNameRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

type segment struct {
	literal  string
	name     string
	expr     string
	optional bool
	custom   bool
}

// Pattern is a compiled URI template.
//
// Templates are matched against paths with leading and trailing slashes
// trimmed. Literal text is used as-is inside the expression, so template
// authors must escape regexp metacharacters themselves.
type Pattern struct {
	template string
	re       *regexp.Regexp
	names    []string
	segments []segment
}

// Compile parses a template of the form "/users/{id}/{slug:[a-z-]+}/{page?}".
func Compile(template string) (*Pattern, error) {
	uri := Normalize(template)
	if uri == "/" {
		uri = ""
	}

	segs, err := scan(uri)
	if err != nil {
		return nil, fmt.Errorf("%w: '%s': %w", ErrInvalidPattern, template, err)
	}

	var (
		expr  strings.Builder
		names []string
		seen  = make(map[string]struct{})
	)
	expr.WriteString("^")
	for i, s := range segs {
		if s.name == "" {
			// A slash followed by an optional parameter moves inside the group.
			if i+1 < len(segs) && segs[i+1].optional && strings.HasSuffix(s.literal, "/") {
				expr.WriteString(strings.TrimSuffix(s.literal, "/"))
				continue
			}
			expr.WriteString(s.literal)
			continue
		}

		if _, dup := seen[s.name]; dup {
			return nil, fmt.Errorf("%w: '%s': %w: %s", ErrInvalidPattern, template, ErrDuplicateParameter, s.name)
		}
		seen[s.name] = struct{}{}
		names = append(names, s.name)

		group := fmt.Sprintf("(?P<%s>%s)", s.name, s.expr)
		if s.optional {
			if i > 0 && strings.HasSuffix(segs[i-1].literal, "/") {
				group = "(?:/" + group + ")"
			}
			group += "?"
		}
		expr.WriteString(group)
	}
	expr.WriteString("$")

	re, err := regexp.Compile(expr.String())
	if err != nil {
		return nil, fmt.Errorf("%w: '%s': %w", ErrInvalidPattern, template, err)
	}

	return &Pattern{
		template: template,
		re:       re,
		names:    names,
		segments: segs,
	}, nil
}

// MustCompile is like Compile but panics on error.
func MustCompile(template string) *Pattern {
	p, err := Compile(template)
	if err != nil {
		panic(err)
	}
	return p
}

// Template returns the raw template.
func (p *Pattern) Template() string {
	return p.template
}

// Names returns parameter names in order of appearance.
func (p *Pattern) Names() []string {
	return append([]string(nil), p.names...)
}

// Regexp returns the compiled matcher.
func (p *Pattern) Regexp() *regexp.Regexp {
	return p.re
}

// Match tests path against the pattern and extracts non-empty parameters.
func (p *Pattern) Match(path string) (Params, bool) {
	path = Normalize(path)
	if path == "/" {
		path = ""
	}

	m := p.re.FindStringSubmatch(path)
	if m == nil {
		return nil, false
	}

	params := make(Params, 0, len(p.names))
	for _, name := range p.names {
		if v := m[p.re.SubexpIndex(name)]; v != "" {
			params = append(params, Param{Name: name, Value: v})
		}
	}
	return params, true
}

// Build renders the template with the given parameter values.
// Optional parameters without a value are dropped together with their
// leading slash.
func (p *Pattern) Build(values map[string]string) (string, error) {
	var b strings.Builder
	for i, s := range p.segments {
		if s.name == "" {
			if i+1 < len(p.segments) && p.segments[i+1].optional && values[p.segments[i+1].name] == "" {
				b.WriteString(strings.TrimSuffix(s.literal, "/"))
				continue
			}
			b.WriteString(s.literal)
			continue
		}

		v := values[s.name]
		if v == "" {
			if s.optional {
				continue
			}
			return "", fmt.Errorf("%w: %s", ErrMissingParameter, s.name)
		}
		if !s.custom {
			v = url.PathEscape(v)
		}
		b.WriteString(v)
	}
	return "/" + strings.Trim(b.String(), "/"), nil
}

// Normalize trims leading and trailing slashes and maps the empty path to "/".
func Normalize(path string) string {
	path = strings.Trim(path, "/")
	if path == "" {
		return "/"
	}
	return path
}

// scan splits a template into literal and parameter segments.
// Braces nest so custom expressions may use quantifiers like {2,3}.
func scan(uri string) ([]segment, error) {
	var (
		segs []segment
		lit  strings.Builder
	)

	for i := 0; i < len(uri); i++ {
		if uri[i] != '{' {
			lit.WriteByte(uri[i])
			continue
		}

		depth := 1
		j := i + 1
		for ; j < len(uri) && depth > 0; j++ {
			switch uri[j] {
			case '{':
				depth++
			case '}':
				depth--
			}
		}
		if depth != 0 {
			return nil, ErrUnclosedParameter
		}

		s, err := parseParam(uri[i+1 : j-1])
		if err != nil {
			return nil, err
		}
		if lit.Len() > 0 {
			segs = append(segs, segment{literal: lit.String()})
			lit.Reset()
		}
		segs = append(segs, s)
		i = j - 1
	}

	if lit.Len() > 0 {
		segs = append(segs, segment{literal: lit.String()})
	}
	return segs, nil
}

func parseParam(body string) (segment, error) {
	name, expr, custom := strings.Cut(body, ":")
	s := segment{expr: defaultParamPattern}

	if strings.HasSuffix(name, "?") {
		s.optional = true
		name = strings.TrimSuffix(name, "?")
	}
	if !paramNameRe.MatchString(name) {
		return segment{}, fmt.Errorf("%w: %q", ErrInvalidParamName, name)
	}
	s.name = name

	if custom {
		if expr == "" {
			return segment{}, fmt.Errorf("%w: empty expression for %q", ErrInvalidPattern, name)
		}
		s.expr = expr
		s.custom = true
	}
	return s, nil
}
