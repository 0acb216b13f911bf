package route

import "context"

// Param is a single bound route parameter.
type Param struct {
	Name  string
	Value string
}

// Params holds bound parameters in template order.
type Params []Param

// Get returns the value of the named parameter or an empty string.
func (ps Params) Get(name string) string {
	v, _ := ps.Lookup(name)
	return v
}

// Lookup returns the value of the named parameter and whether it was bound.
func (ps Params) Lookup(name string) (string, bool) {
	for _, p := range ps {
		if p.Name == name {
			return p.Value, true
		}
	}
	return "", false
}

// Map returns the parameters as a map.
func (ps Params) Map() map[string]string {
	m := make(map[string]string, len(ps))
	for _, p := range ps {
		m[p.Name] = p.Value
	}
	return m
}

// Names returns the parameter names in order.
func (ps Params) Names() []string {
	names := make([]string, len(ps))
	for i, p := range ps {
		names[i] = p.Name
	}
	return names
}

type namesKey struct{}

// WithParameterNames stores the declared parameter names of the route
// being run, including optional ones that did not match.
func WithParameterNames(ctx context.Context, names []string) context.Context {
	return context.WithValue(ctx, namesKey{}, names)
}

// ParameterNames returns the names stored by WithParameterNames.
func ParameterNames(ctx context.Context) ([]string, bool) {
	names, ok := ctx.Value(namesKey{}).([]string)
	return names, ok
}

// Aligned returns one parameter per name in names order, with an empty
// value for names that were not bound.
func (ps Params) Aligned(names []string) Params {
	out := make(Params, len(names))
	for i, name := range names {
		out[i] = Param{Name: name, Value: ps.Get(name)}
	}
	return out
}
