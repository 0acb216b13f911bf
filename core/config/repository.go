package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

var (
	ErrReadConfig   = errors.New("failed to read config file")
	ErrDecodeConfig = errors.New("failed to decode config section")
)

// envVarPattern matches ${VAR} and ${VAR:-default}.
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// Repository is a tree of configuration values addressed with dotted keys.
// Safe for concurrent use.
type Repository struct {
	mu    sync.RWMutex
	items map[string]any
}

// NewRepository creates a repository from a nested map.
func NewRepository(items map[string]any) *Repository {
	if items == nil {
		items = make(map[string]any)
	}
	return &Repository{items: items}
}

// LoadDir reads every *.yaml and *.yml file below dir. A file's key is its
// path relative to dir without extension, with separators turned into dots:
// config/services/mail.yaml is available under "services.mail".
// A missing directory yields an empty repository.
func LoadDir(dir string) (*Repository, error) {
	repo := NewRepository(nil)

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := filepath.Ext(path)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}

		rel, err := filepath.Rel(dir, strings.TrimSuffix(path, ext))
		if err != nil {
			return err
		}
		key := strings.ReplaceAll(filepath.ToSlash(rel), "/", ".")

		values, err := readFile(path)
		if err != nil {
			return err
		}
		repo.Set(key, values)
		return nil
	})
	if errors.Is(err, fs.ErrNotExist) {
		return repo, nil
	}
	if err != nil {
		return nil, err
	}
	return repo, nil
}

func readFile(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrReadConfig, path, err)
	}
	values := make(map[string]any)
	if err := yaml.Unmarshal([]byte(SubstituteEnv(string(data))), &values); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrReadConfig, path, err)
	}
	return values, nil
}

// SubstituteEnv replaces ${VAR} and ${VAR:-default} with environment values.
func SubstituteEnv(content string) string {
	const escaped = "\x00ESCAPED_DOLLAR\x00"
	content = strings.ReplaceAll(content, "$$", escaped)

	content = envVarPattern.ReplaceAllStringFunc(content, func(match string) string {
		m := envVarPattern.FindStringSubmatch(match)
		if v, ok := os.LookupEnv(m[1]); ok {
			return v
		}
		return m[2]
	})

	return strings.ReplaceAll(content, escaped, "$")
}

// Has reports whether key exists.
func (r *Repository) Has(key string) bool {
	_, ok := r.Get(key)
	return ok
}

// Get returns the value at a dotted key.
func (r *Repository) Get(key string) (any, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var cur any = r.items
	for _, part := range strings.Split(key, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		if cur, ok = m[part]; !ok {
			return nil, false
		}
	}
	return cur, true
}

// Set stores value at a dotted key, creating intermediate maps.
func (r *Repository) Set(key string, value any) {
	r.mu.Lock()
	defer r.mu.Unlock()

	parts := strings.Split(key, ".")
	m := r.items
	for _, part := range parts[:len(parts)-1] {
		next, ok := m[part].(map[string]any)
		if !ok {
			next = make(map[string]any)
			m[part] = next
		}
		m = next
	}
	m[parts[len(parts)-1]] = value
}

// All returns the top-level keys.
func (r *Repository) All() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]string, 0, len(r.items))
	for k := range r.items {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// String returns the value at key formatted as a string, or def.
func (r *Repository) String(key, def string) string {
	v, ok := r.Get(key)
	if !ok || v == nil {
		return def
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// Bool returns the value at key as a bool, or def.
func (r *Repository) Bool(key string, def bool) bool {
	v, ok := r.Get(key)
	if !ok {
		return def
	}
	switch b := v.(type) {
	case bool:
		return b
	case string:
		if parsed, err := strconv.ParseBool(b); err == nil {
			return parsed
		}
	}
	return def
}

// Int returns the value at key as an int, or def.
func (r *Repository) Int(key string, def int) int {
	v, ok := r.Get(key)
	if !ok {
		return def
	}
	switch n := v.(type) {
	case int:
		return n
	case float64:
		return int(n)
	case string:
		if parsed, err := strconv.Atoi(n); err == nil {
			return parsed
		}
	}
	return def
}

// Strings returns the value at key as a string slice, or nil.
func (r *Repository) Strings(key string) []string {
	v, ok := r.Get(key)
	if !ok {
		return nil
	}
	switch s := v.(type) {
	case []string:
		return slices.Clone(s)
	case []any:
		out := make([]string, 0, len(s))
		for _, item := range s {
			out = append(out, fmt.Sprint(item))
		}
		return out
	case string:
		return []string{s}
	}
	return nil
}

// Decode maps the section at key onto out using "config" struct tags.
// A missing key leaves out untouched.
func (r *Repository) Decode(key string, out any) error {
	v, ok := r.Get(key)
	if !ok {
		return nil
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "config",
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		Result:           out,
	})
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrDecodeConfig, key, err)
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrDecodeConfig, key, err)
	}
	return nil
}
