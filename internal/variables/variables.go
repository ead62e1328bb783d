// Package variables resolves ${name} placeholders in node inputs.
//
// Values come from built-in clock variables and from user sources (in-memory
// maps, YAML files, dotenv files). Unknown placeholders are left untouched so
// Apply never fails.
package variables

import (
	"bytes"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

var (
	markerPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_.-]*)\}`)
	namePattern   = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_.-]*$`)
)

// Service substitutes placeholders. The zero value is not usable; call New.
type Service struct {
	mu    sync.RWMutex
	vars  map[string]string
	clock func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock replaces time.Now for the built-in date and time variables.
func WithClock(clock func() time.Time) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithValues seeds the service with user variables.
func WithValues(values map[string]string) Option {
	return func(s *Service) {
		for k, v := range values {
			s.vars[k] = v
		}
	}
}

// New returns a Service with only the built-in variables.
func New(opts ...Option) *Service {
	s := &Service{vars: map[string]string{}, clock: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Set defines or replaces one user variable.
func (s *Service) Set(name, value string) error {
	if !validName(name) {
		return fmt.Errorf("variables: invalid name %q", name)
	}
	s.mu.Lock()
	s.vars[name] = value
	s.mu.Unlock()
	return nil
}

// Lookup returns the value for name, checking user variables before built-ins.
func (s *Service) Lookup(name string) (string, bool) {
	s.mu.RLock()
	v, ok := s.vars[name]
	s.mu.RUnlock()
	if ok {
		return v, true
	}
	return s.builtin(name)
}

// Names returns the user-defined variable names in sorted order.
func (s *Service) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.vars))
	for k := range s.vars {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Apply replaces every recognised ${name} marker in input. Markers with no
// value and any other text pass through unchanged.
func (s *Service) Apply(input string) string {
	return markerPattern.ReplaceAllStringFunc(input, func(marker string) string {
		name := markerPattern.FindStringSubmatch(marker)[1]
		if v, ok := s.Lookup(name); ok {
			return v
		}
		return marker
	})
}

func (s *Service) builtin(name string) (string, bool) {
	now := s.clock()
	switch name {
	case "date":
		return now.Format("2006-01-02"), true
	case "time":
		return now.Format("15:04:05"), true
	case "datetime":
		return now.Format(time.RFC3339), true
	case "timestamp":
		return strconv.FormatInt(now.Unix(), 10), true
	}
	return "", false
}

// LoadYAML merges a flat YAML mapping of name: value pairs. Scalars of any
// type are stored in their YAML text form.
func (s *Service) LoadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("variables: read %s: %w", path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	var raw map[string]yaml.Node
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("variables: decode %s: %w", path, err)
	}
	values := make(map[string]string, len(raw))
	for name, node := range raw {
		if node.Kind != yaml.ScalarNode {
			return fmt.Errorf("variables: %s: value for %q must be a scalar", path, name)
		}
		values[name] = node.Value
	}
	return s.merge(path, values)
}

// LoadDotenv merges KEY=value pairs from a dotenv file.
func (s *Service) LoadDotenv(path string) error {
	values, err := godotenv.Read(path)
	if err != nil {
		return fmt.Errorf("variables: read %s: %w", path, err)
	}
	return s.merge(path, values)
}

func (s *Service) merge(source string, values map[string]string) error {
	for name := range values {
		if !validName(name) {
			return fmt.Errorf("variables: %s: invalid name %q", source, name)
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for name, v := range values {
		s.vars[name] = v
	}
	return nil
}

func validName(name string) bool {
	return namePattern.MatchString(name)
}
