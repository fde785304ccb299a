package template

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"fnprobe/internal/clock"
)

// Tokens understood by the engine. Anything else shaped like ${...} is an error.
const (
	TokenTimestamp = "timestamp"
	TokenDate      = "date"
	TokenRunID     = "run_id"
	TokenBuildID   = "build_id"
	TokenUUID      = "uuid"
	TokenEpoch     = "epoch"
	TokenResource  = "resource"
)

const (
	timestampLayout = "2006-01-02T15:04:05Z"
	dateLayout      = "2006-01-02"
)

// Engine expands ${token} placeholders in JSON payloads
type Engine struct {
	// Pattern to match placeholders like ${run_id} or ${resource:bucket}
	tokenPattern *regexp.Regexp

	clock   clock.Clock
	ids     IDGenerator
	runID   string
	buildID string
}

// New creates a new template engine bound to a session's identifiers.
func New(clk clock.Clock, ids IDGenerator, runID, buildID string) *Engine {
	if clk == nil {
		clk = clock.RealClock{}
	}
	if ids == nil {
		ids = UUIDGenerator{}
	}
	return &Engine{
		tokenPattern: regexp.MustCompile(`\$\{([a-zA-Z_][a-zA-Z0-9_]*)(?::([^}]*))?\}`),
		clock:        clk,
		ids:          ids,
		runID:        runID,
		buildID:      buildID,
	}
}

// Scope is one expansion context. Every occurrence of ${timestamp}, ${date},
// ${epoch} and ${uuid} inside a scope resolves to the same value, so a later
// workflow step can refer to an id generated for an earlier one.
type Scope struct {
	engine    *Engine
	instant   time.Time
	id        string
	resources map[string]string
}

// NewScope captures the current instant and a fresh id.
func (e *Engine) NewScope() *Scope {
	return &Scope{
		engine:    e,
		instant:   e.clock.Now().UTC(),
		id:        e.ids.NewID(),
		resources: make(map[string]string),
	}
}

// BindResource makes ${resource:<logical>} resolve to id within this scope.
func (s *Scope) BindResource(logical, id string) {
	s.resources[logical] = id
}

// Values returns the resolved value of every fixed token in this scope.
func (s *Scope) Values() map[string]string {
	return map[string]string{
		TokenTimestamp: s.instant.Format(timestampLayout),
		TokenDate:      s.instant.Format(dateLayout),
		TokenRunID:     s.engine.runID,
		TokenBuildID:   s.engine.buildID,
		TokenUUID:      s.id,
		TokenEpoch:     strconv.FormatInt(s.instant.Unix(), 10),
	}
}

// Expand returns a copy of payload with every placeholder replaced. The
// payload is serialized to JSON text, substituted, and parsed back, so
// placeholders inside keys are expanded too. The input is never modified.
func (s *Scope) Expand(payload map[string]interface{}) (map[string]interface{}, error) {
	if payload == nil {
		return map[string]interface{}{}, nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(payload); err != nil {
		return nil, fmt.Errorf("failed to encode payload: %w", err)
	}

	text, err := s.ExpandString(buf.String())
	if err != nil {
		return nil, err
	}

	var out map[string]interface{}
	if err := json.Unmarshal([]byte(text), &out); err != nil {
		return nil, fmt.Errorf("expanded payload is not valid JSON: %w", err)
	}
	return out, nil
}

// ExpandString replaces placeholders in JSON text. Substituted values are
// escaped for use inside a JSON string literal.
func (s *Scope) ExpandString(text string) (string, error) {
	values := s.Values()

	var unknown []string
	result := s.engine.tokenPattern.ReplaceAllStringFunc(text, func(match string) string {
		parts := s.engine.tokenPattern.FindStringSubmatch(match)
		name, arg := parts[1], parts[2]

		if name == TokenResource {
			id, ok := s.resources[arg]
			if !ok || arg == "" {
				unknown = append(unknown, match)
				return match
			}
			return escapeJSON(id)
		}

		value, ok := values[name]
		if !ok || arg != "" {
			unknown = append(unknown, match)
			return match
		}
		return escapeJSON(value)
	})

	if len(unknown) > 0 {
		return "", &UnknownTokenError{Tokens: unknown}
	}
	return result, nil
}

// UnknownTokenError lists placeholders that have no value.
type UnknownTokenError struct {
	Tokens []string
}

func (e *UnknownTokenError) Error() string {
	return fmt.Sprintf("unknown template tokens: %s", strings.Join(e.Tokens, ", "))
}

// ExtractTokens lists the distinct placeholders referenced by value.
func (e *Engine) ExtractTokens(value interface{}) []string {
	tokens := make(map[string]bool)
	e.extractTokensRecursive(value, tokens)

	result := make([]string, 0, len(tokens))
	for token := range tokens {
		result = append(result, token)
	}
	sort.Strings(result)
	return result
}

func (e *Engine) extractTokensRecursive(value interface{}, tokens map[string]bool) {
	switch v := value.(type) {
	case string:
		for _, match := range e.tokenPattern.FindAllString(v, -1) {
			tokens[match] = true
		}
	case map[string]interface{}:
		for key, val := range v {
			e.extractTokensRecursive(key, tokens)
			e.extractTokensRecursive(val, tokens)
		}
	case []interface{}:
		for _, val := range v {
			e.extractTokensRecursive(val, tokens)
		}
	}
}

func escapeJSON(s string) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(s)
	quoted := strings.TrimSpace(buf.String())
	return quoted[1 : len(quoted)-1]
}
