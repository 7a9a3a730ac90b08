package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
)

// Key identifies one read query: the operation name, its positional
// arguments in order and its keyword arguments.
type Key struct {
	Op     string
	Args   []any
	Kwargs map[string]any
}

// NewKey builds a Key for op with positional args.
func NewKey(op string, args ...any) Key {
	return Key{Op: op, Args: args}
}

// With returns a copy of k with the keyword argument set. nil values are
// skipped so an unset filter and an absent one produce the same key.
func (k Key) With(name string, value any) Key {
	if isNil(value) {
		return k
	}
	kwargs := make(map[string]any, len(k.Kwargs)+1)
	for n, v := range k.Kwargs {
		kwargs[n] = v
	}
	kwargs[name] = value
	k.Kwargs = kwargs
	return k
}

type kwarg struct {
	Name  string `json:"n"`
	Value any    `json:"v"`
}

// Digest returns a hex SHA-256 over the JSON encoding of the key, with
// keyword arguments sorted by name so their order never changes the result.
func (k Key) Digest() (string, error) {
	kwargs := make([]kwarg, 0, len(k.Kwargs))
	for name, v := range k.Kwargs {
		kwargs = append(kwargs, kwarg{Name: name, Value: v})
	}
	sort.Slice(kwargs, func(i, j int) bool { return kwargs[i].Name < kwargs[j].Name })

	args := k.Args
	if args == nil {
		args = []any{}
	}
	payload, err := json.Marshal(struct {
		Op     string  `json:"op"`
		Args   []any   `json:"args"`
		Kwargs []kwarg `json:"kwargs"`
	}{k.Op, args, kwargs})
	if err != nil {
		return "", fmt.Errorf("encode cache key %s: %w", k.Op, err)
	}
	h := sha256.Sum256(payload)
	return hex.EncodeToString(h[:]), nil
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Pointer && rv.IsNil()
}
