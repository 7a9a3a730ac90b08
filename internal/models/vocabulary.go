package models

import (
	"sort"
	"strings"

	"github.com/wagnerlima/memory-cloud/infra-memory/internal/apperr"
)

// ObservationTypes is the fixed set of observation categories.
var ObservationTypes = NewTypeSet("observation type",
	"state", "metric", "event", "configuration",
	"dependency", "security", "performance", "test",
)

// Vocabulary lists the allowed values for every configurable type field.
// It is owned by configuration and injected into the store at construction.
type Vocabulary struct {
	EntityTypes       []string `yaml:"entity_types" validate:"required,min=1,dive,required"`
	RelationshipTypes []string `yaml:"relationship_types" validate:"required,min=1,dive,required"`
	ProviderTypes     []string `yaml:"provider_types" validate:"required,min=1,dive,required"`
}

// DefaultVocabulary returns the canonical infrastructure vocabulary.
func DefaultVocabulary() Vocabulary {
	return Vocabulary{
		EntityTypes: []string{
			"instance", "server", "container", "database", "network",
			"subnet", "load_balancer", "storage", "volume", "service",
			"application", "queue", "cluster", "firewall", "dns_record",
			"certificate", "user", "role", "policy", "module", "resource",
		},
		RelationshipTypes: []string{
			"depends_on", "connects_to", "contains", "runs_on", "hosts",
			"manages", "uses", "routes_to", "protects", "member_of",
			"replicates_to", "backs_up_to", "configures", "references",
		},
		ProviderTypes: []string{"cloud", "container", "network", "storage", "custom"},
	}
}

// Vocabularies holds the closed sets compiled from a Vocabulary.
type Vocabularies struct {
	Entity       TypeSet
	Relationship TypeSet
	Provider     TypeSet
	Observation  TypeSet
}

// Compile builds the closed sets. Entries are normalized the same way input
// values are, so configuration may use any casing.
func (v Vocabulary) Compile() Vocabularies {
	return Vocabularies{
		Entity:       NewTypeSet("entity type", v.EntityTypes...),
		Relationship: NewTypeSet("relationship type", v.RelationshipTypes...),
		Provider:     NewTypeSet("provider type", v.ProviderTypes...),
		Observation:  ObservationTypes,
	}
}

// TypeSet is a closed enumeration of normalized type names.
type TypeSet struct {
	name    string
	members map[string]struct{}
}

// NewTypeSet creates a TypeSet. name is used in validation messages.
func NewTypeSet(name string, members ...string) TypeSet {
	s := TypeSet{name: name, members: make(map[string]struct{}, len(members))}
	for _, m := range members {
		if m = NormalizeType(m); m != "" {
			s.members[m] = struct{}{}
		}
	}
	return s
}

// NormalizeType trims and lower-cases a type value.
func NormalizeType(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Contains reports whether the normalized value is a member.
func (s TypeSet) Contains(value string) bool {
	_, ok := s.members[NormalizeType(value)]
	return ok
}

// Members returns the sorted member list.
func (s TypeSet) Members() []string {
	out := make([]string, 0, len(s.members))
	for m := range s.members {
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}

// Check normalizes value and returns it, or a validation error naming field
// when the value is not a member.
func (s TypeSet) Check(field, value string) (string, error) {
	normalized := NormalizeType(value)
	if normalized == "" {
		return "", apperr.Validation(field, "required", field+" is required")
	}
	if _, ok := s.members[normalized]; !ok {
		return "", apperr.Validation(field, "vocabulary", "unknown "+s.name+" "+quote(normalized)).
			WithDetail("value", normalized).
			WithDetail("allowed", s.Members())
	}
	return normalized, nil
}

// NormalizeTypes normalizes a list of type filters and drops blank entries.
// Values are not checked against a vocabulary, so an unknown type simply
// matches nothing.
func NormalizeTypes(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if n := NormalizeType(v); n != "" {
			out = append(out, n)
		}
	}
	return out
}

func quote(s string) string {
	return `"` + s + `"`
}
