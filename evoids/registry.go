// Package evoids holds the set of certificate policy OIDs which CAs have
// registered as Extended Validation policies.
package evoids

import (
	_ "embed"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/letsencrypt/evcheck/strictyaml"
)

//go:embed ev_oids.yaml
var embeddedOIDs []byte

type registryFile struct {
	Policies []string `yaml:"policies"`
}

// Registry is an immutable set of EV policy OIDs in canonical dotted-decimal
// form. The zero value is an empty registry. A Registry is safe for
// concurrent use because nothing modifies it after construction.
type Registry struct {
	oids map[string]struct{}
}

// New builds a Registry from oids, dropping duplicates. Every entry must be
// a canonical dotted-decimal OID, since lookups are exact string matches and
// a non-canonical entry could never match.
func New(oids []string) (*Registry, error) {
	r := &Registry{oids: make(map[string]struct{}, len(oids))}
	for _, oid := range oids {
		err := validateOID(oid)
		if err != nil {
			return nil, err
		}
		r.oids[oid] = struct{}{}
	}
	return r, nil
}

// Load builds a Registry from a YAML document with a single `policies` list.
func Load(yamlBytes []byte) (*Registry, error) {
	var f registryFile
	err := strictyaml.Unmarshal(yamlBytes, &f)
	if err != nil {
		return nil, fmt.Errorf("parsing EV OID list: %w", err)
	}
	return New(f.Policies)
}

var defaultRegistry = sync.OnceValue(func() *Registry {
	r, err := Load(embeddedOIDs)
	if err != nil {
		panic(fmt.Sprintf("embedded EV OID list is invalid: %s", err))
	}
	return r
})

// Default returns the process-wide Registry built from the OID list shipped
// with this package.
func Default() *Registry {
	return defaultRegistry()
}

// WithExtra returns a new Registry holding everything in r plus extra. r
// itself is left untouched.
func (r *Registry) WithExtra(extra []string) (*Registry, error) {
	return New(append(r.OIDs(), extra...))
}

// Contains reports whether oid is a registered EV policy. The comparison is
// an exact, case-sensitive string match.
func (r *Registry) Contains(oid string) bool {
	_, ok := r.oids[oid]
	return ok
}

// FirstMatch returns the first of oids that is a registered EV policy.
func (r *Registry) FirstMatch(oids []string) (string, bool) {
	for _, oid := range oids {
		if r.Contains(oid) {
			return oid, true
		}
	}
	return "", false
}

// Len returns the number of distinct OIDs in r.
func (r *Registry) Len() int {
	return len(r.oids)
}

// OIDs returns a sorted copy of the registered OIDs.
func (r *Registry) OIDs() []string {
	out := make([]string, 0, len(r.oids))
	for oid := range r.oids {
		out = append(out, oid)
	}
	slices.Sort(out)
	return out
}

// validateOID checks that oid is written the way encoding/asn1 renders an
// ObjectIdentifier: at least two arcs, decimal digits only, no leading zeros.
func validateOID(oid string) error {
	arcs := strings.Split(oid, ".")
	if len(arcs) < 2 {
		return fmt.Errorf("invalid OID %q: need at least two arcs", oid)
	}
	var values []uint64
	for _, arc := range arcs {
		if arc == "" || (len(arc) > 1 && arc[0] == '0') {
			return fmt.Errorf("invalid OID %q: arc %q is not canonical", oid, arc)
		}
		for _, c := range arc {
			if c < '0' || c > '9' {
				return fmt.Errorf("invalid OID %q: arc %q is not a decimal number", oid, arc)
			}
		}
		v, err := strconv.ParseUint(arc, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid OID %q: %w", oid, err)
		}
		values = append(values, v)
	}
	if values[0] > 2 {
		return fmt.Errorf("invalid OID %q: first arc must be 0, 1 or 2", oid)
	}
	if values[0] < 2 && values[1] > 39 {
		return fmt.Errorf("invalid OID %q: second arc must be at most 39", oid)
	}
	return nil
}
