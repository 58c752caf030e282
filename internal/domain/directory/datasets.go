package directory

import "sort"

// Well-known attribute names.
const (
	AttrEmail     = "email"
	AttrSources   = "sources"
	AttrGivenName = "givenName"
	AttrSurname   = "sn"
)

// Datasets maps an attribute name to its values.
type Datasets map[string][]string

// Values returns the values of an attribute, nil when absent.
func (d Datasets) Values(name string) []string {
	if d == nil {
		return nil
	}
	return d[name]
}

// First returns the first value of an attribute.
func (d Datasets) First(name string) (string, bool) {
	values := d.Values(name)
	if len(values) == 0 {
		return "", false
	}
	return values[0], true
}

// Set replaces the values of an attribute.
func (d Datasets) Set(name string, values ...string) {
	d[name] = append(make([]string, 0, len(values)), values...)
}

// Keys returns the attribute names in lexical order.
func (d Datasets) Keys() []string {
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clone returns a deep copy.
func (d Datasets) Clone() Datasets {
	if d == nil {
		return nil
	}
	out := make(Datasets, len(d))
	for k, v := range d {
		out[k] = append(make([]string, 0, len(v)), v...)
	}
	return out
}

// PivotMap is the destination state keyed by identity e-mail.
type PivotMap map[string]Datasets

// Keys returns the pivot identifiers in lexical order.
func (p PivotMap) Keys() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
