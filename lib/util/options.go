package util

// Options is an ordered string-to-string mapping. Router-specific tunnel
// and session options must be transmitted in the order the caller supplied
// them (spec: "preserved verbatim when transmitted"), which a plain Go map
// cannot guarantee, so this is a small ordered association list instead.
type Options struct {
	keys   []string
	values map[string]string
}

// NewOptions returns an empty, ready-to-use Options.
func NewOptions() *Options {
	return &Options{values: make(map[string]string)}
}

// OptionsFromMap builds an Options from a plain map, in an unspecified but
// deterministic (sorted-key) order. Prefer Set for call sites that care
// about a specific order; this exists for convenience at API boundaries
// where callers pass map[string]string literals.
func OptionsFromMap(m map[string]string) *Options {
	o := NewOptions()
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sortStrings(keys)
	for _, k := range keys {
		o.Set(k, m[k])
	}
	return o
}

func sortStrings(s []string) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}

// Set assigns key=value, appending key to the order if it is new and
// preserving its existing position if it already occurred.
func (o *Options) Set(key, value string) {
	if o.values == nil {
		o.values = make(map[string]string)
	}
	if _, exists := o.values[key]; !exists {
		o.keys = append(o.keys, key)
	}
	o.values[key] = value
}

// Get returns the value for key and whether it was present.
func (o *Options) Get(key string) (string, bool) {
	if o == nil || o.values == nil {
		return "", false
	}
	v, ok := o.values[key]
	return v, ok
}

// Len returns the number of options.
func (o *Options) Len() int {
	if o == nil {
		return 0
	}
	return len(o.keys)
}

// Keys returns the keys in insertion order.
func (o *Options) Keys() []string {
	if o == nil {
		return nil
	}
	out := make([]string, len(o.keys))
	copy(out, o.keys)
	return out
}

// Each calls fn for every key=value pair, in insertion order.
func (o *Options) Each(fn func(key, value string)) {
	if o == nil {
		return
	}
	for _, k := range o.keys {
		fn(k, o.values[k])
	}
}

// Clone returns a deep copy.
func (o *Options) Clone() *Options {
	c := NewOptions()
	o.Each(func(k, v string) { c.Set(k, v) })
	return c
}
