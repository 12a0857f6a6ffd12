package querycache

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// emptyOptions is the canonical form of absent or empty options.
const emptyOptions = "{}"

// BuildKey derives the cache key for a read of resource with the given
// options: resource + ":" + canonical JSON of opts. Object keys are sorted at
// every depth, so two option values with the same content always produce the
// same key. nil options canonicalize like an empty object, never a wildcard.
func BuildKey(resource string, opts any) string {
	return resource + ":" + canonical(opts)
}

// canonical returns a deterministic serialization of v. encoding/json sorts
// map keys, so round-tripping through a generic value orders struct fields
// and nested maps alike.
func canonical(v any) string {
	if v == nil {
		return emptyOptions
	}
	raw, err := json.Marshal(v)
	if err != nil {
		// Unserializable options (funcs, channels) still yield a stable key
		// within the process.
		return fmt.Sprintf("%#v", v)
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var generic any
	if err := dec.Decode(&generic); err != nil {
		return string(raw)
	}
	if generic == nil {
		return emptyOptions
	}

	out, err := json.Marshal(generic)
	if err != nil {
		return string(raw)
	}
	return string(out)
}
