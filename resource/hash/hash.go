// Package hash computes stable content hashes for resource inputs.
//
// The hash identifies a specific revision of a resource's declared
// configuration. It is recorded in state when a fleet launches members so a
// later configuration change can tell which members still run the old
// revision.
package hash

import (
	"encoding/hex"
	"fmt"
	"hash/fnv"

	"github.com/zclconf/go-cty/cty"
	ctyjson "github.com/zclconf/go-cty/cty/json"
)

// Compute computes a unique string based on the values set in the resource.
//
// The following values contribute to the hash:
//   Kind name
//   Input attribute values
//
// Outputs are not included in the hash. The JSON encoding of a value is
// canonical for its type so equal inputs always hash to the same string.
//
// Panics if the input cannot be encoded. Inputs must be wholly known when
// hashed; an unresolved value here indicates a bug in the calling code.
func Compute(kind string, input cty.Value) string {
	h := fnv.New64()
	h.Write([]byte(kind)) // nolint: errcheck
	if input != cty.NilVal {
		b, err := ctyjson.Marshal(input, input.Type())
		if err != nil {
			panic(fmt.Sprintf("Encode %s input: %v", kind, err))
		}
		h.Write(b) // nolint: errcheck
	}
	return hex.EncodeToString(h.Sum(nil))
}
