package analysis

import (
	"encoding/json"

	"github.com/go-playground/validator/v10"
	"github.com/tidwall/gjson"

	"sec-rag-agent/internal/faults"
	"sec-rag-agent/internal/jsonutil"
)

// parseInto extracts the JSON object from a raw model answer, decodes it,
// normalizes enum casing, and validates the output contract. Any failure is
// a model-output fault: the call succeeded but the answer is unusable.
//
// The numeric score fields must be checked for presence by name: a missing
// key would otherwise decode to 0, which the validate tags accept and which
// collides with the values legitimate low-confidence answers carry.
func parseInto[T any](v *validator.Validate, raw string, out *T, normalize func(*T), requiredKeys ...string) *faults.Error {
	obj, ok := jsonutil.ExtractObject(raw)
	if !ok {
		return faults.New(faults.KindModelOutput, "model answer contains no JSON object")
	}
	for _, key := range requiredKeys {
		if !gjson.Get(obj, key).Exists() {
			return faults.New(faults.KindModelOutput, "model answer is missing required field %q", key)
		}
	}
	if err := json.Unmarshal([]byte(obj), out); err != nil {
		return faults.Wrap(faults.KindModelOutput, err, "model answer is not valid JSON")
	}
	normalize(out)
	if err := v.Struct(out); err != nil {
		return faults.Wrap(faults.KindModelOutput, err, "model answer violates output contract")
	}
	return nil
}
