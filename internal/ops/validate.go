package ops

import (
	"sort"
	"strings"

	"github.com/SkyflowFoundry/SkyflowForAWSLambda/internal/types"
)

// Shape checks run before any vault call. All failures carry ErrValidation and
// a message a caller can act on. No SQL shape validation happens here; the
// vault enforces SELECT-only and row limits.

func ValidateRecords(records []map[string]string) error {
	if len(records) == 0 {
		return types.Err(types.ErrValidation, nil, "records must be a non-empty array")
	}
	for i, r := range records {
		if len(r) == 0 {
			return types.Err(types.ErrValidation, nil, "record %d must be a non-empty object", i)
		}
		for k := range r {
			if k == "" {
				return types.Err(types.ErrValidation, nil, "record %d has an empty column name", i)
			}
		}
	}
	return nil
}

func ValidateCustomRecords(records []types.InsertRecord) error {
	if len(records) == 0 {
		return types.Err(types.ErrValidation, nil, "records must be a non-empty array")
	}
	for i, r := range records {
		if len(r.Fields) == 0 {
			return types.Err(types.ErrValidation, nil, "record %d must carry a non-empty fields object", i)
		}
		if len(r.Tokens) == 0 {
			return types.Err(types.ErrValidation, nil, "record %d must carry a non-empty tokens object", i)
		}
		if !sameKeySets(r.Fields, r.Tokens) {
			return types.Err(types.ErrValidation, nil,
				"record %d: fields and tokens must have identical key sets (fields: %s, tokens: %s)",
				i, joinedKeys(r.Fields), joinedKeys(r.Tokens))
		}
	}
	return nil
}

func ValidateTokens(tokens []string) error {
	if len(tokens) == 0 {
		return types.Err(types.ErrValidation, nil, "tokens must be a non-empty array")
	}
	for i, tok := range tokens {
		if tok == "" {
			return types.Err(types.ErrValidation, nil, "token %d must be a non-empty string", i)
		}
	}
	return nil
}

func ValidateRedaction(s string) error {
	if !types.ValidRedaction(s) {
		return types.Err(types.ErrValidation, nil,
			"redaction must be one of DEFAULT, REDACTED, MASKED, PLAIN_TEXT; got %q", s)
	}
	return nil
}

func ValidateQuery(q string) error {
	if strings.TrimSpace(q) == "" {
		return types.Err(types.ErrValidation, nil, "query must be a non-empty string")
	}
	return nil
}

func sameKeySets(a, b map[string]string) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}

func joinedKeys(m map[string]string) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return strings.Join(keys, ",")
}
