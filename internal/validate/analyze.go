package validate

import (
	"encoding/json"
	"strings"

	"fnprobe/internal/invoke"
)

// dataKeys are the mapping keys recognized as carrying a result collection,
// in lookup order.
var dataKeys = []string{"data", "items", "records", "results", "rows", "body"}

var (
	successVocabulary = []string{"success", "succeeded", "connected", "created", "retrieved", "completed"}
	errorVocabulary   = []string{"error", "exception", "failed", "failure", "unable to", "timed out", "refused"}
)

// Analyze derives advisory signals from an outcome. When the body carries the
// tagged response contract the signals come from it and Confidence is
// "contract"; otherwise they are keyword heuristics over the body text.
func Analyze(outcome invoke.Outcome) invoke.Analysis {
	contract := outcome.Contract
	if contract == nil {
		if obj, ok := outcome.Body.(map[string]interface{}); ok {
			contract = invoke.DecodeContract(obj)
		}
	}
	if contract != nil {
		return analyzeContract(contract)
	}
	return analyzeHeuristic(outcome)
}

func analyzeContract(c *invoke.Contract) invoke.Analysis {
	a := invoke.Analysis{
		Confidence:      invoke.ConfidenceContract,
		LooksSuccessful: c.Kind == invoke.ContractSuccess,
		LooksErroneous:  c.Kind != invoke.ContractSuccess,
		// A domain error is still an answer from the backing store.
		BackendReached: c.Kind != invoke.ContractTransportError,
	}
	if c.Data != nil {
		a.DataReturned, a.RecordCount = collection(c.Data, false)
	}
	return a
}

func analyzeHeuristic(outcome invoke.Outcome) invoke.Analysis {
	a := invoke.Analysis{Confidence: invoke.ConfidenceHeuristic}

	if outcome.Body != nil {
		a.DataReturned, a.RecordCount = collection(outcome.Body, true)
	}

	text := strings.ToLower(outcome.BodyText())
	a.LooksSuccessful = containsAny(text, successVocabulary)
	a.LooksErroneous = containsAny(text, errorVocabulary) || outcome.Failed()
	a.BackendReached = a.DataReturned || (a.LooksSuccessful && !a.LooksErroneous)
	return a
}

// collection locates the result set in v. A list counts its elements; a
// mapping is searched for a data key, and a JSON-encoded "body" string is
// decoded once. When lenient is false (contract data) any other value is a
// single record.
func collection(v interface{}, lenient bool) (bool, int) {
	switch t := v.(type) {
	case []interface{}:
		return true, len(t)
	case map[string]interface{}:
		for _, key := range dataKeys {
			inner, ok := t[key]
			if !ok || inner == nil {
				continue
			}
			if s, ok := inner.(string); ok && key == "body" {
				var decoded interface{}
				if json.Unmarshal([]byte(s), &decoded) != nil || decoded == nil {
					continue
				}
				inner = decoded
			}
			switch c := inner.(type) {
			case []interface{}:
				return true, len(c)
			case map[string]interface{}:
				if found, n := collectionShallow(c); found {
					return true, n
				}
			}
			return true, 1
		}
		if !lenient {
			return true, 1
		}
	}
	return false, 0
}

// collectionShallow looks one level down for a list under a data key.
func collectionShallow(m map[string]interface{}) (bool, int) {
	for _, key := range dataKeys {
		if list, ok := m[key].([]interface{}); ok {
			return true, len(list)
		}
	}
	return false, 0
}

func containsAny(text string, words []string) bool {
	for _, w := range words {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}
