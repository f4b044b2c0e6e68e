package annotate

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/polifund/fundscan/constants"
)

var (
	reISODate   = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	reLooseDate = regexp.MustCompile(`^(\d{4})[-/.](\d{1,2})[-/.](\d{1,2})$`)

	scoreFields = map[string]struct{}{
		string(constants.AIValidityScore):     {},
		string(constants.AITransparencyScore): {},
		string(constants.AINewsValueScore):    {},
	}
)

// SanitizeAnnotation normalizes a vision response that missed the schema,
// so the usable parts still validate. Every field is optional, so the rule
// is drop-don't-fail: keys outside the schema, null values, and scores
// that are non-numeric or outside [0,1] are removed rather than clamped
// or errored.
func SanitizeAnnotation(doc []byte) ([]byte, []string, error) {
	var m map[string]any
	if err := json.Unmarshal(doc, &m); err != nil {
		return nil, nil, err
	}

	known := map[string]struct{}{}
	for _, name := range constants.AIColumns() {
		known[name] = struct{}{}
	}

	var dropped []string
	for key, value := range m {
		if _, ok := known[key]; !ok {
			delete(m, key)
			dropped = append(dropped, key)
			continue
		}

		if _, isScore := scoreFields[key]; isScore {
			score, ok := coerceScore(value)
			if !ok {
				delete(m, key)
				dropped = append(dropped, key)
				continue
			}
			m[key] = score
			continue
		}

		str, ok := coerceString(value)
		if !ok {
			delete(m, key)
			dropped = append(dropped, key)
			continue
		}
		if key == string(constants.AIPaymentDate) {
			normalized, ok := normalizeDate(str)
			if !ok {
				delete(m, key)
				dropped = append(dropped, key)
				continue
			}
			str = normalized
		}
		m[key] = str
	}

	b, err := json.Marshal(m)
	if err != nil {
		return nil, nil, err
	}
	return b, dropped, nil
}

// coerceScore accepts numbers and numeric strings inside [0,1]. Anything
// else is treated as absent.
func coerceScore(value any) (float64, bool) {
	var score float64
	switch t := value.(type) {
	case float64:
		score = t
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, false
		}
		score = f
	default:
		return 0, false
	}

	if score < 0 || score > 1 {
		return 0, false
	}
	return score, true
}

func coerceString(value any) (string, bool) {
	switch t := value.(type) {
	case string:
		s := strings.TrimSpace(t)
		if s == "" || strings.EqualFold(s, "null") {
			return "", false
		}
		return s, true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	default:
		return "", false
	}
}

// normalizeDate reformats loose date spellings to YYYY-MM-DD; dates it
// cannot read are treated as absent.
func normalizeDate(s string) (string, bool) {
	if reISODate.MatchString(s) {
		return s, true
	}
	m := reLooseDate.FindStringSubmatch(s)
	if m == nil {
		return "", false
	}
	month, _ := strconv.Atoi(m[2])
	day, _ := strconv.Atoi(m[3])
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return "", false
	}
	return fmt.Sprintf("%s-%02d-%02d", m[1], month, day), true
}
