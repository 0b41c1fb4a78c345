// Package account loads the tracked-account list and normalizes its three
// historical record shapes into one canonical type. The accounts file grew
// organically: entries may be objects with assorted field spellings, bare
// handle strings, or positional arrays. Normalization happens exactly once,
// here; nothing past this package sees the raw forms.
package account

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strings"
)

// Record is the canonical account record. IGID and Token may be empty when
// neither the file entry nor the environment provides them; collectors skip
// such accounts per run rather than failing the batch.
type Record struct {
	Handle string
	IGID   string
	Token  string
}

// Complete reports whether the record carries everything a collector needs.
func (r Record) Complete() bool {
	return r.Handle != "" && r.IGID != "" && r.Token != ""
}

// rawRecord is the tagged union of the accepted file shapes:
// explicit object, positional array, or handle-only string.
type rawRecord struct {
	explicit   map[string]json.RawMessage
	positional []json.RawMessage
	handleOnly string
}

func (r *rawRecord) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	switch {
	case strings.HasPrefix(trimmed, "{"):
		return json.Unmarshal(data, &r.explicit)
	case strings.HasPrefix(trimmed, "["):
		return json.Unmarshal(data, &r.positional)
	case strings.HasPrefix(trimmed, `"`):
		return json.Unmarshal(data, &r.handleOnly)
	}
	return fmt.Errorf("unsupported account record form: %s", trimmed)
}

type accountsFile struct {
	Accounts []rawRecord `json:"accounts"`
}

// Load reads the accounts file and returns canonical records in file order.
// Records whose handle cannot be determined are dropped with an error in the
// second return; the remaining records are still usable.
func Load(path string) ([]Record, []error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, []error{fmt.Errorf("read accounts file: %w", err)}
	}

	var file accountsFile
	if err := json.Unmarshal(content, &file); err != nil {
		return nil, []error{fmt.Errorf("parse accounts file: %w", err)}
	}

	var (
		records []Record
		errs    []error
	)
	for i, raw := range file.Accounts {
		rec := normalize(raw)
		if rec.Handle == "" {
			errs = append(errs, fmt.Errorf("accounts[%d]: no usable handle", i))
			continue
		}
		records = append(records, rec.withEnvFallback())
	}
	return records, errs
}

// handleFieldNames are the spellings seen in the wild, in precedence order.
var handleFieldNames = []string{"handle", "account", "username", "name", "store", "page"}
var igIDFieldNames = []string{"igId", "igID", "instagram_id", "id", "ig-id"}
var tokenFieldNames = []string{"token", "page_token", "access_token"}

func normalize(raw rawRecord) Record {
	switch {
	case raw.explicit != nil:
		return Record{
			Handle: firstString(raw.explicit, handleFieldNames),
			IGID:   firstStringOrNumber(raw.explicit, igIDFieldNames),
			Token:  firstString(raw.explicit, tokenFieldNames),
		}
	case raw.positional != nil:
		return fromPositional(raw.positional)
	case raw.handleOnly != "":
		return Record{Handle: raw.handleOnly}
	}
	return Record{}
}

var numericID = regexp.MustCompile(`^\d{8,}$`)

// fromPositional guesses [handle, igId, token] from the value shapes: the
// first short string is the handle, a long digit run is the IG id, and a
// long or dotted string is the token.
func fromPositional(fields []json.RawMessage) Record {
	var rec Record
	for _, f := range fields {
		var s string
		if err := json.Unmarshal(f, &s); err != nil {
			var n json.Number
			if err := json.Unmarshal(f, &n); err == nil && rec.IGID == "" {
				rec.IGID = n.String()
			}
			continue
		}
		switch {
		case rec.IGID == "" && numericID.MatchString(s):
			rec.IGID = s
		case rec.Token == "" && (strings.Contains(s, ".") || len(s) > 40):
			rec.Token = s
		case rec.Handle == "" && len(s) <= 64:
			rec.Handle = s
		}
	}
	return rec
}

// withEnvFallback fills missing credentials from the per-account secret
// variables (IG_ID_<HANDLE>, PAGE_TOKEN_<HANDLE>).
func (r Record) withEnvFallback() Record {
	if r.IGID == "" {
		r.IGID = os.Getenv("IG_ID_" + envSuffix(r.Handle))
	}
	if r.Token == "" {
		r.Token = os.Getenv("PAGE_TOKEN_" + envSuffix(r.Handle))
	}
	return r
}

var nonEnvChars = regexp.MustCompile(`[^A-Z0-9]+`)

func envSuffix(handle string) string {
	return nonEnvChars.ReplaceAllString(strings.ToUpper(handle), "_")
}

func firstString(m map[string]json.RawMessage, names []string) string {
	for _, name := range names {
		var s string
		if raw, ok := m[name]; ok && json.Unmarshal(raw, &s) == nil && s != "" {
			return s
		}
	}
	return ""
}

func firstStringOrNumber(m map[string]json.RawMessage, names []string) string {
	for _, name := range names {
		raw, ok := m[name]
		if !ok {
			continue
		}
		var s string
		if json.Unmarshal(raw, &s) == nil && s != "" {
			return s
		}
		var n json.Number
		if json.Unmarshal(raw, &n) == nil {
			return n.String()
		}
	}
	return ""
}
