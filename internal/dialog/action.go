package dialog

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"
)

// ActionKind is the wire value of context.action.lookup.
type ActionKind string

const (
	ActionNone            ActionKind = ""
	ActionBalance         ActionKind = "balance"
	ActionTransactions    ActionKind = "transactions"
	ActionTopTransactions ActionKind = "5transactions"
	ActionBranch          ActionKind = "branch"
	// The dialog skill still names document search after the retrieve-and-rank
	// service it replaced.
	ActionDocumentSearch ActionKind = "rnr"
	ActionComplete       ActionKind = "complete"
)

// Known reports whether the dispatcher has a handler for k.
func (k ActionKind) Known() bool {
	switch k {
	case ActionBalance, ActionTransactions, ActionTopTransactions, ActionBranch, ActionDocumentSearch:
		return true
	}
	return false
}

const (
	keyLookup         = "lookup"
	keyAccountType    = "account_type"
	keyCategory       = "category"
	keyStartDate      = "startdt"
	keyEndDate        = "enddt"
	keyLocation       = "Location"
	keyAppendResponse = "append_response"
	keyAppendTotal    = "append_total"
)

// Action is a side-lookup requested by the dialog engine. Parameters the
// pipeline does not read are preserved in Extra.
type Action struct {
	Lookup         ActionKind
	AccountType    string
	Category       string
	StartDate      string
	EndDate        string
	Location       string
	AppendResponse *bool
	AppendTotal    bool
	Extra          map[string]any
}

// Pending reports whether the action still asks for work.
func (a *Action) Pending() bool {
	return a != nil && a.Lookup != ActionNone && a.Lookup != ActionComplete
}

// Appends resolves the append flag, falling back to def when the engine did
// not set it.
func (a *Action) Appends(def bool) bool {
	if a.AppendResponse == nil {
		return def
	}
	return *a.AppendResponse
}

var dateLayouts = []string{"2006-01-02", "01-02-2006", time.RFC3339, "2006/01/02", "01/02/2006"}

// ParseDate accepts the date formats used by the dialog skill and the banking
// data.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// DateRange returns the requested start and end dates when both are present
// and parseable.
func (a *Action) DateRange() (time.Time, time.Time, bool) {
	start, ok := ParseDate(a.StartDate)
	if !ok {
		return time.Time{}, time.Time{}, false
	}
	end, ok := ParseDate(a.EndDate)
	if !ok {
		return time.Time{}, time.Time{}, false
	}
	return start, end, true
}

func (a Action) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(a.Extra)+8)
	for k, v := range a.Extra {
		out[k] = v
	}
	setString := func(key, v string) {
		if v != "" {
			out[key] = v
		}
	}
	setString(keyLookup, string(a.Lookup))
	setString(keyAccountType, a.AccountType)
	setString(keyCategory, a.Category)
	setString(keyStartDate, a.StartDate)
	setString(keyEndDate, a.EndDate)
	setString(keyLocation, a.Location)
	if a.AppendResponse != nil {
		out[keyAppendResponse] = *a.AppendResponse
	}
	if a.AppendTotal {
		out[keyAppendTotal] = true
	}
	return json.Marshal(out)
}

// UnmarshalJSON takes known parameters only when they carry the expected JSON
// type; anything else stays in Extra so the engine gets it back unchanged.
func (a *Action) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	next := Action{
		Lookup:      ActionKind(takeString(raw, keyLookup)),
		AccountType: takeString(raw, keyAccountType),
		Category:    takeString(raw, keyCategory),
		StartDate:   takeString(raw, keyStartDate),
		EndDate:     takeString(raw, keyEndDate),
		Location:    takeString(raw, keyLocation),
	}
	if v, ok := raw[keyAppendResponse].(bool); ok {
		next.AppendResponse = &v
		delete(raw, keyAppendResponse)
	}
	if v, ok := raw[keyAppendTotal].(bool); ok {
		next.AppendTotal = v
		delete(raw, keyAppendTotal)
	}
	if len(raw) > 0 {
		next.Extra = raw
	}
	*a = next
	return nil
}

func takeString(raw map[string]any, key string) string {
	s, ok := raw[key].(string)
	if ok {
		delete(raw, key)
	}
	return s
}
