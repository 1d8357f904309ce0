// JSON round-tripping for documents shared with other writers. Fields this
// package does not model survive a read/write cycle through the Extra maps.
package types

import (
	"encoding/json"
	"reflect"
	"strings"
)

// knownKeys returns the JSON names declared on a struct type.
func knownKeys(t reflect.Type) map[string]bool {
	keys := make(map[string]bool, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		tag := t.Field(i).Tag.Get("json")
		name, _, _ := strings.Cut(tag, ",")
		if name == "" || name == "-" {
			continue
		}
		keys[name] = true
	}
	return keys
}

// extraFields returns the top-level members of data not declared on t.
func extraFields(data []byte, t reflect.Type) (map[string]json.RawMessage, error) {
	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, err
	}
	known := knownKeys(t)
	var extra map[string]json.RawMessage
	for k, v := range all {
		if known[k] {
			continue
		}
		if extra == nil {
			extra = make(map[string]json.RawMessage)
		}
		extra[k] = v
	}
	return extra, nil
}

// marshalWithExtra encodes v and merges extra members that v does not set.
func marshalWithExtra(v any, extra map[string]json.RawMessage) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil || len(extra) == 0 {
		return data, err
	}
	var merged map[string]json.RawMessage
	if err := json.Unmarshal(data, &merged); err != nil {
		return nil, err
	}
	for k, raw := range extra {
		if _, ok := merged[k]; !ok {
			merged[k] = raw
		}
	}
	return json.Marshal(merged)
}

func (s *WorkflowState) UnmarshalJSON(data []byte) error {
	type plain WorkflowState
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	extra, err := extraFields(data, reflect.TypeOf(p))
	if err != nil {
		return err
	}
	*s = WorkflowState(p)
	s.Extra = extra
	return nil
}

func (s WorkflowState) MarshalJSON() ([]byte, error) {
	type plain WorkflowState
	return marshalWithExtra(plain(s), s.Extra)
}

func (a *ActiveWorkflow) UnmarshalJSON(data []byte) error {
	type plain ActiveWorkflow
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	extra, err := extraFields(data, reflect.TypeOf(p))
	if err != nil {
		return err
	}
	*a = ActiveWorkflow(p)
	a.Extra = extra
	return nil
}

func (a ActiveWorkflow) MarshalJSON() ([]byte, error) {
	type plain ActiveWorkflow
	return marshalWithExtra(plain(a), a.Extra)
}

func (p *PhaseState) UnmarshalJSON(data []byte) error {
	type plain PhaseState
	var v plain
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	extra, err := extraFields(data, reflect.TypeOf(v))
	if err != nil {
		return err
	}
	*p = PhaseState(v)
	p.Extra = extra
	return nil
}

func (p PhaseState) MarshalJSON() ([]byte, error) {
	type plain PhaseState
	return marshalWithExtra(plain(p), p.Extra)
}

func (r *WorkflowHistoryRecord) UnmarshalJSON(data []byte) error {
	type plain WorkflowHistoryRecord
	var v plain
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	extra, err := extraFields(data, reflect.TypeOf(v))
	if err != nil {
		return err
	}
	*r = WorkflowHistoryRecord(v)
	r.Extra = extra
	return nil
}

func (r WorkflowHistoryRecord) MarshalJSON() ([]byte, error) {
	type plain WorkflowHistoryRecord
	return marshalWithExtra(plain(r), r.Extra)
}
