package model

import "encoding/json"

// Nested catalog objects pass unknown members through untouched.

func (c *Contract) UnmarshalJSON(data []byte) error {
	type plain Contract
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	extra, err := extraMembers(data, "role", "protocol", "url")
	if err != nil {
		return err
	}
	*c = Contract(p)
	c.Extra = extra
	return nil
}

func (c Contract) MarshalJSON() ([]byte, error) {
	type plain Contract
	return marshalWithExtra(plain(c), c.Extra)
}

func (d *Dependency) UnmarshalJSON(data []byte) error {
	type plain Dependency
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	extra, err := extraMembers(data, "name", "role", "protocol")
	if err != nil {
		return err
	}
	*d = Dependency(p)
	d.Extra = extra
	return nil
}

func (d Dependency) MarshalJSON() ([]byte, error) {
	type plain Dependency
	return marshalWithExtra(plain(d), d.Extra)
}

func (e *Event) UnmarshalJSON(data []byte) error {
	type plain Event
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	extra, err := extraMembers(data, "name", "description")
	if err != nil {
		return err
	}
	*e = Event(p)
	e.Extra = extra
	return nil
}

func (e Event) MarshalJSON() ([]byte, error) {
	type plain Event
	return marshalWithExtra(plain(e), e.Extra)
}

// extraMembers returns the members of a JSON object that are not in known.
func extraMembers(data []byte, known ...string) (map[string]json.RawMessage, error) {
	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, err
	}
	for _, k := range known {
		delete(all, k)
	}
	if len(all) == 0 {
		return nil, nil
	}
	return all, nil
}

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
		// Typed fields win over pass-through members of the same name
		if _, exists := merged[k]; !exists {
			merged[k] = raw
		}
	}
	return json.Marshal(merged)
}
