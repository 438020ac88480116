package types

import (
	"encoding/json"
	"fmt"
	"time"
)

// Reserved record keys. These are backend-assigned and are stripped from
// every client-supplied payload before a merge or insert.
const (
	KeyID        = "id"
	KeyCreatedAt = "createdAt"
	KeyUpdatedAt = "updatedAt"
)

// Record is one stored instance of an entity: backend-assigned id, the two
// managed timestamps, and the schema-declared field values.
type Record struct {
	ID        string
	CreatedAt time.Time
	UpdatedAt time.Time
	Fields    map[string]any
}

// Clone returns a deep-enough copy of the record: the fields map is copied
// so callers can mutate the result without aliasing store state. Field
// values themselves are scalars per the schema model.
func (r Record) Clone() Record {
	fields := make(map[string]any, len(r.Fields))
	for k, v := range r.Fields {
		fields[k] = v
	}
	return Record{ID: r.ID, CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt, Fields: fields}
}

// MarshalJSON serializes the record flat: id and timestamps beside the
// entity fields, timestamps as RFC 3339 strings.
func (r Record) MarshalJSON() ([]byte, error) {
	flat := make(map[string]any, len(r.Fields)+3)
	for k, v := range r.Fields {
		flat[k] = v
	}
	flat[KeyID] = r.ID
	flat[KeyCreatedAt] = r.CreatedAt.UTC().Format(time.RFC3339Nano)
	flat[KeyUpdatedAt] = r.UpdatedAt.UTC().Format(time.RFC3339Nano)
	return json.Marshal(flat)
}

// UnmarshalJSON parses the flat form produced by MarshalJSON.
func (r *Record) UnmarshalJSON(data []byte) error {
	var flat map[string]any
	if err := json.Unmarshal(data, &flat); err != nil {
		return err
	}

	id, _ := flat[KeyID].(string)
	r.ID = id

	created, err := parseTimestamp(flat, KeyCreatedAt)
	if err != nil {
		return err
	}
	updated, err := parseTimestamp(flat, KeyUpdatedAt)
	if err != nil {
		return err
	}
	r.CreatedAt = created
	r.UpdatedAt = updated

	delete(flat, KeyID)
	delete(flat, KeyCreatedAt)
	delete(flat, KeyUpdatedAt)
	r.Fields = flat
	return nil
}

func parseTimestamp(flat map[string]any, key string) (time.Time, error) {
	raw, ok := flat[key].(string)
	if !ok || raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing record %s: %w", key, err)
	}
	return t, nil
}

// StripReservedFields returns a copy of payload without the reserved keys.
// Every adapter applies this to client payloads before merging or inserting,
// so a client-sent id or timestamp is silently dropped rather than rejected.
func StripReservedFields(payload map[string]any) map[string]any {
	fields := make(map[string]any, len(payload))
	for k, v := range payload {
		switch k {
		case KeyID, KeyCreatedAt, KeyUpdatedAt:
			continue
		}
		fields[k] = v
	}
	return fields
}
