package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/lib/pq"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
)

// ProviderIDSet is a set of provider ids. It is stored as a sorted array
// in JSON, BSON and Postgres TEXT[] columns.
type ProviderIDSet map[string]struct{}

func NewProviderIDSet(ids ...string) ProviderIDSet {
	s := make(ProviderIDSet, len(ids))
	for _, id := range ids {
		s.Add(id)
	}
	return s
}

func (s ProviderIDSet) Add(id string) {
	if id == "" {
		return
	}
	s[id] = struct{}{}
}

func (s ProviderIDSet) Contains(id string) bool {
	_, ok := s[id]
	return ok
}

func (s ProviderIDSet) Len() int { return len(s) }

// Sorted returns the members in ascending order. Never nil.
func (s ProviderIDSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func (s ProviderIDSet) Clone() ProviderIDSet {
	c := make(ProviderIDSet, len(s))
	for id := range s {
		c[id] = struct{}{}
	}
	return c
}

func (s ProviderIDSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Sorted())
}

func (s *ProviderIDSet) UnmarshalJSON(data []byte) error {
	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return err
	}
	*s = NewProviderIDSet(ids...)
	return nil
}

func (s ProviderIDSet) MarshalBSONValue() (bsontype.Type, []byte, error) {
	return bson.MarshalValue(s.Sorted())
}

func (s *ProviderIDSet) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	if t == bsontype.Null || t == bsontype.Undefined {
		*s = NewProviderIDSet()
		return nil
	}
	var ids []string
	if err := bson.UnmarshalValue(t, data, &ids); err != nil {
		return fmt.Errorf("decode provider id set: %w", err)
	}
	*s = NewProviderIDSet(ids...)
	return nil
}

// Value implements driver.Valuer for TEXT[] columns.
func (s ProviderIDSet) Value() (driver.Value, error) {
	return pq.StringArray(s.Sorted()).Value()
}

// Scan implements sql.Scanner for TEXT[] columns.
func (s *ProviderIDSet) Scan(src any) error {
	var ids pq.StringArray
	if err := ids.Scan(src); err != nil {
		return fmt.Errorf("scan provider id set: %w", err)
	}
	*s = NewProviderIDSet(ids...)
	return nil
}
