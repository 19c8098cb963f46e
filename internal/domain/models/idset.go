// internal/domain/models/idset.go
package models

import (
	"encoding/json"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// IDSet is an insertion-ordered set of ObjectIDs.
//
// It is stored as a plain BSON array so the database can maintain it with
// $addToSet / $pull, and it decodes back into a set (duplicates in a stored
// array are collapsed on read).
type IDSet struct {
	ids []primitive.ObjectID
}

// NewIDSet builds a set from ids, dropping duplicates and keeping first-seen order.
func NewIDSet(ids ...primitive.ObjectID) IDSet {
	var s IDSet
	for _, id := range ids {
		s.Add(id)
	}
	return s
}

// Add inserts id and reports whether the set changed.
func (s *IDSet) Add(id primitive.ObjectID) bool {
	if s.Contains(id) {
		return false
	}
	s.ids = append(s.ids, id)
	return true
}

// Remove deletes id and reports whether the set changed.
func (s *IDSet) Remove(id primitive.ObjectID) bool {
	for i, v := range s.ids {
		if v == id {
			s.ids = append(s.ids[:i:i], s.ids[i+1:]...)
			return true
		}
	}
	return false
}

// Contains reports whether id is a member.
func (s IDSet) Contains(id primitive.ObjectID) bool {
	for _, v := range s.ids {
		if v == id {
			return true
		}
	}
	return false
}

// Len returns the number of members.
func (s IDSet) Len() int { return len(s.ids) }

// Slice returns a copy of the members in insertion order. Never nil.
func (s IDSet) Slice() []primitive.ObjectID {
	out := make([]primitive.ObjectID, len(s.ids))
	copy(out, s.ids)
	return out
}

// MarshalBSONValue encodes the set as a BSON array (never null).
func (s IDSet) MarshalBSONValue() (bsontype.Type, []byte, error) {
	return bson.MarshalValue(s.Slice())
}

// UnmarshalBSONValue decodes a BSON array (or null) into the set.
func (s *IDSet) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	s.ids = nil
	if t == bsontype.Null || t == bsontype.Undefined {
		return nil
	}
	var ids []primitive.ObjectID
	if err := (bson.RawValue{Type: t, Value: data}).Unmarshal(&ids); err != nil {
		return err
	}
	for _, id := range ids {
		s.Add(id)
	}
	return nil
}

// MarshalJSON encodes the set as an array of hex ids.
func (s IDSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Slice())
}

// UnmarshalJSON decodes an array of hex ids.
func (s *IDSet) UnmarshalJSON(data []byte) error {
	var ids []primitive.ObjectID
	if err := json.Unmarshal(data, &ids); err != nil {
		return err
	}
	*s = NewIDSet(ids...)
	return nil
}
