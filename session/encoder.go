package session

import (
	"bytes"
	"encoding/json"
	"errors"
)

var errUserNotObject = errors.New("persisted user is not a JSON object")

// EncodeUser serializes a user for the user key.
func EncodeUser(u *User) (string, error) {
	if u == nil {
		return "", errors.New("nil user")
	}
	data, err := json.Marshal(u)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// DecodeUser parses the user key. Anything other than a JSON object, including
// the literal null, is an error.
func DecodeUser(raw string) (*User, error) {
	data := bytes.TrimSpace([]byte(raw))
	if len(data) == 0 || data[0] != '{' {
		return nil, errUserNotObject
	}

	var u User
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&u); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, errors.New("trailing data after persisted user")
	}
	return &u, nil
}

// UnmarshalJSON accepts the id as a JSON string or number.
func (u *User) UnmarshalJSON(data []byte) error {
	type plain User
	var wire struct {
		plain
		ID json.RawMessage `json:"id"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	*u = User(wire.plain)
	u.ID = ""

	id := bytes.TrimSpace(wire.ID)
	switch {
	case len(id) == 0 || bytes.Equal(id, []byte("null")):
	case id[0] == '"':
		if err := json.Unmarshal(id, &u.ID); err != nil {
			return err
		}
	default:
		var n json.Number
		if err := json.Unmarshal(id, &n); err != nil {
			return err
		}
		u.ID = n.String()
	}
	return nil
}
