package domain

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Role is stored on the user record as a small integer. Values are bit
// flags but only the single-flag values below are valid.
type Role int16

const (
	RoleUser      Role = 1 << 0
	RoleModerator Role = 1 << 1
	RoleAdmin     Role = 1 << 2
)

var ErrUnknownRole = errors.New("unknown role")

func RoleFromInt(v int16) (Role, error) {
	switch Role(v) {
	case RoleUser, RoleModerator, RoleAdmin:
		return Role(v), nil
	default:
		return 0, fmt.Errorf("%w: %d", ErrUnknownRole, v)
	}
}

func (r Role) String() string {
	switch r {
	case RoleUser:
		return "user"
	case RoleModerator:
		return "moderator"
	case RoleAdmin:
		return "admin"
	default:
		return fmt.Sprintf("role(%d)", int16(r))
	}
}

func (r Role) Valid() bool {
	_, err := RoleFromInt(int16(r))
	return err == nil
}

// In reports whether r is exactly one of allowed.
func (r Role) In(allowed ...Role) bool {
	for _, a := range allowed {
		if r == a {
			return true
		}
	}
	return false
}

func (r Role) MarshalJSON() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownRole, int16(r))
	}
	return json.Marshal(int16(r))
}

func (r *Role) UnmarshalJSON(b []byte) error {
	var v int16
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	role, err := RoleFromInt(v)
	if err != nil {
		return err
	}
	*r = role
	return nil
}
