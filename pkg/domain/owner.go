package domain

import (
	"fmt"
	"strconv"
)

// OwnerID identifies the requester on whose behalf a search or an auto-search
// task runs. It is the chat-platform user id issued by the bot front end.
type OwnerID int64

// ParseOwnerID validates and returns an OwnerID.
// Zero and negative values are rejected.
func ParseOwnerID(s string) (OwnerID, error) {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid owner id %q: %w", s, err)
	}
	if v <= 0 {
		return 0, fmt.Errorf("invalid owner id %q: must be positive", s)
	}
	return OwnerID(v), nil
}

func (o OwnerID) String() string {
	return strconv.FormatInt(int64(o), 10)
}

// IsNil returns true if the owner id is unset.
func (o OwnerID) IsNil() bool {
	return o == 0
}

// Owner carries the requester's identity and display handles. Nick and Name
// are informational only and are stored alongside log entries and tasks.
type Owner struct {
	ID   OwnerID `json:"id"`
	Nick string  `json:"nick,omitempty"`
	Name string  `json:"name,omitempty"`
}
