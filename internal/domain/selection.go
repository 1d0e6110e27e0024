package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Selection is the participant's answer to one question: either Unanswered
// or Selected(index). It marshals to JSON as null or the option index, which
// keeps the persisted attempt layout compatible with nullable encodings.
type Selection struct {
	answered bool
	index    int
}

// Selected builds a selection pointing at an option index.
func Selected(index int) Selection {
	return Selection{answered: true, index: index}
}

// Unanswered is the zero selection; a question the participant never touched.
func Unanswered() Selection {
	return Selection{}
}

// Answered reports whether an option was chosen.
func (s Selection) Answered() bool { return s.answered }

// Index returns the chosen option index and whether one was chosen.
func (s Selection) Index() (int, bool) {
	return s.index, s.answered
}

func (s Selection) String() string {
	if !s.answered {
		return "unanswered"
	}
	return fmt.Sprintf("option(%d)", s.index)
}

func (s Selection) MarshalJSON() ([]byte, error) {
	if !s.answered {
		return []byte("null"), nil
	}
	return json.Marshal(s.index)
}

func (s *Selection) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*s = Selection{}
		return nil
	}
	var index int
	if err := json.Unmarshal(data, &index); err != nil {
		return err
	}
	*s = Selection{answered: true, index: index}
	return nil
}
