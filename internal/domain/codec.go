package domain

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// questionJSON is the stored form of a Question: kind tag plus a kind-specific data object.
type questionJSON struct {
	ID          string          `json:"id"`
	Kind        QuestionKind    `json:"kind"`
	Prompt      string          `json:"prompt"`
	Data        json.RawMessage `json:"data"`
	Seconds     int             `json:"seconds,omitempty"`
	Explanation string          `json:"explanation,omitempty"`
}

func (q Question) MarshalJSON() ([]byte, error) {
	data, err := json.Marshal(q.Data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(questionJSON{
		ID:          q.ID,
		Kind:        q.Kind(),
		Prompt:      q.Prompt,
		Data:        data,
		Seconds:     q.Seconds,
		Explanation: q.Explanation,
	})
}

func (q *Question) UnmarshalJSON(raw []byte) error {
	var rec questionJSON
	if err := json.Unmarshal(raw, &rec); err != nil {
		return err
	}
	var data QuestionData
	switch rec.Kind {
	case KindText:
		var text TextData
		if err := json.Unmarshal(rec.Data, &text); err != nil {
			return fmt.Errorf("question %q data: %w", rec.ID, err)
		}
		data = text
	case KindBoolean:
		var boolean BooleanData
		if err := json.Unmarshal(rec.Data, &boolean); err != nil {
			return fmt.Errorf("question %q data: %w", rec.ID, err)
		}
		data = boolean
	default:
		return fmt.Errorf("question %q: %w %q", rec.ID, ErrUnknownKind, rec.Kind)
	}
	*q = Question{
		ID:          rec.ID,
		Prompt:      rec.Prompt,
		Data:        data,
		Seconds:     rec.Seconds,
		Explanation: rec.Explanation,
	}
	return nil
}

type questionYAML struct {
	ID          string       `yaml:"id"`
	Kind        QuestionKind `yaml:"kind"`
	Prompt      string       `yaml:"prompt"`
	Data        yaml.Node    `yaml:"data"`
	Seconds     int          `yaml:"seconds,omitempty"`
	Explanation string       `yaml:"explanation,omitempty"`
}

func (q Question) MarshalYAML() (interface{}, error) {
	var node yaml.Node
	if err := node.Encode(q.Data); err != nil {
		return nil, err
	}
	return questionYAML{
		ID:          q.ID,
		Kind:        q.Kind(),
		Prompt:      q.Prompt,
		Data:        node,
		Seconds:     q.Seconds,
		Explanation: q.Explanation,
	}, nil
}

func (q *Question) UnmarshalYAML(value *yaml.Node) error {
	var rec questionYAML
	if err := value.Decode(&rec); err != nil {
		return err
	}
	var data QuestionData
	switch rec.Kind {
	case KindText:
		var text TextData
		if err := decodeNode(&rec.Data, &text); err != nil {
			return fmt.Errorf("question %q data: %w", rec.ID, err)
		}
		data = text
	case KindBoolean:
		var boolean BooleanData
		if err := decodeNode(&rec.Data, &boolean); err != nil {
			return fmt.Errorf("question %q data: %w", rec.ID, err)
		}
		data = boolean
	default:
		return fmt.Errorf("question %q: %w %q", rec.ID, ErrUnknownKind, rec.Kind)
	}
	*q = Question{
		ID:          rec.ID,
		Prompt:      rec.Prompt,
		Data:        data,
		Seconds:     rec.Seconds,
		Explanation: rec.Explanation,
	}
	return nil
}

// decodeNode leaves out untouched when the data key is absent.
func decodeNode(node *yaml.Node, out interface{}) error {
	if node.Kind == 0 {
		return nil
	}
	return node.Decode(out)
}
