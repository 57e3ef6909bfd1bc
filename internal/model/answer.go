package model

import "strings"

// AnswerValue is a committed answer: free text or a set of chosen options
type AnswerValue struct {
	Text    string   `json:"text,omitempty" bson:"text,omitempty"`
	Choices []string `json:"choices,omitempty" bson:"choices,omitempty"` // For multi_choice
}

// TextAnswer builds a plain text answer
func TextAnswer(s string) AnswerValue {
	return AnswerValue{Text: s}
}

// ChoicesAnswer builds a multi-choice answer
func ChoicesAnswer(choices []string) AnswerValue {
	return AnswerValue{Choices: append([]string(nil), choices...)}
}

// String renders the answer for prompts and records
func (a AnswerValue) String() string {
	if len(a.Choices) > 0 {
		return strings.Join(a.Choices, ", ")
	}
	return a.Text
}

// IsEmpty reports whether nothing was captured
func (a AnswerValue) IsEmpty() bool {
	return a.Text == "" && len(a.Choices) == 0
}

// Matches reports whether the answer equals one of the values
func (a AnswerValue) Matches(values []string) bool {
	for _, v := range values {
		if a.Text != "" && a.Text == v {
			return true
		}
		for _, c := range a.Choices {
			if c == v {
				return true
			}
		}
	}
	return false
}

func (a AnswerValue) clone() AnswerValue {
	if a.Choices == nil {
		return a
	}
	return AnswerValue{Text: a.Text, Choices: append([]string(nil), a.Choices...)}
}
