package memory

import "quiz-runner/internal/domain"

// DefaultSetID names the set shipped with the binary.
const DefaultSetID = "typescript-basics"

// BuiltinQuestionSets provides the question set used when no store is configured.
func BuiltinQuestionSets() map[string]domain.QuestionSet {
	return map[string]domain.QuestionSet{
		DefaultSetID: {
			ID:    DefaultSetID,
			Title: "TypeScript basics",
			Questions: []domain.Question{
				{
					ID:     "question1",
					Prompt: "Which of these defines a union type?",
					Data: domain.TextData{
						Options:      []string{"string:number", "string|number", "string&number"},
						CorrectIndex: 1,
					},
					Seconds:     20,
					Explanation: "Unions use the pipe character: e.g., string | number.",
				},
				{
					ID:          "question2",
					Prompt:      "Enums in TypeScript can be numeric or string.",
					Data:        domain.BooleanData{Correct: true},
					Seconds:     15,
					Explanation: "TS supports both numeric and string enums.",
				},
				{
					ID:     "question3",
					Prompt: "Optional property syntax is...",
					Data: domain.TextData{
						Options:      []string{"name?: string", "?name: string", "name: string?"},
						CorrectIndex: 0,
					},
					Seconds:     20,
					Explanation: "Use the question mark after the key: name?: string.",
				},
			},
		},
	}
}
