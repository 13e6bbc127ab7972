package app

import "quiz-runner/internal/domain"

const noAnswer = "(no answer)"

// isCorrect compares an answer with the question payload. An answer of the wrong kind is incorrect.
func isCorrect(q domain.Question, value domain.Answer) bool {
	switch data := q.Data.(type) {
	case domain.TextData:
		choice, ok := value.(domain.Choice)
		return ok && int(choice) == data.CorrectIndex
	case domain.BooleanData:
		tf, ok := value.(domain.TrueFalse)
		return ok && bool(tf) == data.Correct
	}
	return false
}

func formatYourAnswer(q domain.Question, value domain.Answer) string {
	switch data := q.Data.(type) {
	case domain.TextData:
		if choice, ok := value.(domain.Choice); ok && int(choice) >= 0 && int(choice) < len(data.Options) {
			return data.Options[choice]
		}
	case domain.BooleanData:
		if tf, ok := value.(domain.TrueFalse); ok {
			return formatBool(bool(tf))
		}
	}
	return noAnswer
}

// CorrectAnswerText renders the expected answer the way missed entries show it.
func CorrectAnswerText(q domain.Question) string {
	switch data := q.Data.(type) {
	case domain.TextData:
		if data.CorrectIndex >= 0 && data.CorrectIndex < len(data.Options) {
			return data.Options[data.CorrectIndex]
		}
	case domain.BooleanData:
		return formatBool(data.Correct)
	}
	return ""
}

func formatBool(v bool) string {
	if v {
		return "True"
	}
	return "False"
}

func missedEntry(q domain.Question, yourAnswer string) domain.MissedEntry {
	return domain.MissedEntry{
		ID:            q.ID,
		Prompt:        q.Prompt,
		YourAnswer:    yourAnswer,
		CorrectAnswer: CorrectAnswerText(q),
		Explanation:   q.Explanation,
	}
}
