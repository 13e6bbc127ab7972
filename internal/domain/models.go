package domain

// QuestionKind names the shape of a question's payload.
type QuestionKind string

const (
	KindText    QuestionKind = "text"
	KindBoolean QuestionKind = "boolean"
)

// QuestionData is the kind-specific payload of a Question.
// It is sealed: TextData and BooleanData are the only implementations.
type QuestionData interface {
	Kind() QuestionKind
	isQuestionData()
}

// TextData holds the options of a multiple-choice question.
type TextData struct {
	Options      []string `json:"options" yaml:"options" validate:"min=2,dive,required"`
	CorrectIndex int      `json:"correctIndex" yaml:"correctIndex" validate:"gte=0"`
}

func (TextData) Kind() QuestionKind { return KindText }
func (TextData) isQuestionData()    {}

// BooleanData holds the expected answer of a true/false question.
type BooleanData struct {
	Correct bool `json:"correct" yaml:"correct"`
}

func (BooleanData) Kind() QuestionKind { return KindBoolean }
func (BooleanData) isQuestionData()    {}

// Question is immutable once loaded.
type Question struct {
	ID          string       `validate:"required"`
	Prompt      string       `validate:"required"`
	Data        QuestionData `validate:"required"`
	Seconds     int          // <= 0 means use the configured default
	Explanation string
}

// Kind reports the question kind, or "" when the payload is missing.
func (q Question) Kind() QuestionKind {
	if q.Data == nil {
		return ""
	}
	return q.Data.Kind()
}

// QuestionSet is an ordered list of questions loaded from a question store.
type QuestionSet struct {
	ID        string     `json:"id" yaml:"id" validate:"required"`
	Title     string     `json:"title" yaml:"title"`
	Questions []Question `json:"questions" yaml:"questions" validate:"min=1,dive"`
}

// Answer is a player's response. Choice answers Text questions, TrueFalse answers Boolean ones.
type Answer interface {
	isAnswer()
}

// Choice is the 0-based index of the selected option.
type Choice int

// TrueFalse is the selected value of a Boolean question.
type TrueFalse bool

func (Choice) isAnswer()    {}
func (TrueFalse) isAnswer() {}

// QuizConfig is fixed for the lifetime of an engine.
type QuizConfig struct {
	PerQuestionDefaultSeconds int
	Shuffle                   bool
}

// Score counts the progress of the current run.
type Score struct {
	Correct    int `json:"correct"`
	Total      int `json:"total"`
	Streak     int `json:"streak"`
	BestStreak int `json:"bestStreak"`
}

// MissedEntry records a wrong answer or a timeout.
type MissedEntry struct {
	ID            string `json:"id"`
	Prompt        string `json:"prompt"`
	YourAnswer    string `json:"yourAnswer"`
	CorrectAnswer string `json:"correctAnswer"`
	Explanation   string `json:"explanation,omitempty"`
}

// Bests are the all-time maxima kept in durable storage.
type Bests struct {
	BestScore  int `json:"bestScore" yaml:"bestScore"`
	BestStreak int `json:"bestStreak" yaml:"bestStreak"`
}

// Summary is a detached snapshot of a run.
type Summary struct {
	Score  Score         `json:"score"`
	Missed []MissedEntry `json:"missed"`
	Bests  Bests         `json:"bests"`
}
