package domain

// Question is a stored quiz question. Read-only to this service.
type Question struct {
	ID         int64  `json:"id" yaml:"id"`
	Text       string `json:"question" yaml:"text"`
	CategoryID int64  `json:"category_id" yaml:"category_id"`
}

// Option is one selectable answer for a question, weighted by Marks.
type Option struct {
	ID         int64  `json:"id" yaml:"id"`
	QuestionID int64  `json:"question_id" yaml:"question_id"`
	Text       string `json:"text" yaml:"text"`
	Marks      int    `json:"marks" yaml:"marks"`
}

// OptionView is the client-facing projection of an option.
type OptionView struct {
	ID    int64  `json:"id"`
	Text  string `json:"text"`
	Marks int    `json:"marks"`
}

// QuestionWithOptions is a question joined with all of its options.
type QuestionWithOptions struct {
	ID         int64        `json:"id"`
	Question   string       `json:"question"`
	CategoryID int64        `json:"category_id"`
	Options    []OptionView `json:"options"`
}

// Answer pairs a question with the option the caller selected.
type Answer struct {
	QuestionID       int64 `json:"question_id"`
	SelectedOptionID int64 `json:"selected_option_id"`
}

// ScoreResult summarizes a scored submission. Percentage always carries two decimals.
type ScoreResult struct {
	Score      int    `json:"score"`
	Total      int    `json:"total"`
	Percentage string `json:"percentage"`
}

// User is a stored account. PasswordHash is empty when the record lacks one.
type User struct {
	ID           int64
	Fullname     string
	Email        string
	PasswordHash string
}

// UserView is what login returns; it never carries the hash.
type UserView struct {
	ID       int64  `json:"id"`
	Email    string `json:"email"`
	Fullname string `json:"fullname"`
}

// View projects the user for responses.
func (u User) View() UserView {
	return UserView{ID: u.ID, Email: u.Email, Fullname: u.Fullname}
}

// Content is a seedable document of questions and their options.
type Content struct {
	Questions []Question `yaml:"questions"`
	Options   []Option   `yaml:"options"`
}
