package domain

// Verdict is the outcome of moderating a message content.
type Verdict struct {
	Content       string
	CensoredWords []string
	Lang          string
}
