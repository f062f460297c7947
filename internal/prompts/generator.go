package prompts

import (
	"fmt"
	"strings"
)

// QuestionParams содержит параметры генерации вопросов
type QuestionParams struct {
	Role      string
	Level     string
	TechStack []string
	Type      string
	Amount    int
}

// GenerateQuestionsPrompt собирает промпт для генерации вопросов интервью.
// Вопросы читает голосовой ассистент, поэтому спецсимволы запрещены.
func GenerateQuestionsPrompt(p QuestionParams) string {
	prompt := `Prepare questions for a job interview.
The job role is %s.
The job experience level is %s.
The tech stack used in the job is: %s.
The focus between behavioural and technical questions should lean towards: %s.
The amount of questions required is: %d.
Please return only the questions, without any additional text.
The questions are going to be read by a voice assistant so do not use "/" or "*" or any other special characters which might break the voice assistant.
Return the questions formatted like this:
["Question 1", "Question 2", "Question 3"]`

	return fmt.Sprintf(prompt,
		strings.TrimSpace(p.Role),
		strings.TrimSpace(p.Level),
		strings.Join(p.TechStack, ", "),
		strings.TrimSpace(p.Type),
		p.Amount)
}
