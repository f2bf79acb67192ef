package service

import (
	"educonnect_backend/internal/model"
	"fmt"
	"regexp"
	"strings"
)

var questionLabel = regexp.MustCompile(`^Question\s*\d*\s*[:.)\-]?\s*`)

// 选项行前缀：A) 为正确答案，B) C) D) 为错误答案
const (
	correctPrefix = "A)"
)

var incorrectPrefixes = []string{"B)", "C)", "D)"}

// BuildQuizPrompt 要求生成服务按固定模板输出 n 道题
func BuildQuizPrompt(lessonName string, n int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Generate exactly %d multiple-choice questions for the lesson \"%s\".\n", n, lessonName)
	b.WriteString("Use exactly this plain-text format for every question and nothing else:\n")
	b.WriteString("Question 1: <question text>\n")
	b.WriteString("A) <correct answer>\n")
	b.WriteString("B) <incorrect answer>\n")
	b.WriteString("C) <incorrect answer>\n")
	b.WriteString("D) <incorrect answer>\n")
	b.WriteString("Option A must always be the correct answer. Number the questions sequentially. ")
	b.WriteString("Do not add explanations, headings or markdown.")
	return b.String()
}

// ParseGeneratedQuestions 逐行解析生成文本。
// 一道题只有凑齐 3 个错误答案才会被收录，格式不完整的题目直接丢弃，
// 最后一道题在循环结束后单独收尾。标签行没有题干时取下一行普通文本作为题干。
func ParseGeneratedQuestions(text string) []model.QuizQuestion {
	var (
		questions []model.QuizQuestion
		current   *model.QuizQuestion
	)

	commit := func() {
		if current != nil && current.Complete() {
			current.ID = model.GenerateUUID()
			questions = append(questions, *current)
		}
		current = nil
	}

	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}

		switch {
		case strings.HasPrefix(line, "Question"):
			commit()
			current = &model.QuizQuestion{
				Question:         strings.TrimSpace(questionLabel.ReplaceAllString(line, "")),
				IncorrectAnswers: []string{},
			}
		case current == nil:
			continue
		case strings.HasPrefix(line, correctPrefix):
			current.CorrectAnswer = strings.TrimSpace(strings.TrimPrefix(line, correctPrefix))
		default:
			matched := false
			for _, p := range incorrectPrefixes {
				if strings.HasPrefix(line, p) {
					current.IncorrectAnswers = append(current.IncorrectAnswers, strings.TrimSpace(strings.TrimPrefix(line, p)))
					matched = true
					break
				}
			}
			if !matched && current.Question == "" && current.CorrectAnswer == "" && len(current.IncorrectAnswers) == 0 {
				current.Question = line
			}
		}
	}
	commit()

	return questions
}
