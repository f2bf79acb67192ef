package service

import (
	"strings"
	"testing"
)

func TestParseGeneratedQuestions(t *testing.T) {
	text := `Here are your questions:

Question 1: What is 2 + 2?
A) 4
B) 3
C) 5
D) 22

Question 2: Which planet is known as the red planet?
A) Mars
B) Venus
C) Jupiter
D) Saturn`

	questions := ParseGeneratedQuestions(text)
	if len(questions) != 2 {
		t.Fatalf("got %d questions, want 2", len(questions))
	}

	first := questions[0]
	if first.Question != "What is 2 + 2?" {
		t.Errorf("question text = %q", first.Question)
	}
	if first.CorrectAnswer != "4" {
		t.Errorf("correct answer = %q, want 4", first.CorrectAnswer)
	}
	if strings.Join(first.IncorrectAnswers, ",") != "3,5,22" {
		t.Errorf("incorrect answers = %v", first.IncorrectAnswers)
	}

	// 最后一道题没有后续 Question 行，同样要被收录
	if questions[1].CorrectAnswer != "Mars" {
		t.Errorf("last question not flushed: %+v", questions[1])
	}
	if questions[0].ID == "" || questions[0].ID == questions[1].ID {
		t.Errorf("questions need distinct ids: %q %q", questions[0].ID, questions[1].ID)
	}
}

func TestParseGeneratedQuestionsDropsIncomplete(t *testing.T) {
	text := `Question 1: Complete one?
A) yes
B) no
C) maybe
D) never
Question 2: Missing D?
A) yes
B) no
C) maybe
Question 3: Another complete one?
A) right
B) wrong
C) wrong again
D) still wrong`

	questions := ParseGeneratedQuestions(text)
	if len(questions) != 2 {
		t.Fatalf("got %d questions, want 2", len(questions))
	}
	if questions[1].Question != "Another complete one?" {
		t.Errorf("unexpected second question %q", questions[1].Question)
	}
}

func TestParseGeneratedQuestionsIgnoresNoise(t *testing.T) {
	text := "Sure!\nA) stray option before any question\n" +
		"Question: Unnumbered label?\n" +
		"A) one\n" +
		"Explanation: this line is ignored\n" +
		"B) two\n" +
		"C) three\n" +
		"D) four\n" +
		"Good luck!"

	questions := ParseGeneratedQuestions(text)
	if len(questions) != 1 {
		t.Fatalf("got %d questions, want 1", len(questions))
	}
	q := questions[0]
	if q.Question != "Unnumbered label?" || q.CorrectAnswer != "one" {
		t.Errorf("unexpected question %+v", q)
	}
	if len(q.IncorrectAnswers) != 3 {
		t.Errorf("incorrect answers = %v", q.IncorrectAnswers)
	}
}

func TestParseGeneratedQuestionsTextOnNextLine(t *testing.T) {
	text := "Question 1:\nWhat is 2+2?\nA) 4\nB) 3\nC) 5\nD) 6\n" +
		"Question 2:\nA) orphan\nStray line after options\nB) x\nC) y\nD) z"

	questions := ParseGeneratedQuestions(text)
	if len(questions) != 1 {
		t.Fatalf("got %d questions, want 1", len(questions))
	}
	q := questions[0]
	if q.Question != "What is 2+2?" || q.CorrectAnswer != "4" || len(q.IncorrectAnswers) != 3 {
		t.Errorf("unexpected question %+v", q)
	}
}

func TestParseGeneratedQuestionsEmpty(t *testing.T) {
	if got := ParseGeneratedQuestions(""); len(got) != 0 {
		t.Fatalf("got %d questions from empty text", len(got))
	}
}

func TestBuildQuizPrompt(t *testing.T) {
	prompt := BuildQuizPrompt("Algebra Basics", 5)
	for _, want := range []string{"exactly 5", `"Algebra Basics"`, "A) <correct answer>"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}
