package model

import (
	"reflect"
	"testing"
	"time"
)

func TestQuizQuestionOptions(t *testing.T) {
	tests := []struct {
		id   string
		want []string
	}{
		{id: "", want: []string{"right", "w1", "w2", "w3"}},
		{id: "a", want: []string{"w1", "right", "w2", "w3"}},  // 97 % 4 = 1
		{id: "ab", want: []string{"w1", "w2", "w3", "right"}}, // 195 % 4 = 3
	}

	for _, tt := range tests {
		q := QuizQuestion{ID: tt.id, Question: "q", CorrectAnswer: "right", IncorrectAnswers: []string{"w1", "w2", "w3"}}
		got := q.Options()
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("Options(id=%q) = %v, want %v", tt.id, got, tt.want)
		}
		// 原切片不能被改写
		if !reflect.DeepEqual(q.IncorrectAnswers, []string{"w1", "w2", "w3"}) {
			t.Fatalf("IncorrectAnswers mutated: %v", q.IncorrectAnswers)
		}
	}
}

func TestQuizQuestionComplete(t *testing.T) {
	full := QuizQuestion{Question: "q", CorrectAnswer: "a", IncorrectAnswers: []string{"b", "c", "d"}}
	if !full.Complete() {
		t.Fatal("expected complete question")
	}

	missing := full
	missing.IncorrectAnswers = []string{"b", "c"}
	if missing.Complete() {
		t.Fatal("question with two incorrect answers must not be complete")
	}

	noCorrect := full
	noCorrect.CorrectAnswer = ""
	if noCorrect.Complete() {
		t.Fatal("question without correct answer must not be complete")
	}
}

func TestPercentage(t *testing.T) {
	tests := []struct {
		marks, total int
		want         float64
	}{
		{3, 5, 60},
		{2, 3, 66.67},
		{1, 3, 33.33},
		{5, 5, 100},
		{0, 4, 0},
		{0, 0, 0},
	}
	for _, tt := range tests {
		if got := Percentage(tt.marks, tt.total); got != tt.want {
			t.Errorf("Percentage(%d, %d) = %v, want %v", tt.marks, tt.total, got, tt.want)
		}
	}
}

func TestQuizQuestionIndexAndTotal(t *testing.T) {
	quiz := Quiz{Questions: []QuizQuestion{{ID: "q1"}, {ID: "q2"}}}
	if quiz.TotalMarks() != 2 {
		t.Fatalf("TotalMarks = %d, want 2", quiz.TotalMarks())
	}
	idx := quiz.QuestionIndex()
	if idx["q2"] != &quiz.Questions[1] {
		t.Fatal("index must point into the quiz questions")
	}
}

func TestSubscriptionEntitles(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	tests := []struct {
		name string
		sub  StudentSubscription
		want bool
	}{
		{"active without expiry", StudentSubscription{Status: SubscriptionActive}, true},
		{"active not expired", StudentSubscription{Status: SubscriptionActive, ExpiresAt: &future}, true},
		{"active expired", StudentSubscription{Status: SubscriptionActive, ExpiresAt: &past}, false},
		{"inactive", StudentSubscription{Status: SubscriptionInactive}, false},
	}
	for _, tt := range tests {
		if got := tt.sub.Entitles(now); got != tt.want {
			t.Errorf("%s: Entitles = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestIsUUID(t *testing.T) {
	if !IsUUID(GenerateUUID()) {
		t.Fatal("generated id should be a uuid")
	}
	if IsUUID("42") {
		t.Fatal("42 is not a uuid")
	}
}
