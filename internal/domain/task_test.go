package domain

import "testing"

func TestParseTask(t *testing.T) {
	t.Parallel()

	cases := map[string]Task{
		"emotion": TaskEmotion,
		" Sign ":  TaskSign,
		"BOTH":    TaskBoth,
	}
	for input, want := range cases {
		got, err := ParseTask(input)
		if err != nil {
			t.Fatalf("parse %q: %v", input, err)
		}
		if got != want {
			t.Fatalf("parse %q: got %q, want %q", input, got, want)
		}
	}

	for _, input := range []string{"", "gesture", "emotions"} {
		if _, err := ParseTask(input); err == nil {
			t.Fatalf("expected %q to be rejected", input)
		}
	}
}

func TestTasksAreValidAndDefaultFirst(t *testing.T) {
	t.Parallel()

	tasks := Tasks()
	if len(tasks) != 3 || tasks[0] != DefaultTask {
		t.Fatalf("unexpected task list %v", tasks)
	}
	for _, task := range tasks {
		if !task.Valid() {
			t.Fatalf("expected %q to be valid", task)
		}
	}
	if Task("").Valid() {
		t.Fatalf("expected empty task to be invalid")
	}
}
