package service

import (
	"context"
	"strings"
	"testing"
)

func TestDailySummary(t *testing.T) {
	store := newTestStore(t)
	tasks := newTestTaskService(t, store)
	ctx := context.Background()
	user := newUser(t, store, "ann")

	late, _ := tasks.CreateTask(ctx, user, TaskInput{Title: "Pay <rent>", DueDate: "2026-03-07", Category: "Home"})
	tasks.CreateTask(ctx, user, TaskInput{Title: "Call mom", DueDate: "2026-03-11"})
	tasks.CreateTask(ctx, user, TaskInput{Title: "Plan trip", DueDate: "2026-06-01"})
	done, _ := tasks.CreateTask(ctx, user, TaskInput{Title: "Finished thing"})
	tasks.SetProgress(ctx, user, late.ID, 50)
	tasks.SetProgress(ctx, user, done.ID, 100)

	report := NewSummaryService(tasks).DailySummary(ctx, user, fixedNow)

	for _, want := range []string{
		"<b>Task report</b>",
		"🗓 2026-03-10",
		"3 open · average progress 16%",
		"⚠️ <b>Overdue</b>",
		"Pay &lt;rent&gt; <i>(Home)</i>",
		"<b>3 d overdue</b>",
		"▰▰▰▰▰▱▱▱▱▱ 50%",
		"⏳ <b>Due soon</b>",
		"2026-03-11 · in 1 d",
		"🟢 <b>Later</b>",
		"Plan trip",
	} {
		if !strings.Contains(report, want) {
			t.Errorf("report lacks %q:\n%s", want, report)
		}
	}
	if strings.Contains(report, "Finished thing") {
		t.Errorf("complete task listed:\n%s", report)
	}
	if strings.Index(report, "Overdue") > strings.Index(report, "Due soon") {
		t.Errorf("groups out of order:\n%s", report)
	}
}

func TestDailySummaryEmpty(t *testing.T) {
	store := newTestStore(t)
	tasks := newTestTaskService(t, store)
	report := NewSummaryService(tasks).DailySummary(context.Background(), newUser(t, store, "ann"), fixedNow)
	if !strings.Contains(report, "no open tasks") {
		t.Errorf("report = %q", report)
	}
}
