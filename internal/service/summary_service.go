package service

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"ai-todo/internal/model"
)

const progressBarWidth = 10

// SummaryService builds human-readable reports of the active list.
type SummaryService struct {
	tasks *TaskService
}

func NewSummaryService(tasks *TaskService) *SummaryService {
	return &SummaryService{tasks: tasks}
}

// DailySummary renders the user's active tasks as Telegram HTML, grouped
// into overdue, due within two days and later.
func (s *SummaryService) DailySummary(ctx context.Context, userID uint, now time.Time) string {
	tasks := s.tasks.ListActive(ctx, userID)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	var overdue, soon, later []model.Task
	total := 0
	for _, task := range tasks {
		total += task.Progress
		switch days := daysUntil(task.DueDate, today); {
		case days < 0:
			overdue = append(overdue, task)
		case days <= 2:
			soon = append(soon, task)
		default:
			later = append(later, task)
		}
	}

	var builder strings.Builder
	builder.WriteString("📋 <b>Task report</b>\n")
	builder.WriteString(fmt.Sprintf("🗓 %s\n", today.Format(model.DateLayout)))

	if len(tasks) == 0 {
		builder.WriteString("\n✨ no open tasks, enjoy the day\n")
		return strings.TrimSpace(builder.String())
	}

	builder.WriteString(fmt.Sprintf("📊 %d open · average progress %d%%\n", len(tasks), total/len(tasks)))

	writeGroup(&builder, "⚠️ <b>Overdue</b>", overdue, today)
	writeGroup(&builder, "⏳ <b>Due soon</b>", soon, today)
	writeGroup(&builder, "🟢 <b>Later</b>", later, today)

	return strings.TrimSpace(builder.String())
}

func writeGroup(builder *strings.Builder, header string, tasks []model.Task, today time.Time) {
	if len(tasks) == 0 {
		return
	}
	builder.WriteString("\n" + header + "\n")
	for _, task := range tasks {
		builder.WriteString(formatTask(task, today))
	}
}

func formatTask(task model.Task, today time.Time) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("#%d %s", task.ID, html.EscapeString(strings.TrimSpace(task.Title))))
	if task.Category != nil {
		if name := strings.TrimSpace(task.Category.Name); name != "" {
			sb.WriteString(fmt.Sprintf(" <i>(%s)</i>", html.EscapeString(name)))
		}
	}

	days := daysUntil(task.DueDate, today)
	switch {
	case days < 0:
		sb.WriteString(fmt.Sprintf("\n   ⏰ %s · <b>%d d overdue</b>", task.DueDate, -days))
	case days == 0:
		sb.WriteString(fmt.Sprintf("\n   ⏰ %s · today", task.DueDate))
	default:
		sb.WriteString(fmt.Sprintf("\n   ⏰ %s · in %d d", task.DueDate, days))
	}
	sb.WriteString(fmt.Sprintf("\n   %s %d%% · ⌛ %s", progressBar(task.Progress), task.Progress, html.EscapeString(task.EstimatedTime)))

	sb.WriteByte('\n')
	return sb.String()
}

// daysUntil returns whole days from today to the due date. Unparseable
// dates count as due today.
func daysUntil(dueDate string, today time.Time) int {
	due, err := time.ParseInLocation(model.DateLayout, dueDate, today.Location())
	if err != nil {
		return 0
	}
	return int(due.Sub(today).Round(time.Hour).Hours() / 24)
}

func progressBar(progress int) string {
	filled := model.ClampProgress(progress) * progressBarWidth / model.MaxProgress
	return strings.Repeat("▰", filled) + strings.Repeat("▱", progressBarWidth-filled)
}
