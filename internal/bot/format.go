package bot

import (
	"errors"
	"fmt"
	"html"
	"sort"
	"strconv"
	"strings"
	"unicode"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"ai-todo/internal/model"
	"ai-todo/internal/service"
)

// maxTaskButtons caps inline keyboards; Telegram rejects very large markups.
const maxTaskButtons = 20

type categoryGroup struct {
	name  string
	tasks []model.Task
}

// groupByCategory keeps the incoming task order inside each group. Groups
// are sorted by name with uncategorized tasks last.
func groupByCategory(tasks []model.Task) []categoryGroup {
	index := make(map[string]int)
	var groups []categoryGroup
	for _, task := range tasks {
		name := noCategory
		if task.Category != nil && strings.TrimSpace(task.Category.Name) != "" {
			name = strings.TrimSpace(task.Category.Name)
		}
		key := strings.ToLower(name)
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, categoryGroup{name: name})
		}
		groups[i].tasks = append(groups[i].tasks, task)
	}

	sort.SliceStable(groups, func(i, j int) bool {
		iNone := groups[i].name == noCategory
		jNone := groups[j].name == noCategory
		if iNone != jNone {
			return jNone
		}
		return strings.ToLower(groups[i].name) < strings.ToLower(groups[j].name)
	})
	return groups
}

func formatTask(task model.Task) string {
	var builder strings.Builder
	fmt.Fprintf(&builder, "#%d %s", task.ID, escape(task.Title))
	if task.Category != nil {
		fmt.Fprintf(&builder, " <i>(%s)</i>", escape(task.Category.Name))
	}
	fmt.Fprintf(&builder, "\n   📅 %s · ⏱ %s · %d%%", task.DueDate, escape(task.EstimatedTime), task.Progress)
	return builder.String()
}

func statusIcon(task model.Task) string {
	switch {
	case task.IsDeleted:
		return "🗑"
	case task.Progress >= model.MaxProgress:
		return "✅"
	default:
		return "▫️"
	}
}

func taskButtons(tasks []model.Task) tgbotapi.InlineKeyboardMarkup {
	if len(tasks) > maxTaskButtons {
		tasks = tasks[:maxTaskButtons]
	}
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(tasks))
	for _, task := range tasks {
		id := strconv.FormatUint(uint64(task.ID), 10)
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ "+shortTitle(task.Title, 24), cbCompletePrefix+id),
			tgbotapi.NewInlineKeyboardButtonData("🗑 #"+id, cbDeletePrefix+id),
		))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func confirmKeyboard(taskID uint) tgbotapi.InlineKeyboardMarkup {
	id := strconv.FormatUint(uint64(taskID), 10)
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(btnConfirm, cbConfirmPrefix+id),
			tgbotapi.NewInlineKeyboardButtonData(btnCancel, cbCancelPrefix+id),
		),
	)
}

func mainMenuKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(menuLabelNewTask),
			tgbotapi.NewKeyboardButton(menuLabelTasks),
			tgbotapi.NewKeyboardButton(menuLabelReport),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(menuLabelCategories),
			tgbotapi.NewKeyboardButton(menuLabelHelp),
		),
	)
	kb.ResizeKeyboard = true
	return kb
}

func cancelKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(btnCancelDialog)),
	)
	kb.ResizeKeyboard = true
	return kb
}

func skipKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnSkip),
			tgbotapi.NewKeyboardButton(btnCancelDialog),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = true
	return kb
}

func categoryKeyboard(categories []model.Category) tgbotapi.ReplyKeyboardMarkup {
	var rows [][]tgbotapi.KeyboardButton
	var row []tgbotapi.KeyboardButton
	for _, category := range categories {
		row = append(row, tgbotapi.NewKeyboardButton(category.Name))
		if len(row) == 3 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	rows = append(rows, tgbotapi.NewKeyboardButtonRow(
		tgbotapi.NewKeyboardButton(noCategory),
		tgbotapi.NewKeyboardButton(btnCancelDialog),
	))

	kb := tgbotapi.NewReplyKeyboard(rows...)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = true
	return kb
}

// userMessage turns a service error into a reply for the chat. Storage
// details stay in the logs.
func userMessage(err error) string {
	switch {
	case errors.Is(err, service.ErrValidation):
		return "⚠️ " + escape(err.Error())
	case errors.Is(err, service.ErrNotFound):
		return "Task not found."
	case errors.Is(err, service.ErrUpstream):
		return "The assistant is unavailable right now. Try again in a minute."
	default:
		return "Something went wrong. Try again later."
	}
}

func splitCallback(data string) (prefix, id string, ok bool) {
	for _, p := range []string{cbCompletePrefix, cbDeletePrefix, cbConfirmPrefix, cbCancelPrefix} {
		if strings.HasPrefix(data, p) {
			return p, strings.TrimPrefix(data, p), true
		}
	}
	return "", "", false
}

func parseTaskID(raw string) (uint, error) {
	value, err := strconv.ParseUint(strings.TrimPrefix(strings.TrimSpace(raw), "#"), 10, 64)
	if err != nil {
		return 0, err
	}
	if value == 0 {
		return 0, errors.New("task id must be positive")
	}
	return uint(value), nil
}

// parseProgressArgs reads "<id> <progress>", the progress optionally
// followed by a percent sign.
func parseProgressArgs(args string) (uint, int, error) {
	fields := strings.Fields(args)
	if len(fields) != 2 {
		return 0, 0, fmt.Errorf("want 2 arguments, got %d", len(fields))
	}
	taskID, err := parseTaskID(fields[0])
	if err != nil {
		return 0, 0, err
	}
	progress, err := strconv.Atoi(strings.TrimSuffix(fields[1], "%"))
	if err != nil {
		return 0, 0, err
	}
	return taskID, progress, nil
}

func isSkip(text string) bool {
	value := strings.TrimSpace(strings.ToLower(text))
	return value == "-" || value == strings.ToLower(btnSkip) || value == "skip"
}

func isConfirm(text string) bool {
	value := strings.TrimSpace(strings.ToLower(text))
	return value == strings.ToLower(btnConfirm) || value == "confirm" || value == "yes"
}

func isCancel(text string) bool {
	value := strings.TrimSpace(strings.ToLower(text))
	return value == strings.ToLower(btnCancel) || value == "cancel" || value == "no"
}

func escape(s string) string {
	return html.EscapeString(s)
}

func shortTitle(title string, maxLen int) string {
	clean := normalizeTitle(strings.ReplaceAll(title, "\n", " "))
	runes := []rune(clean)
	if len(runes) <= maxLen {
		return clean
	}
	if maxLen <= 1 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-1]) + "…"
}

func normalizeTitle(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return value
	}
	runes := []rune(value)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

func categoryLabel(name string) string {
	base := strings.TrimSpace(name)
	var icon string
	switch strings.ToLower(base) {
	case "work":
		icon = "💼"
	case "study", "school":
		icon = "🎓"
	case "shopping":
		icon = "🛒"
	case "health":
		icon = "🩺"
	case "home":
		icon = "🏠"
	case "personal":
		icon = "🧩"
	case strings.ToLower(noCategory):
		icon = "📁"
	default:
		icon = "🏷️"
	}
	return fmt.Sprintf("%s %s", icon, normalizeTitle(base))
}
