package bot

import (
	"context"
	"errors"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"ai-todo/internal/logger"
	"ai-todo/internal/model"
	"ai-todo/internal/repository"
	"ai-todo/internal/service"
	"ai-todo/internal/translator"
)

const chatID int64 = 4242

type fakeAPI struct {
	sent     []tgbotapi.MessageConfig
	requests int
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if msg, ok := c.(tgbotapi.MessageConfig); ok {
		f.sent = append(f.sent, msg)
	}
	return tgbotapi.Message{}, nil
}

func (f *fakeAPI) Request(tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.requests++
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeAPI) GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	ch := make(chan tgbotapi.Update)
	close(ch)
	return ch
}

func (f *fakeAPI) StopReceivingUpdates() {}

func (f *fakeAPI) last(t *testing.T) tgbotapi.MessageConfig {
	t.Helper()
	if len(f.sent) == 0 {
		t.Fatal("nothing sent")
	}
	return f.sent[len(f.sent)-1]
}

func (f *fakeAPI) transcript() string {
	var parts []string
	for _, msg := range f.sent {
		parts = append(parts, msg.Text)
	}
	return strings.Join(parts, "\n---\n")
}

type fakeTranslator struct {
	TranslateFunc func(ctx context.Context, command string, tasks []model.Task) (*translator.Result, error)
}

func (f *fakeTranslator) Translate(ctx context.Context, command string, tasks []model.Task) (*translator.Result, error) {
	return f.TranslateFunc(ctx, command, tasks)
}

type testBot struct {
	*Bot
	api   *fakeAPI
	tasks *service.TaskService
	tr    *fakeTranslator
}

func newTestBot(t *testing.T) *testBot {
	t.Helper()
	db, err := repository.NewDB("sqlite", filepath.Join(t.TempDir(), "bot.db"), nil)
	if err != nil {
		t.Fatalf("NewDB: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	log := logger.Discard()
	store := repository.NewStore(db)
	tasks := service.NewTaskService(store, log)
	tr := &fakeTranslator{TranslateFunc: func(context.Context, string, []model.Task) (*translator.Result, error) {
		return &translator.Result{}, nil
	}}
	api := &fakeAPI{}
	b := newBot(api, Services{
		Users:      service.NewUserService(store),
		Tasks:      tasks,
		Commands:   service.NewCommandService(tasks, tr, log),
		Categories: service.NewCategoryService(store, log),
		Summary:    service.NewSummaryService(tasks),
	}, log)
	return &testBot{Bot: b, api: api, tasks: tasks, tr: tr}
}

func (tb *testBot) send(t *testing.T, text string) error {
	t.Helper()
	msg := &tgbotapi.Message{
		Text: text,
		From: &tgbotapi.User{ID: 77},
		Chat: &tgbotapi.Chat{ID: chatID, Type: "private"},
	}
	if strings.HasPrefix(text, "/") {
		length := len(strings.Fields(text)[0])
		msg.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: length}}
	}
	return tb.handleMessage(context.Background(), msg)
}

func (tb *testBot) press(t *testing.T, data string) error {
	t.Helper()
	return tb.handleCallback(context.Background(), &tgbotapi.CallbackQuery{
		ID:      "cb",
		Data:    data,
		From:    &tgbotapi.User{ID: 77},
		Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: chatID, Type: "private"}},
	})
}

func (tb *testBot) userID(t *testing.T) uint {
	t.Helper()
	user, err := tb.svc.Users.TelegramUser(context.Background(), 77)
	if err != nil {
		t.Fatalf("TelegramUser: %v", err)
	}
	return user.ID
}

func TestFreeTextAppliesCommand(t *testing.T) {
	tb := newTestBot(t)
	var got string
	tb.tr.TranslateFunc = func(_ context.Context, command string, _ []model.Task) (*translator.Result, error) {
		got = command
		return &translator.Result{
			Tasks:   []map[string]any{{"title": "Buy milk", "category": "Shopping"}},
			Message: "Added <milk>",
		}, nil
	}

	if err := tb.send(t, "buy milk"); err != nil {
		t.Fatalf("send: %v", err)
	}
	if got != "buy milk" {
		t.Errorf("command = %q", got)
	}
	if tb.api.requests == 0 {
		t.Error("typing action not sent")
	}
	out := tb.api.transcript()
	for _, want := range []string{"🤖 Added &lt;milk&gt;", "🛒 Shopping", "Buy milk"} {
		if !strings.Contains(out, want) {
			t.Errorf("transcript lacks %q:\n%s", want, out)
		}
	}
	if _, ok := tb.api.last(t).ReplyMarkup.(tgbotapi.InlineKeyboardMarkup); !ok {
		t.Error("task list sent without inline buttons")
	}
}

func TestFreeTextTranslatorFailure(t *testing.T) {
	tb := newTestBot(t)
	tb.tr.TranslateFunc = func(context.Context, string, []model.Task) (*translator.Result, error) {
		return nil, errors.New("boom")
	}

	err := tb.send(t, "anything")
	if !errors.Is(err, service.ErrUpstream) {
		t.Fatalf("err = %v, want ErrUpstream", err)
	}
	if !strings.Contains(tb.api.last(t).Text, "assistant is unavailable") {
		t.Errorf("reply = %q", tb.api.last(t).Text)
	}
}

func TestProgressCommand(t *testing.T) {
	tb := newTestBot(t)
	task, err := tb.tasks.CreateTask(context.Background(), tb.userID(t), service.TaskInput{Title: "report"})
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}

	if err := tb.send(t, "/progress "+itoa(task.ID)+" 140"); err != nil {
		t.Fatalf("send: %v", err)
	}
	if !strings.Contains(tb.api.transcript(), "set to 100%") {
		t.Errorf("transcript:\n%s", tb.api.transcript())
	}

	tb.api.sent = nil
	if err := tb.send(t, "/progress 9999 10"); err != nil {
		t.Fatalf("missing task: %v", err)
	}
	if tb.api.last(t).Text != "Task not found." {
		t.Errorf("reply = %q", tb.api.last(t).Text)
	}

	tb.api.sent = nil
	tb.send(t, "/progress abc")
	if !strings.HasPrefix(tb.api.last(t).Text, "Usage: /progress") {
		t.Errorf("reply = %q", tb.api.last(t).Text)
	}
}

func TestDeleteNeedsConfirmation(t *testing.T) {
	tb := newTestBot(t)
	ctx := context.Background()
	user := tb.userID(t)
	task, _ := tb.tasks.CreateTask(ctx, user, service.TaskInput{Title: "old chore"})
	id := itoa(task.ID)

	if err := tb.send(t, "/delete "+id); err != nil {
		t.Fatalf("send: %v", err)
	}
	if _, ok := tb.api.last(t).ReplyMarkup.(tgbotapi.InlineKeyboardMarkup); !ok {
		t.Fatalf("no confirm keyboard: %+v", tb.api.last(t))
	}
	if len(tb.tasks.ListActive(ctx, user)) != 1 {
		t.Fatal("deleted before confirmation")
	}

	if err := tb.press(t, cbConfirmPrefix+id); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if len(tb.tasks.ListActive(ctx, user)) != 0 {
		t.Error("task still active after confirmation")
	}
	if !strings.Contains(tb.api.transcript(), "🗑 Deleted: Old chore") {
		t.Errorf("transcript:\n%s", tb.api.transcript())
	}

	tb.api.sent = nil
	if err := tb.press(t, cbConfirmPrefix+id); err != nil {
		t.Fatalf("second confirm: %v", err)
	}
	if !strings.Contains(tb.api.last(t).Text, "expired") {
		t.Errorf("reply = %q", tb.api.last(t).Text)
	}
}

func TestCancelConfirmationByText(t *testing.T) {
	tb := newTestBot(t)
	ctx := context.Background()
	user := tb.userID(t)
	task, _ := tb.tasks.CreateTask(ctx, user, service.TaskInput{Title: "keep me"})

	if err := tb.press(t, cbCompletePrefix+itoa(task.ID)); err != nil {
		t.Fatalf("press: %v", err)
	}
	if err := tb.send(t, "no"); err != nil {
		t.Fatalf("send: %v", err)
	}
	if active := tb.tasks.ListActive(ctx, user); len(active) != 1 || active[0].Progress != 0 {
		t.Errorf("active = %+v", active)
	}
	if _, ok := tb.pendingConfirmation(chatID); ok {
		t.Error("confirmation still pending")
	}
}

func TestCompleteByText(t *testing.T) {
	tb := newTestBot(t)
	ctx := context.Background()
	user := tb.userID(t)
	task, _ := tb.tasks.CreateTask(ctx, user, service.TaskInput{Title: "finish"})

	tb.send(t, "/done "+itoa(task.ID))
	if err := tb.send(t, "yes"); err != nil {
		t.Fatalf("send: %v", err)
	}
	got, err := tb.tasks.GetTask(ctx, user, task.ID)
	if err != nil {
		t.Fatalf("GetTask: %v", err)
	}
	if got.Progress != model.MaxProgress {
		t.Errorf("progress = %d", got.Progress)
	}
}

func TestNewTaskConversation(t *testing.T) {
	tb := newTestBot(t)
	ctx := context.Background()

	for _, text := range []string{"/newtask", "water plants", "10 minutes", "Home", "2031-01-02"} {
		if err := tb.send(t, text); err != nil {
			t.Fatalf("send %q: %v", text, err)
		}
	}

	active := tb.tasks.ListActive(ctx, tb.userID(t))
	if len(active) != 1 {
		t.Fatalf("active = %+v", active)
	}
	task := active[0]
	if task.Title != "Water plants" || task.EstimatedTime != "10 minutes" || task.DueDate != "2031-01-02" ||
		task.Category == nil || task.Category.Name != "Home" {
		t.Errorf("task = %+v", task)
	}
	if tb.conversation(chatID) != nil {
		t.Error("conversation not cleared")
	}
}

func TestNewTaskConversationStop(t *testing.T) {
	tb := newTestBot(t)
	tb.send(t, "/newtask")
	tb.send(t, btnCancelDialog)
	if tb.conversation(chatID) != nil {
		t.Fatal("conversation not cleared")
	}
	if n := len(tb.tasks.ListAll(context.Background(), tb.userID(t))); n != 0 {
		t.Errorf("tasks = %d", n)
	}
}

func TestReportAndAll(t *testing.T) {
	tb := newTestBot(t)
	ctx := context.Background()
	user := tb.userID(t)
	gone, _ := tb.tasks.CreateTask(ctx, user, service.TaskInput{Title: "gone"})
	tb.tasks.SoftDelete(ctx, user, gone.ID)

	tb.send(t, "/all")
	if !strings.Contains(tb.api.last(t).Text, "🗑 #"+itoa(gone.ID)) {
		t.Errorf("all = %q", tb.api.last(t).Text)
	}

	tb.send(t, menuLabelReport)
	if !strings.Contains(tb.api.last(t).Text, "Task report") {
		t.Errorf("report = %q", tb.api.last(t).Text)
	}
}

func TestGroupByCategory(t *testing.T) {
	work := &model.Category{Name: "Work"}
	home := &model.Category{Name: "home"}
	tasks := []model.Task{
		{ID: 1, Title: "a"},
		{ID: 2, Title: "b", Category: work},
		{ID: 3, Title: "c", Category: home},
		{ID: 4, Title: "d", Category: &model.Category{Name: "work"}},
	}

	groups := groupByCategory(tasks)
	var names []string
	for _, g := range groups {
		names = append(names, g.name)
	}
	if strings.Join(names, ",") != "home,Work,"+noCategory {
		t.Fatalf("groups = %v", names)
	}
	if len(groups[1].tasks) != 2 || groups[1].tasks[0].ID != 2 || groups[1].tasks[1].ID != 4 {
		t.Errorf("work group = %+v", groups[1].tasks)
	}
}

func TestParseProgressArgs(t *testing.T) {
	tests := []struct {
		in       string
		id       uint
		progress int
		wantErr  bool
	}{
		{in: "3 50", id: 3, progress: 50},
		{in: "#3 75%", id: 3, progress: 75},
		{in: " 12   -5 ", id: 12, progress: -5},
		{in: "3", wantErr: true},
		{in: "0 10", wantErr: true},
		{in: "x 10", wantErr: true},
		{in: "3 half", wantErr: true},
		{in: "3 10 20", wantErr: true},
	}
	for _, tt := range tests {
		id, progress, err := parseProgressArgs(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseProgressArgs(%q) err = %v", tt.in, err)
			continue
		}
		if !tt.wantErr && (id != tt.id || progress != tt.progress) {
			t.Errorf("parseProgressArgs(%q) = %d, %d", tt.in, id, progress)
		}
	}
}

func TestSplitCallback(t *testing.T) {
	prefix, id, ok := splitCallback("delete:12")
	if !ok || prefix != cbDeletePrefix || id != "12" {
		t.Errorf("got %q %q %v", prefix, id, ok)
	}
	if _, _, ok := splitCallback("unknown:1"); ok {
		t.Error("unknown prefix accepted")
	}
}

func TestShortTitle(t *testing.T) {
	if got := shortTitle("  pay\nrent ", 20); got != "Pay rent" {
		t.Errorf("got %q", got)
	}
	if got := shortTitle("абвгдеж", 4); got != "Абв…" {
		t.Errorf("got %q", got)
	}
}

func TestUserMessage(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{err: service.ErrNotFound, want: "Task not found."},
		{err: errors.Join(service.ErrStorage, errors.New("disk <full>")), want: "Something went wrong. Try again later."},
		{err: errors.Join(service.ErrValidation, errors.New("a < b")), want: "⚠️ validation error\na &lt; b"},
	}
	for _, tt := range tests {
		if got := userMessage(tt.err); got != tt.want {
			t.Errorf("userMessage(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
