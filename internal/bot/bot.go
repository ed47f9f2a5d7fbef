package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"ai-todo/internal/model"
	"ai-todo/internal/service"
)

type conversationStage int

const (
	stageNone conversationStage = iota
	stageTitle
	stageEstimate
	stageCategory
	stageDueDate
)

const (
	cbCompletePrefix = "complete:"
	cbDeletePrefix   = "delete:"
	cbConfirmPrefix  = "confirm:"
	cbCancelPrefix   = "cancel:"
)

const (
	btnSkip             = "⏭️ Skip"
	btnConfirm          = "✅ Confirm"
	btnCancel           = "↩️ Cancel"
	btnCancelDialog     = "⏪ Stop input"
	noCategory          = "No category"
	menuLabelNewTask    = "➕ New task"
	menuLabelTasks      = "📋 Tasks"
	menuLabelReport     = "📊 Report"
	menuLabelCategories = "📂 Categories"
	menuLabelHelp       = "ℹ️ Help"
)

type conversationState struct {
	stage conversationStage
	input service.TaskInput
}

type confirmationAction int

const (
	actionComplete confirmationAction = iota
	actionDelete
)

type confirmationRequest struct {
	taskID uint
	title  string
	action confirmationAction
}

// telegramAPI is the part of tgbotapi.BotAPI the bot talks to.
type telegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Services bundles what the bot needs from the service layer.
type Services struct {
	Users      *service.UserService
	Tasks      *service.TaskService
	Commands   *service.CommandService
	Categories *service.CategoryService
	Summary    *service.SummaryService
}

// Bot aggregates Telegram API with services.
type Bot struct {
	api           telegramAPI
	svc           Services
	log           *logrus.Logger
	now           func() time.Time
	conversations map[int64]*conversationState
	confirmations map[int64]confirmationRequest
	mu            sync.Mutex
}

func New(token string, svc Services, log *logrus.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	log.WithField("account", api.Self.UserName).Info("bot authorized")
	return newBot(api, svc, log), nil
}

func newBot(api telegramAPI, svc Services, log *logrus.Logger) *Bot {
	return &Bot{
		api:           api,
		svc:           svc,
		log:           log,
		now:           time.Now,
		conversations: make(map[int64]*conversationState),
		confirmations: make(map[int64]confirmationRequest),
	}
}

// Start begins polling updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := b.api.GetUpdatesChan(updateConfig)

	b.log.Info("start polling updates")

	go func() {
		<-ctx.Done()
		b.api.StopReceivingUpdates()
	}()

	for update := range updates {
		b.handleUpdate(ctx, update)
	}

	return ctx.Err()
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		if err := b.handleCallback(ctx, update.CallbackQuery); err != nil {
			b.log.WithError(err).Warn("handle callback")
		}
	case update.Message != nil:
		if update.Message.Chat == nil || !update.Message.Chat.IsPrivate() {
			return
		}
		if err := b.handleMessage(ctx, update.Message); err != nil {
			b.log.WithError(err).WithField("chat_id", update.Message.Chat.ID).Warn("handle message")
		}
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	if msg.From == nil {
		return nil
	}
	user, err := b.svc.Users.TelegramUser(ctx, msg.From.ID)
	if err != nil {
		b.sendText(msg.Chat.ID, userMessage(err), nil)
		return err
	}

	if msg.IsCommand() {
		return b.handleCommand(ctx, msg, user)
	}

	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return nil
	}

	if req, ok := b.pendingConfirmation(msg.Chat.ID); ok {
		switch {
		case isConfirm(text):
			return b.applyConfirmation(ctx, msg.Chat.ID, user, req)
		case isCancel(text):
			b.clearConfirmation(msg.Chat.ID)
			b.sendText(msg.Chat.ID, "Okay, nothing changed.", mainMenuKeyboard())
			return nil
		}
		b.clearConfirmation(msg.Chat.ID)
	}

	if state := b.conversation(msg.Chat.ID); state != nil {
		return b.handleConversation(ctx, msg.Chat.ID, user, state, text)
	}

	if handled, err := b.handleMenuAlias(ctx, msg.Chat.ID, user, text); handled {
		return err
	}

	return b.handleFreeText(ctx, msg.Chat.ID, user, text)
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message, user *model.User) error {
	chatID := msg.Chat.ID
	args := strings.TrimSpace(msg.CommandArguments())

	switch msg.Command() {
	case "start":
		b.resetChat(chatID)
		b.sendText(chatID, startText, mainMenuKeyboard())
	case "help":
		b.sendText(chatID, helpText, mainMenuKeyboard())
	case "tasks":
		b.sendTaskList(ctx, chatID, user)
	case "all":
		b.sendAllTasks(ctx, chatID, user)
	case "categories":
		b.sendCategories(ctx, chatID, user)
	case "report":
		b.sendText(chatID, b.svc.Summary.DailySummary(ctx, user.ID, b.now()), mainMenuKeyboard())
	case "newtask":
		b.startConversation(chatID)
	case "cancel":
		b.resetChat(chatID)
		b.sendText(chatID, "Cancelled.", mainMenuKeyboard())
	case "progress":
		return b.handleProgress(ctx, chatID, user, args)
	case "done":
		taskID, err := parseTaskID(args)
		if err != nil {
			b.sendText(chatID, "Usage: /done &lt;id&gt;", nil)
			return nil
		}
		return b.askConfirmation(ctx, chatID, user, taskID, actionComplete)
	case "delete":
		taskID, err := parseTaskID(args)
		if err != nil {
			b.sendText(chatID, "Usage: /delete &lt;id&gt;", nil)
			return nil
		}
		return b.askConfirmation(ctx, chatID, user, taskID, actionDelete)
	default:
		b.sendText(chatID, "Unknown command. Try /help.", nil)
	}
	return nil
}

func (b *Bot) handleMenuAlias(ctx context.Context, chatID int64, user *model.User, text string) (bool, error) {
	switch text {
	case menuLabelNewTask:
		b.startConversation(chatID)
	case menuLabelTasks:
		b.sendTaskList(ctx, chatID, user)
	case menuLabelReport:
		b.sendText(chatID, b.svc.Summary.DailySummary(ctx, user.ID, b.now()), mainMenuKeyboard())
	case menuLabelCategories:
		b.sendCategories(ctx, chatID, user)
	case menuLabelHelp:
		b.sendText(chatID, helpText, mainMenuKeyboard())
	default:
		return false, nil
	}
	return true, nil
}

// handleFreeText hands the message to the command translator.
func (b *Bot) handleFreeText(ctx context.Context, chatID int64, user *model.User, text string) error {
	if _, err := b.api.Request(tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping)); err != nil {
		b.log.WithError(err).Debug("send chat action")
	}

	result, err := b.svc.Commands.ApplyCommand(ctx, user.ID, text)
	if err != nil {
		b.sendText(chatID, userMessage(err), mainMenuKeyboard())
		if errors.Is(err, service.ErrValidation) {
			return nil
		}
		return err
	}

	b.sendText(chatID, "🤖 "+escape(result.Message), nil)
	b.sendTasks(chatID, result.Tasks)
	return nil
}

func (b *Bot) handleProgress(ctx context.Context, chatID int64, user *model.User, args string) error {
	taskID, progress, err := parseProgressArgs(args)
	if err != nil {
		b.sendText(chatID, "Usage: /progress &lt;id&gt; &lt;0-100&gt;", nil)
		return nil
	}
	if err := b.svc.Tasks.SetProgress(ctx, user.ID, taskID, progress); err != nil {
		b.sendText(chatID, userMessage(err), nil)
		if errors.Is(err, service.ErrNotFound) {
			return nil
		}
		return err
	}
	b.sendText(chatID, fmt.Sprintf("Progress of #%d set to %d%%.", taskID, model.ClampProgress(progress)), nil)
	b.sendTaskList(ctx, chatID, user)
	return nil
}

func (b *Bot) startConversation(chatID int64) {
	b.mu.Lock()
	b.conversations[chatID] = &conversationState{stage: stageTitle}
	delete(b.confirmations, chatID)
	b.mu.Unlock()

	b.sendText(chatID, "What needs to be done?", cancelKeyboard())
}

func (b *Bot) handleConversation(ctx context.Context, chatID int64, user *model.User, state *conversationState, text string) error {
	if text == btnCancelDialog {
		b.resetChat(chatID)
		b.sendText(chatID, "Input stopped.", mainMenuKeyboard())
		return nil
	}

	switch state.stage {
	case stageTitle:
		title := normalizeTitle(text)
		if title == "" {
			b.sendText(chatID, "The title cannot be empty. Try again.", cancelKeyboard())
			return nil
		}
		state.input.Title = title
		state.stage = stageEstimate
		b.sendText(chatID, "How long will it take? (for example, 2 hours)", skipKeyboard())
	case stageEstimate:
		if !isSkip(text) {
			state.input.EstimatedTime = text
		}
		state.stage = stageCategory
		b.sendText(chatID, "Which category? Pick one or type a new name.",
			categoryKeyboard(b.svc.Categories.List(ctx, user.ID)))
	case stageCategory:
		if !isSkip(text) && text != noCategory {
			state.input.Category = text
		}
		state.stage = stageDueDate
		b.sendText(chatID, "Due date as YYYY-MM-DD? Skip means today.", skipKeyboard())
	case stageDueDate:
		if !isSkip(text) {
			state.input.DueDate = text
		}
		b.resetChat(chatID)

		task, err := b.svc.Tasks.CreateTask(ctx, user.ID, state.input)
		if err != nil {
			b.sendText(chatID, userMessage(err), mainMenuKeyboard())
			return err
		}
		b.sendText(chatID, "Task created:\n"+formatTask(*task), mainMenuKeyboard())
	}
	return nil
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) error {
	if _, err := b.api.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		b.log.WithError(err).Debug("answer callback")
	}
	if cb.Message == nil || cb.Message.Chat == nil || cb.From == nil {
		return nil
	}
	chatID := cb.Message.Chat.ID

	user, err := b.svc.Users.TelegramUser(ctx, cb.From.ID)
	if err != nil {
		return err
	}

	prefix, rawID, ok := splitCallback(cb.Data)
	if !ok {
		return fmt.Errorf("unknown callback %q", cb.Data)
	}
	taskID, err := parseTaskID(rawID)
	if err != nil {
		return fmt.Errorf("callback %q: %w", cb.Data, err)
	}

	switch prefix {
	case cbCompletePrefix:
		return b.askConfirmation(ctx, chatID, user, taskID, actionComplete)
	case cbDeletePrefix:
		return b.askConfirmation(ctx, chatID, user, taskID, actionDelete)
	case cbConfirmPrefix:
		req, ok := b.pendingConfirmation(chatID)
		if !ok || req.taskID != taskID {
			b.sendText(chatID, "This confirmation has expired.", mainMenuKeyboard())
			return nil
		}
		return b.applyConfirmation(ctx, chatID, user, req)
	case cbCancelPrefix:
		b.clearConfirmation(chatID)
		b.sendText(chatID, "Okay, nothing changed.", mainMenuKeyboard())
	}
	return nil
}

func (b *Bot) askConfirmation(ctx context.Context, chatID int64, user *model.User, taskID uint, action confirmationAction) error {
	task, err := b.svc.Tasks.GetTask(ctx, user.ID, taskID)
	if err != nil {
		b.sendText(chatID, userMessage(err), nil)
		if errors.Is(err, service.ErrNotFound) {
			return nil
		}
		return err
	}
	if task.IsDeleted {
		b.sendText(chatID, fmt.Sprintf("Task #%d is already deleted.", taskID), nil)
		return nil
	}

	b.mu.Lock()
	b.confirmations[chatID] = confirmationRequest{taskID: taskID, title: task.Title, action: action}
	b.mu.Unlock()

	question := "Delete"
	if action == actionComplete {
		question = "Mark as done"
	}
	b.sendText(chatID, fmt.Sprintf("%s #%d «%s»?", question, taskID, escape(shortTitle(task.Title, 40))), confirmKeyboard(taskID))
	return nil
}

func (b *Bot) applyConfirmation(ctx context.Context, chatID int64, user *model.User, req confirmationRequest) error {
	b.clearConfirmation(chatID)

	var (
		err  error
		done string
	)
	switch req.action {
	case actionComplete:
		err = b.svc.Tasks.SetProgress(ctx, user.ID, req.taskID, model.MaxProgress)
		done = "✅ Done: "
	case actionDelete:
		err = b.svc.Tasks.SoftDelete(ctx, user.ID, req.taskID)
		done = "🗑 Deleted: "
	}
	if err != nil {
		b.sendText(chatID, userMessage(err), mainMenuKeyboard())
		return err
	}

	b.sendText(chatID, done+escape(shortTitle(req.title, 40)), mainMenuKeyboard())
	b.sendTaskList(ctx, chatID, user)
	return nil
}

func (b *Bot) sendTaskList(ctx context.Context, chatID int64, user *model.User) {
	b.sendTasks(chatID, b.svc.Tasks.ListActive(ctx, user.ID))
}

func (b *Bot) sendTasks(chatID int64, tasks []model.Task) {
	if len(tasks) == 0 {
		b.sendText(chatID, "No open tasks. Just tell me what to do.", mainMenuKeyboard())
		return
	}

	var builder strings.Builder
	builder.WriteString("📋 <b>Open tasks</b>\n")
	for _, group := range groupByCategory(tasks) {
		fmt.Fprintf(&builder, "\n<b>%s</b>\n", escape(categoryLabel(group.name)))
		for _, task := range group.tasks {
			builder.WriteString(formatTask(task))
			builder.WriteString("\n")
		}
	}
	b.sendText(chatID, builder.String(), taskButtons(tasks))
}

func (b *Bot) sendAllTasks(ctx context.Context, chatID int64, user *model.User) {
	tasks := b.svc.Tasks.ListAll(ctx, user.ID)
	if len(tasks) == 0 {
		b.sendText(chatID, "You have no tasks yet.", mainMenuKeyboard())
		return
	}

	var builder strings.Builder
	builder.WriteString("🗂 <b>All tasks</b>\n\n")
	for _, task := range tasks {
		fmt.Fprintf(&builder, "%s %s\n", statusIcon(task), formatTask(task))
	}
	b.sendText(chatID, builder.String(), nil)
}

func (b *Bot) sendCategories(ctx context.Context, chatID int64, user *model.User) {
	categories := b.svc.Categories.List(ctx, user.ID)
	if len(categories) == 0 {
		b.sendText(chatID, "No categories yet. They appear when a task names one.", nil)
		return
	}

	var builder strings.Builder
	builder.WriteString("📂 <b>Categories</b>\n")
	for _, category := range categories {
		fmt.Fprintf(&builder, "• %s <code>%s</code>\n", escape(category.Name), escape(category.Color))
	}
	b.sendText(chatID, builder.String(), nil)
}

func (b *Bot) sendText(chatID int64, text string, markup any) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	if markup != nil {
		msg.ReplyMarkup = markup
	}
	if _, err := b.api.Send(msg); err != nil {
		b.log.WithError(err).WithField("chat_id", chatID).Warn("send message")
	}
}

func (b *Bot) conversation(chatID int64) *conversationState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.conversations[chatID]
}

func (b *Bot) pendingConfirmation(chatID int64) (confirmationRequest, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	req, ok := b.confirmations[chatID]
	return req, ok
}

func (b *Bot) clearConfirmation(chatID int64) {
	b.mu.Lock()
	delete(b.confirmations, chatID)
	b.mu.Unlock()
}

func (b *Bot) resetChat(chatID int64) {
	b.mu.Lock()
	delete(b.conversations, chatID)
	delete(b.confirmations, chatID)
	b.mu.Unlock()
}

const startText = `👋 Hi! I keep your to-do list.

Just write what you need, for example:
<i>buy milk tomorrow, and the report is half done</i>

I will add, update or remove tasks for you. /help lists the commands.`

const helpText = `<b>Commands</b>
/tasks – open tasks
/all – every task, deleted and done included
/newtask – add a task step by step
/progress &lt;id&gt; &lt;0-100&gt; – set progress
/done &lt;id&gt; – mark a task as done
/delete &lt;id&gt; – delete a task
/categories – your categories
/report – summary of open tasks
/cancel – stop the current input

Any other message is read as an instruction for your list.`
