package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"ai-todo/internal/model"
	"ai-todo/internal/translator"
)

// DefaultCommandMessage is returned when the translator gives no message.
const DefaultCommandMessage = "Command processed successfully"

// Translator turns a free-text command into proposed patches.
type Translator interface {
	Translate(ctx context.Context, command string, tasks []model.Task) (*translator.Result, error)
}

// CommandResult is what a user sees after a command was applied.
type CommandResult struct {
	Tasks   []model.Task
	Message string
}

// CommandService runs natural-language commands against the task list.
type CommandService struct {
	tasks      *TaskService
	translator Translator
	log        *logrus.Logger
}

func NewCommandService(tasks *TaskService, translator Translator, log *logrus.Logger) *CommandService {
	return &CommandService{tasks: tasks, translator: translator, log: log}
}

// ApplyCommand sends the command and the user's active tasks to the
// translator, reconciles the answer and returns the refreshed active list.
// Nothing is written when the translator fails.
func (s *CommandService) ApplyCommand(ctx context.Context, userID uint, command string) (*CommandResult, error) {
	command = strings.TrimSpace(command)
	if command == "" {
		return nil, validationf("command is required")
	}

	snapshot := s.tasks.ListActive(ctx, userID)
	result, err := s.translator.Translate(ctx, command, snapshot)
	if err != nil {
		translatorCalls.WithLabelValues("error").Inc()
		s.log.WithError(err).WithField("user_id", userID).Warn("translate command")
		return nil, fmt.Errorf("%w: %w", ErrUpstream, err)
	}
	translatorCalls.WithLabelValues("ok").Inc()

	patches, err := ParsePatches(result.Tasks)
	if err != nil {
		return nil, err
	}
	if err := s.tasks.Reconcile(ctx, userID, patches); err != nil {
		return nil, err
	}

	message := strings.TrimSpace(result.Message)
	if message == "" {
		message = DefaultCommandMessage
	}
	s.log.WithFields(logrus.Fields{
		"user_id": userID,
		"patches": len(patches),
	}).Info("command applied")

	return &CommandResult{Tasks: s.tasks.ListActive(ctx, userID), Message: message}, nil
}
