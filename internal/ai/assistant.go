package ai

import (
	"context"
	"strings"
)

const assistantSystemPrompt = `Ты — помощник студенческой торговой площадки университета.
Отвечай на вопросы о покупке и продаже вещей между студентами: как составить объявление,
как работает торг ставками, как договориться о встрече в кампусе, как не попасться мошенникам.
Отвечай кратко и по делу, на русском языке. Если вопрос не связан с площадкой,
вежливо верни разговор к её тематике.`

// Ask отвечает на вопрос пользователя о работе площадки. История диалога
// передаётся для сохранения контекста между вопросами.
func (c *Client) Ask(ctx context.Context, question string, history []map[string]string) (string, error) {
	messages := make([]map[string]string, 0, len(history)+2)
	messages = append(messages, map[string]string{
		"role":    "system",
		"content": assistantSystemPrompt,
	})

	// Ограничиваем историю последними репликами, чтобы не раздувать запрос.
	const maxHistory = 10
	if len(history) > maxHistory {
		history = history[len(history)-maxHistory:]
	}
	for _, msg := range history {
		role := msg["role"]
		if role != "user" && role != "assistant" {
			continue
		}
		messages = append(messages, map[string]string{
			"role":    role,
			"content": msg["content"],
		})
	}

	messages = append(messages, map[string]string{
		"role":    "user",
		"content": question,
	})

	answer, err := c.chatCompletion(ctx, messages)
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(answer), nil
}
