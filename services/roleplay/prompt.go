package roleplay

import (
	"fmt"
	"strings"
)

const (
	RoleUser        = "user"
	RoleCounterpart = "cliente"
)

const maxTranscriptMessages = 40

const coachSystemPrompt = `Você é um coach de vendas consultivas para soluções de IA em ciências da vida.
Avalie apenas a última fala do vendedor e responda somente com um objeto JSON no formato
{"pontosFortes": ["..."], "melhorias": ["..."], "nota": 0-10}. Seja específico e breve.`

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// normalizeMessages maps role aliases onto user / cliente and drops empty turns
// and unknown roles. Only the most recent turns are kept.
func normalizeMessages(messages []Message) []Message {
	normalized := make([]Message, 0, len(messages))
	for _, message := range messages {
		content := strings.TrimSpace(message.Content)
		if content == "" {
			continue
		}

		switch strings.ToLower(strings.TrimSpace(message.Role)) {
		case "user", "vendedor":
			normalized = append(normalized, Message{Role: RoleUser, Content: content})
		case "cliente", "counterpart", "assistant", "model":
			normalized = append(normalized, Message{Role: RoleCounterpart, Content: content})
		}
	}

	if len(normalized) > maxTranscriptMessages {
		normalized = normalized[len(normalized)-maxTranscriptMessages:]
	}

	return normalized
}

func lastUserMessage(messages []Message) (Message, bool) {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == RoleUser {
			return messages[i], true
		}
	}
	return Message{}, false
}

func personaSystemPrompt(scenario Scenario) string {
	return fmt.Sprintf(`%s

Você está em um treinamento de vendas e faz o papel do cliente. Cenário: %s.
Responda sempre em português do Brasil, em no máximo três frases, sem sair do personagem,
sem narrar ações e sem prefixar a fala com o seu nome.`, scenario.Persona, scenario.Title)
}

func buildTurnPrompt(scenario Scenario, messages []Message) string {
	if len(messages) == 0 {
		return fmt.Sprintf("A conversa ainda não começou. %s", scenario.Opening)
	}

	return fmt.Sprintf("Conversa até agora:\n%s\n\nEscreva a próxima fala do cliente.", transcript(messages))
}

func buildFeedbackPrompt(scenario Scenario, messages []Message, last Message) string {
	return fmt.Sprintf(`Cenário: %s
Objetivo do vendedor: %s

Conversa:
%s

Última fala do vendedor a ser avaliada:
%s`, scenario.Title, scenario.Objective, transcript(messages), last.Content)
}

func transcript(messages []Message) string {
	lines := make([]string, 0, len(messages))
	for _, message := range messages {
		speaker := "Vendedor"
		if message.Role == RoleCounterpart {
			speaker = "Cliente"
		}
		lines = append(lines, speaker+": "+message.Content)
	}
	return strings.Join(lines, "\n")
}

// cleanReply drops a speaker label the model sometimes echoes back.
func cleanReply(reply string) string {
	reply = strings.TrimSpace(reply)
	for _, label := range []string{"Cliente:", "cliente:", "CLIENTE:"} {
		reply = strings.TrimSpace(strings.TrimPrefix(reply, label))
	}
	return strings.Trim(reply, `"`)
}
