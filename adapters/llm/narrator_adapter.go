package llm

import (
	"context"
	"fmt"
	"strings"

	"alphabot/domain/plan"
	"alphabot/internal"
	"alphabot/ports"
)

// narratorSampleRows caps how many result rows reach the narration
// prompt. Large tables waste tokens without improving the answer.
const narratorSampleRows = 100

// NarratorAdapter turns an executed result into a short pt-BR answer
// using an LLM, falling back to a local summary when the model fails.
type NarratorAdapter struct {
	config           Config
	llmClient        ports.LLMClient
	fallbackNarrator ports.Narrator
	logger           *internal.Logger
}

func NewNarratorAdapter(config Config, client ports.LLMClient, fallback ports.Narrator, logger *internal.Logger) *NarratorAdapter {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &NarratorAdapter{
		config:           config,
		llmClient:        client,
		fallbackNarrator: fallback,
		logger:           logger,
	}
}

func (a *NarratorAdapter) Narrate(ctx context.Context, question string, p *plan.Plan, result *plan.ResultTable) (string, error) {
	prompt := buildNarratorPrompt(question, result)
	answer, err := a.llmClient.ChatCompletion(ctx, a.config.Model, prompt, a.config.MaxTokens)
	if err == nil && strings.TrimSpace(answer) != "" {
		return strings.TrimSpace(answer), nil
	}
	if a.fallbackNarrator != nil {
		a.logger.Warn("LLM narrator failed, falling back to local summary: %v", err)
		return a.fallbackNarrator.Narrate(ctx, question, p, result)
	}
	if err == nil {
		err = fmt.Errorf("narrator returned an empty answer")
	}
	return "", err
}

// buildNarratorPrompt renders the result as CSV plus instructions for
// the AlphaBot persona.
func buildNarratorPrompt(question string, result *plan.ResultTable) string {
	var b strings.Builder
	b.WriteString("Você é o AlphaBot, um analista de vendas objetivo e cordial.\n")
	b.WriteString("Responda a pergunta do usuário usando APENAS os dados abaixo.\n")
	b.WriteString("Formate valores monetários como R$ 1.234,56 e seja breve.\n")
	b.WriteString("Se os dados não respondem a pergunta, diga isso claramente.\n\n")

	b.WriteString("Pergunta: " + question + "\n\n")
	b.WriteString("Resultado (CSV):\n")
	b.WriteString(strings.Join(result.Columns, ",") + "\n")
	rows := result.Rows
	truncated := false
	if len(rows) > narratorSampleRows {
		rows = rows[:narratorSampleRows]
		truncated = true
	}
	for _, row := range rows {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = v.String()
		}
		b.WriteString(strings.Join(cells, ",") + "\n")
	}
	if truncated {
		fmt.Fprintf(&b, "... (%d linhas no total, mostrando as primeiras %d)\n", len(result.Rows), narratorSampleRows)
	}
	return b.String()
}
