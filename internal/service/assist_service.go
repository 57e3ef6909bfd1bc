package service

import (
	"context"
	"fmt"
	"ithakabot/internal/llm"
	"ithakabot/internal/metrics"
	"ithakabot/internal/model"
	"ithakabot/internal/validator"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
)

const assistSystemInstruction = `Eres un asistente que valida respuestas de un formulario de postulación de emprendimientos.
Devuelve solo el valor limpio de la respuesta, sin comillas ni explicaciones.
Si la respuesta no contiene la información pedida, devuelve INVALID: seguido del motivo en español.`

const defaultRejectReason = "La respuesta no contiene la información solicitada."

// AssistService extracts a clean value from free text with the text generator.
// Generator failures never reach the applicant: the mechanically validated
// value is accepted instead.
type AssistService struct {
	generator llm.TextGenerator
	model     string
	logger    *zap.Logger
	metrics   *metrics.Metrics
}

// NewAssistService creates an assist service. A nil generator accepts every
// answer as typed.
func NewAssistService(generator llm.TextGenerator, model string, logger *zap.Logger, m *metrics.Metrics) *AssistService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AssistService{
		generator: generator,
		model:     model,
		logger:    logger,
		metrics:   m,
	}
}

// Extract classifies raw as accepted, needing confirmation or rejected
func (s *AssistService) Extract(ctx context.Context, q *model.QuestionDefinition, raw string) model.Extraction {
	raw = strings.TrimSpace(raw)
	rule := q.Assist
	if rule == nil {
		return accepted(raw)
	}

	if hasBypassKeyword(raw, rule.BypassKeywords) {
		if utf8.RuneCountInString(raw) < rule.BypassMinChars {
			reason := rule.BypassHint
			if reason == "" {
				reason = "Por favor proporciona más detalles en tu respuesta."
			}
			return model.Extraction{Outcome: model.ExtractionRejected, Reason: reason}
		}
		return accepted(raw)
	}

	if s.generator == nil {
		return accepted(raw)
	}

	out, err := s.generator.Generate(ctx, llm.GenerateRequest{
		Model:             s.model,
		Prompt:            buildAssistPrompt(q, rule.Instruction, raw),
		SystemInstruction: assistSystemInstruction,
		Temperature:       0.1,
		MaxTokens:         150,
	})
	if err != nil {
		s.logger.Warn("assist failed open",
			zap.Int("question", q.Number),
			zap.Error(err),
		)
		s.metrics.AIFallback("assist")
		return accepted(raw)
	}

	return interpretExtraction(raw, out)
}

func accepted(v string) model.Extraction {
	return model.Extraction{Outcome: model.ExtractionAccepted, Value: v}
}

func hasBypassKeyword(raw string, keywords []string) bool {
	folded := validator.Fold(raw)
	for _, kw := range keywords {
		if strings.Contains(folded, validator.Fold(kw)) {
			return true
		}
	}
	return false
}

// interpretExtraction maps the model output onto an outcome. An explicit
// INVALID marker rejects, an empty or "none" answer defers to the
// applicant, and an output much shorter than the input is treated as
// possible data loss.
func interpretExtraction(raw, out string) model.Extraction {
	out = strings.Trim(strings.TrimSpace(out), "\"'`")

	if upper := strings.ToUpper(out); strings.HasPrefix(upper, "INVALID") {
		reason := strings.TrimSpace(strings.TrimLeft(out[len("INVALID"):], ":- "))
		if reason == "" {
			reason = defaultRejectReason
		}
		return model.Extraction{Outcome: model.ExtractionRejected, Reason: reason}
	}

	switch strings.ToLower(out) {
	case "", "none", "null", "ninguno":
		return model.Extraction{Outcome: model.ExtractionNeedsConfirmation, Value: raw}
	}

	if 2*len(strings.Fields(out)) < len(strings.Fields(raw)) {
		return model.Extraction{Outcome: model.ExtractionNeedsConfirmation, Value: out}
	}
	return accepted(out)
}

func buildAssistPrompt(q *model.QuestionDefinition, instruction, raw string) string {
	return fmt.Sprintf(`Pregunta del formulario:
%s

Instrucción:
%s

Respuesta del postulante:
%s`, q.Text, instruction, raw)
}
