package service

import (
	"context"
	"encoding/json"
	"fmt"
	"ithakabot/internal/catalog"
	"ithakabot/internal/config"
	"ithakabot/internal/llm"
	"ithakabot/internal/metrics"
	"ithakabot/internal/model"
	"regexp"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
)

const (
	// Answers to evaluative questions without a rubric only need this many characters
	noRubricMinLength = 10
	maxSuggestions    = 3
)

var bulletPrefix = regexp.MustCompile(`^(?:[-•*]|\d+[.)])\s*`)

var defaultSuggestions = []string{
	"Sé más específico sobre tu propuesta",
	"Incluye ejemplos concretos",
}

const evaluatorSystemInstruction = `Eres un evaluador de postulaciones de la incubadora Ithaka.
Evalúas respuestas de emprendedores con criterios claros y un tono constructivo.
Responde siempre en español.`

// EvaluatorService grades evaluative answers against their rubric
type EvaluatorService struct {
	generator llm.TextGenerator
	models    config.AIModels
	catalog   *catalog.Catalog
	rubrics   map[string]model.Rubric
	logger    *zap.Logger
	metrics   *metrics.Metrics
}

// NewEvaluatorService creates a new evaluator service. With a nil generator
// answers are scored by length.
func NewEvaluatorService(generator llm.TextGenerator, models config.AIModels, cat *catalog.Catalog, rubrics map[string]model.Rubric, logger *zap.Logger, m *metrics.Metrics) *EvaluatorService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EvaluatorService{
		generator: generator,
		models:    models,
		catalog:   cat,
		rubrics:   rubrics,
		logger:    logger,
		metrics:   m,
	}
}

// Evaluate returns the gate's verdict. It never fails: when the generator is
// unreachable or its output unusable the answer is accepted with Fallback set.
func (s *EvaluatorService) Evaluate(ctx context.Context, q *model.QuestionDefinition, answer string, prior map[string]model.AnswerValue) model.Assessment {
	rubric, ok := s.rubrics[q.RubricKey]
	if !ok {
		return lengthAssessment(answer)
	}
	if s.generator == nil {
		return s.mockEvaluate(rubric, answer)
	}

	response, err := s.generator.Generate(ctx, llm.GenerateRequest{
		Model:             s.models.Evaluation,
		Prompt:            s.buildEvaluationPrompt(q, rubric, answer, prior),
		SystemInstruction: evaluatorSystemInstruction,
		Temperature:       0.3,
		MaxTokens:         500,
	})
	if err != nil {
		return s.failOpen(q, err)
	}

	var verdict struct {
		IsAcceptable        *bool    `json:"is_acceptable"`
		Score               *float64 `json:"score"`
		Feedback            string   `json:"feedback"`
		Suggestions         []string `json:"suggestions"`
		Strengths           []string `json:"strengths"`
		AreasForImprovement []string `json:"areas_for_improvement"`
	}
	if err := json.Unmarshal([]byte(llm.ExtractJSON(response)), &verdict); err != nil {
		return s.failOpen(q, fmt.Errorf("parse verdict: %w", err))
	}
	if verdict.IsAcceptable == nil || verdict.Score == nil {
		return s.failOpen(q, fmt.Errorf("verdict missing is_acceptable or score"))
	}

	result := model.Assessment{
		Acceptable:          *verdict.IsAcceptable && *verdict.Score >= rubric.Threshold,
		Score:               clampScore(*verdict.Score),
		Feedback:            strings.TrimSpace(verdict.Feedback),
		Suggestions:         limit(verdict.Suggestions, maxSuggestions),
		Strengths:           verdict.Strengths,
		AreasForImprovement: verdict.AreasForImprovement,
	}
	if !result.Acceptable && len(result.Suggestions) == 0 {
		result.Suggestions = s.generateSuggestions(ctx, q, rubric, answer, result)
	}
	return result
}

// generateSuggestions asks for improvement tips when the verdict had none
func (s *EvaluatorService) generateSuggestions(ctx context.Context, q *model.QuestionDefinition, rubric model.Rubric, answer string, verdict model.Assessment) []string {
	response, err := s.generator.Generate(ctx, llm.GenerateRequest{
		Model:             s.models.Suggestions,
		Prompt:            s.buildSuggestionsPrompt(rubric, answer, verdict),
		SystemInstruction: evaluatorSystemInstruction,
		Temperature:       0.7,
		MaxTokens:         300,
	})
	if err != nil {
		s.logger.Warn("suggestions unavailable", zap.Int("question", q.Number), zap.Error(err))
		s.metrics.AIFallback("suggestions")
		return defaultSuggestions
	}

	tips := parseBullets(response)
	if len(tips) == 0 {
		return defaultSuggestions
	}
	return limit(tips, maxSuggestions)
}

func (s *EvaluatorService) failOpen(q *model.QuestionDefinition, err error) model.Assessment {
	s.logger.Warn("evaluation failed open",
		zap.Int("question", q.Number),
		zap.String("rubric", q.RubricKey),
		zap.Error(err),
	)
	s.metrics.AIFallback("evaluation")
	return model.Assessment{Acceptable: true, Score: 1, Fallback: true}
}

// Prompt builders
func (s *EvaluatorService) buildEvaluationPrompt(q *model.QuestionDefinition, rubric model.Rubric, answer string, prior map[string]model.AnswerValue) string {
	var criteria strings.Builder
	for _, c := range rubric.Criteria {
		criteria.WriteString("- ")
		criteria.WriteString(c)
		criteria.WriteString("\n")
	}

	guidance := ""
	if rubric.Guidance != "" {
		guidance = "\nIndicaciones adicionales: " + rubric.Guidance + "\n"
	}

	return fmt.Sprintf(`Evalúa la respuesta de un postulante. Devuelve SOLO JSON válido con este esquema:
{
  "is_acceptable": true o false,
  "score": 0.0 a 1.0,
  "feedback": "comentario breve y constructivo",
  "suggestions": ["sugerencia 1", "sugerencia 2"],
  "strengths": ["fortaleza"],
  "areas_for_improvement": ["aspecto a mejorar"]
}

Tema: %s
Criterios:
%s%s
Umbral de aceptación: %.2f
%s
Respuesta del postulante:
%s`,
		rubric.Title, criteria.String(), guidance, rubric.Threshold, s.ventureContext(q, prior), answer)
}

// ventureContext lists earlier evaluative answers so later ones can be
// judged for coherence. Personal data never leaves the process.
func (s *EvaluatorService) ventureContext(q *model.QuestionDefinition, prior map[string]model.AnswerValue) string {
	if s.catalog == nil {
		return ""
	}
	var sb strings.Builder
	for _, p := range s.catalog.Questions() {
		if p.Number >= q.Number || !p.IsEvaluative() {
			continue
		}
		v, ok := prior[p.FieldName]
		if !ok {
			continue
		}
		if sb.Len() == 0 {
			sb.WriteString("\nRespuestas anteriores del postulante:\n")
		}
		title := p.FieldName
		if r, ok := s.rubrics[p.RubricKey]; ok {
			title = r.Title
		}
		sb.WriteString(fmt.Sprintf("- %s: %s\n", title, v.String()))
	}
	return sb.String()
}

func (s *EvaluatorService) buildSuggestionsPrompt(rubric model.Rubric, answer string, verdict model.Assessment) string {
	return fmt.Sprintf(`La siguiente respuesta sobre "%s" no alcanzó el nivel esperado.
Comentario del evaluador: %s

Respuesta:
%s

Escribe hasta 3 sugerencias concretas para mejorarla, una por línea, empezando cada línea con "- ".`,
		rubric.Title, verdict.Feedback, answer)
}

// Mock implementations
func (s *EvaluatorService) mockEvaluate(rubric model.Rubric, answer string) model.Assessment {
	wordCount := len(strings.Fields(answer))
	quality := float64(wordCount) / 40.0
	if quality > 1.0 {
		quality = 1.0
	}

	result := model.Assessment{
		Acceptable: quality >= rubric.Threshold,
		Score:      quality,
		Fallback:   true,
	}
	if !result.Acceptable {
		result.Feedback = "Tu respuesta es muy breve para evaluar este punto."
		result.Suggestions = defaultSuggestions
	}
	return result
}

func lengthAssessment(answer string) model.Assessment {
	if utf8.RuneCountInString(strings.TrimSpace(answer)) >= noRubricMinLength {
		return model.Assessment{Acceptable: true, Score: 1}
	}
	return model.Assessment{
		Score:       0,
		Feedback:    "La respuesta es demasiado corta.",
		Suggestions: defaultSuggestions,
	}
}

func parseBullets(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(bulletPrefix.ReplaceAllString(strings.TrimSpace(line), ""))
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}

func clampScore(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}

func limit(items []string, n int) []string {
	if len(items) > n {
		return items[:n]
	}
	return items
}
