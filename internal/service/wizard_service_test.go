package service

import (
	"context"
	"fmt"
	"ithakabot/internal/catalog"
	"ithakabot/internal/model"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var personalAnswers = []string{
	"Juan Pérez",
	"Juan@Example.com",
	"099 123 456",
	"1.234.567-8",
	"montevideo uruguay",
	"montevideo",
	"Estudiante",
	"ingeniería",
	"Redes Sociales",
	"Quiero aprender a emprender",
}

var ventureAnswers = []string{
	"Somos Ana Gómez en diseño y Luis Pérez en ventas",
	"Los comercios chicos no controlan su stock y pierden ventas",
	"Una app de inventario simple para almacenes de barrio",
	"Hoy usan cuadernos, nosotros automatizamos los pedidos",
	"Suscripción mensual pagada por cada comercio",
	"Prototipo",
	"capacitación, otro",
	"Nada más",
}

// fakeExtractor returns a fixed outcome for every answer
type fakeExtractor struct {
	outcome model.ExtractionOutcome
	value   string
	reason  string
	calls   int
}

func (f *fakeExtractor) Extract(ctx context.Context, q *model.QuestionDefinition, raw string) model.Extraction {
	f.calls++
	if f.outcome == "" || f.outcome == model.ExtractionAccepted {
		v := raw
		if f.value != "" {
			v = f.value
		}
		return model.Extraction{Outcome: model.ExtractionAccepted, Value: v}
	}
	return model.Extraction{Outcome: f.outcome, Value: f.value, Reason: f.reason}
}

// fakeEvaluator rejects the first `reject` answers, then accepts
type fakeEvaluator struct {
	reject int
	calls  int
}

func (f *fakeEvaluator) Evaluate(ctx context.Context, q *model.QuestionDefinition, answer string, prior map[string]model.AnswerValue) model.Assessment {
	f.calls++
	if f.calls <= f.reject {
		return model.Assessment{Score: 0.3, Feedback: "Falta detalle", Suggestions: []string{"Agrega ejemplos"}}
	}
	return model.Assessment{Acceptable: true, Score: 0.9}
}

func newTestWizard(ext Extractor, eval Evaluator) *WizardService {
	w := NewWizardService(catalog.Default(), ext, eval, 3, nil, nil)
	w.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	n := 0
	w.newID = func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
	return w
}

// drive sends each message in turn and returns every result
func drive(t *testing.T, w *WizardService, sess *model.WizardSession, msgs ...string) []*AdvanceResult {
	t.Helper()
	var out []*AdvanceResult
	for _, m := range msgs {
		res, err := w.Advance(context.Background(), sess, m)
		require.NoError(t, err)
		out = append(out, res)
		sess = res.Session
	}
	return out
}

func last(results []*AdvanceResult) *AdvanceResult {
	return results[len(results)-1]
}

func messages(parts ...[]string) []string {
	var out []string
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func TestBasicPathCompletes(t *testing.T) {
	w := newTestWizard(&fakeExtractor{}, &fakeEvaluator{})
	msgs := messages([]string{"hola"}, personalAnswers, []string{"no", "sin comentarios"})

	results := drive(t, w, w.NewSession("conv-1"), msgs...)
	res := last(results)

	require.True(t, res.Completed)
	require.NotNil(t, res.Record)
	assert.Equal(t, model.PathBasic, res.Record.Path)
	assert.Equal(t, model.SessionCompleted, res.Session.Status)
	assert.Equal(t, 21, res.Session.CurrentQuestion)
	assert.Contains(t, res.Response, "Registro completado")

	// Venture questions were never asked
	assert.Len(t, results, len(msgs))
	for _, f := range []string{"team_composition", "project_stage", "additional_info"} {
		assert.NotContains(t, res.Record.Answers, f)
	}

	want := map[string]model.AnswerValue{
		"full_name":           model.TextAnswer("Pérez, Juan"),
		"email":               model.TextAnswer("juan@example.com"),
		"phone":               model.TextAnswer("099123456"),
		"document_id":         model.TextAnswer("12345678"),
		"location":            model.TextAnswer("Montevideo, Uruguay"),
		"preferred_campus":    model.TextAnswer("Montevideo"),
		"ucu_relation":        model.TextAnswer("Estudiante"),
		"faculty":             model.TextAnswer("Ingeniería y Tecnologías"),
		"discovery_method":    model.TextAnswer("Redes Sociales"),
		"motivation":          model.TextAnswer("Quiero aprender a emprender"),
		"has_idea":            model.TextAnswer("NO"),
		"additional_comments": model.TextAnswer("sin comentarios"),
	}
	if diff := cmp.Diff(want, res.Record.Answers); diff != "" {
		t.Errorf("record answers mismatch (-want +got):\n%s", diff)
	}
}

func TestFullPathCompletes(t *testing.T) {
	ext := &fakeExtractor{}
	eval := &fakeEvaluator{}
	w := newTestWizard(ext, eval)
	msgs := messages([]string{"hola"}, personalAnswers, []string{"si", "todo bien"}, ventureAnswers)

	res := last(drive(t, w, w.NewSession("conv-1"), msgs...))

	require.True(t, res.Completed)
	assert.Equal(t, model.PathFull, res.Record.Path)
	assert.Contains(t, res.Response, "Postulación completada")
	assert.Equal(t, []string{"Capacitación", "Otro"}, res.Record.Answers["support_needed"].Choices)
	assert.Equal(t, "Prototipo/MVP", res.Record.Field("project_stage"))
	assert.Equal(t, 1, ext.calls, "only the team question is assisted")
	assert.Equal(t, 5, eval.calls)
}

func TestShortCircuitUsesFewerTransitions(t *testing.T) {
	w := newTestWizard(&fakeExtractor{}, &fakeEvaluator{})

	basic := drive(t, w, w.NewSession("a"), messages([]string{"hola"}, personalAnswers, []string{"no", "x"})...)
	full := drive(t, w, w.NewSession("b"), messages([]string{"hola"}, personalAnswers, []string{"si", "x"}, ventureAnswers)...)

	require.True(t, last(basic).Completed)
	require.True(t, last(full).Completed)
	assert.Less(t, len(basic), len(full))
}

func TestFirstMessagePresentsFirstQuestion(t *testing.T) {
	w := newTestWizard(nil, nil)

	res := last(drive(t, w, w.NewSession("c"), "hola"))
	assert.Equal(t, model.SessionActive, res.Session.Status)
	assert.Equal(t, 1, res.Session.CurrentQuestion)
	assert.Contains(t, res.Response, "Apellido, Nombre")
	assert.Contains(t, res.Response, "Comandos disponibles")
	assert.NotContains(t, res.Response, "`volver`", "no back hint on the first question")
	assert.Empty(t, res.Session.Answers)
}

func TestValidationErrorKeepsCursor(t *testing.T) {
	w := newTestWizard(nil, nil)

	res := last(drive(t, w, w.NewSession("c"), "hola", "Juan Pérez", "no-es-un-email"))
	assert.Equal(t, TransitionInvalid, res.Transition)
	assert.Equal(t, 2, res.Session.CurrentQuestion)
	assert.True(t, strings.HasPrefix(res.Response, "❌ **Error en tu respuesta:**"))
	assert.Contains(t, res.Response, "símbolo @")
	assert.Contains(t, res.Response, "**Correo electrónico**")
	assert.NotContains(t, res.Session.Answers, "email")
}

func TestFacultySkippedWithoutUCURelation(t *testing.T) {
	w := newTestWizard(nil, nil)
	msgs := messages([]string{"hola"}, personalAnswers[:6], []string{"No tengo relación con la UCU"})

	res := last(drive(t, w, w.NewSession("c"), msgs...))
	assert.Equal(t, 9, res.Session.CurrentQuestion)
	assert.Contains(t, res.Response, "¿Cómo llegaste a Ithaka?")

	back := last(drive(t, w, res.Session, "volver"))
	assert.Equal(t, 7, back.Session.CurrentQuestion, "back skips the inapplicable faculty question")
}

func TestChangingRelationPrunesFaculty(t *testing.T) {
	w := newTestWizard(nil, nil)
	msgs := messages([]string{"hola"}, personalAnswers[:8])

	sess := last(drive(t, w, w.NewSession("c"), msgs...)).Session
	require.Equal(t, 9, sess.CurrentQuestion)
	require.Contains(t, sess.Answers, "faculty")

	res := last(drive(t, w, sess, "volver", "volver", "No tengo relación con la UCU"))
	assert.Equal(t, 9, res.Session.CurrentQuestion)
	assert.NotContains(t, res.Session.Answers, "faculty")
	assert.Equal(t, "No tengo relación con la UCU", res.Session.Answers["ucu_relation"].Text)
}

func TestBackForwardRoundTrip(t *testing.T) {
	w := newTestWizard(nil, nil)
	sess := last(drive(t, w, w.NewSession("c"), messages([]string{"hola"}, personalAnswers[:4])...)).Session
	require.Equal(t, 5, sess.CurrentQuestion)

	res := last(drive(t, w, sess, "volver", "12345678"))
	assert.Equal(t, 5, res.Session.CurrentQuestion)
	if diff := cmp.Diff(sess.Answers, res.Session.Answers); diff != "" {
		t.Errorf("answers changed (-before +after):\n%s", diff)
	}
}

func TestBackAtFirstQuestion(t *testing.T) {
	w := newTestWizard(nil, nil)

	res := last(drive(t, w, w.NewSession("c"), "volver"))
	assert.Equal(t, 1, res.Session.CurrentQuestion)
	assert.Equal(t, model.SessionActive, res.Session.Status)
	assert.True(t, strings.HasPrefix(res.Response, "Ya estás en la primera pregunta"))
}

func TestCancelIsTerminal(t *testing.T) {
	w := newTestWizard(nil, nil)
	results := drive(t, w, w.NewSession("c"), "hola", "Juan Pérez", "cancelar", "juan@example.com")

	cancelled := results[2]
	assert.Equal(t, model.SessionCancelled, cancelled.Session.Status)
	assert.Contains(t, cancelled.Response, "Proceso cancelado")
	assert.Equal(t, "Pérez, Juan", cancelled.Session.Answers["full_name"].Text)

	after := results[3]
	assert.Equal(t, TransitionClosed, after.Transition)
	assert.Equal(t, model.SessionCancelled, after.Session.Status)
	assert.NotContains(t, after.Session.Answers, "email")
}

func TestRestartAfterCancelResumes(t *testing.T) {
	w := newTestWizard(nil, nil)
	cancelled := last(drive(t, w, w.NewSession("c"), "hola", "Juan Pérez", "juan@example.com", "cancelar")).Session

	res := w.Restart(cancelled)
	assert.Equal(t, model.SessionActive, res.Session.Status)
	assert.Equal(t, cancelled.ID, res.Session.ResumedFrom)
	assert.NotEqual(t, cancelled.ID, res.Session.ID)
	assert.Equal(t, 3, res.Session.CurrentQuestion)
	assert.Len(t, res.Session.Answers, 2)
	assert.Contains(t, res.Response, "Retomamos")
}

func TestRestartAfterCompletionStartsFresh(t *testing.T) {
	w := newTestWizard(nil, nil)
	done := last(drive(t, w, w.NewSession("c"), messages([]string{"hola"}, personalAnswers, []string{"no", "x"})...)).Session
	require.Equal(t, model.SessionCompleted, done.Status)

	res := w.Restart(done)
	assert.Equal(t, 1, res.Session.CurrentQuestion)
	assert.Empty(t, res.Session.Answers)
	assert.Empty(t, res.Session.ResumedFrom)
}

func TestPauseDoesNotConsumeNextMessage(t *testing.T) {
	w := newTestWizard(nil, nil)
	results := drive(t, w, w.NewSession("c"), "hola", "Juan Pérez", "guardar", "ya volví")

	paused := results[2]
	assert.Equal(t, model.SessionPaused, paused.Session.Status)
	assert.Equal(t, 2, paused.Session.CurrentQuestion)

	resumed := results[3]
	assert.Equal(t, TransitionResume, resumed.Transition)
	assert.Equal(t, model.SessionActive, resumed.Session.Status)
	assert.Equal(t, 2, resumed.Session.CurrentQuestion)
	assert.Contains(t, resumed.Response, "**Correo electrónico**")
	assert.NotContains(t, resumed.Session.Answers, "email")
}

// toVenture drives a session to the first evaluative question
func toVenture(t *testing.T, w *WizardService) *model.WizardSession {
	t.Helper()
	sess := last(drive(t, w, w.NewSession("c"), messages([]string{"hola"}, personalAnswers, []string{"si", "x"})...)).Session
	require.Equal(t, 13, sess.CurrentQuestion)
	return sess
}

func TestImprovementThenKeepOriginal(t *testing.T) {
	w := newTestWizard(&fakeExtractor{}, &fakeEvaluator{reject: 1})
	sess := toVenture(t, w)

	res := last(drive(t, w, sess, ventureAnswers[0]))
	require.Equal(t, TransitionImprove, res.Transition)
	require.NotNil(t, res.Session.PendingImprovement)
	assert.Equal(t, 13, res.Session.CurrentQuestion)
	assert.Equal(t, 1, res.Session.PendingImprovement.Attempts)
	assert.Contains(t, res.Response, "Falta detalle")
	assert.Contains(t, res.Response, "• Agrega ejemplos")
	assert.Contains(t, res.Response, "`continuar`")

	kept := last(drive(t, w, res.Session, "continuar"))
	assert.Equal(t, TransitionKeep, kept.Transition)
	assert.Equal(t, 14, kept.Session.CurrentQuestion)
	assert.Nil(t, kept.Session.PendingImprovement)
	assert.Equal(t, ventureAnswers[0], kept.Session.Answers["team_composition"].Text)
}

func TestImprovementReplacementAccepted(t *testing.T) {
	w := newTestWizard(&fakeExtractor{}, &fakeEvaluator{reject: 1})
	sess := toVenture(t, w)

	better := "Somos Ana Gómez (diseño, ana@x.com) y Luis Pérez (ventas, 099111222)"
	res := last(drive(t, w, sess, ventureAnswers[0], better))
	assert.Equal(t, 14, res.Session.CurrentQuestion)
	assert.Equal(t, better, res.Session.Answers["team_composition"].Text)
}

func TestImprovementInvalidReplacementKeepsPending(t *testing.T) {
	w := newTestWizard(&fakeExtractor{}, &fakeEvaluator{reject: 1})
	sess := toVenture(t, w)

	res := last(drive(t, w, sess, ventureAnswers[0], "corto"))
	assert.Equal(t, TransitionInvalid, res.Transition)
	require.NotNil(t, res.Session.PendingImprovement)
	assert.Equal(t, ventureAnswers[0], res.Session.PendingImprovement.RawAnswer)

	kept := last(drive(t, w, res.Session, "continuar"))
	assert.Equal(t, ventureAnswers[0], kept.Session.Answers["team_composition"].Text)
}

func TestImprovementCapKeepsLastAnswer(t *testing.T) {
	eval := &fakeEvaluator{reject: 100}
	w := newTestWizard(&fakeExtractor{}, eval)
	sess := toVenture(t, w)

	attempts := []string{
		"Primera versión de la respuesta del equipo",
		"Segunda versión de la respuesta del equipo",
		"Tercera versión de la respuesta del equipo",
		"Cuarta versión de la respuesta del equipo",
	}
	results := drive(t, w, sess, attempts...)

	for i, r := range results[:3] {
		require.Equal(t, TransitionImprove, r.Transition, "attempt %d", i+1)
		assert.Equal(t, i+1, r.Session.PendingImprovement.Attempts)
	}
	final := results[3]
	assert.Equal(t, TransitionCap, final.Transition)
	assert.Equal(t, 14, final.Session.CurrentQuestion)
	assert.Equal(t, attempts[3], final.Session.Answers["team_composition"].Text)
	assert.Equal(t, 4, eval.calls)
}

func TestBackClearsPendingImprovement(t *testing.T) {
	w := newTestWizard(&fakeExtractor{}, &fakeEvaluator{reject: 1})
	sess := toVenture(t, w)

	res := last(drive(t, w, sess, ventureAnswers[0], "volver"))
	assert.Nil(t, res.Session.PendingImprovement)
	assert.Equal(t, 12, res.Session.CurrentQuestion)
}

func TestConfirmationAccepted(t *testing.T) {
	ext := &fakeExtractor{outcome: model.ExtractionNeedsConfirmation, value: "Ana y Luis"}
	w := newTestWizard(ext, &fakeEvaluator{})
	sess := toVenture(t, w)

	res := last(drive(t, w, sess, ventureAnswers[0]))
	require.Equal(t, TransitionConfirm, res.Transition)
	require.NotNil(t, res.Session.PendingConfirmation)
	assert.Contains(t, res.Response, "Ana y Luis")

	ok := last(drive(t, w, res.Session, "sí"))
	assert.Equal(t, 14, ok.Session.CurrentQuestion)
	assert.Equal(t, "Ana y Luis", ok.Session.Answers["team_composition"].Text)
	assert.Nil(t, ok.Session.PendingConfirmation)
}

func TestConfirmationRejectedPresentsQuestionAgain(t *testing.T) {
	ext := &fakeExtractor{outcome: model.ExtractionNeedsConfirmation, value: "Ana y Luis"}
	w := newTestWizard(ext, &fakeEvaluator{})
	sess := toVenture(t, w)

	res := last(drive(t, w, sess, ventureAnswers[0], "no"))
	assert.Equal(t, TransitionRetryAnswer, res.Transition)
	assert.Equal(t, 13, res.Session.CurrentQuestion)
	assert.Nil(t, res.Session.PendingConfirmation)
	assert.Contains(t, res.Response, "Composición del equipo")
}

func TestConfirmationCorrectionRevalidates(t *testing.T) {
	ext := &fakeExtractor{outcome: model.ExtractionNeedsConfirmation, value: "Ana y Luis"}
	w := newTestWizard(ext, &fakeEvaluator{})
	sess := toVenture(t, w)

	correction := "Somos tres: Ana, Luis y Marta en operaciones"
	res := last(drive(t, w, sess, ventureAnswers[0], correction))
	assert.Equal(t, TransitionConfirm, res.Transition)
	require.NotNil(t, res.Session.PendingConfirmation)
	assert.Equal(t, correction, res.Session.PendingConfirmation.RawAnswer)
	assert.Equal(t, 2, ext.calls)

	invalid := last(drive(t, w, res.Session, "corto"))
	assert.Equal(t, TransitionInvalid, invalid.Transition)
	assert.Nil(t, invalid.Session.PendingConfirmation)
}

func TestAssistRejectionShowsReason(t *testing.T) {
	ext := &fakeExtractor{outcome: model.ExtractionRejected, reason: "No describe al equipo"}
	w := newTestWizard(ext, &fakeEvaluator{})
	sess := toVenture(t, w)

	res := last(drive(t, w, sess, ventureAnswers[0]))
	assert.Equal(t, TransitionInvalid, res.Transition)
	assert.Contains(t, res.Response, "No describe al equipo")
	assert.Equal(t, 13, res.Session.CurrentQuestion)
}

func TestCorruptedSessionIsCancelled(t *testing.T) {
	w := newTestWizard(nil, nil)

	tests := []struct {
		name   string
		mutate func(s *model.WizardSession)
	}{
		{name: "cursor", mutate: func(s *model.WizardSession) { s.CurrentQuestion = 99 }},
		{name: "status", mutate: func(s *model.WizardSession) { s.Status = "LOST" }},
		{name: "pending", mutate: func(s *model.WizardSession) {
			s.PendingImprovement = &model.PendingImprovement{}
			s.PendingConfirmation = &model.PendingConfirmation{}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sess := w.NewSession("c")
			sess.Status = model.SessionActive
			tt.mutate(sess)

			res := last(drive(t, w, sess, "hola"))
			assert.Equal(t, TransitionCorrupted, res.Transition)
			assert.Equal(t, model.SessionCancelled, res.Session.Status)
			assert.Contains(t, res.Response, "problema con tu sesión")
		})
	}
}

func TestAdvanceDoesNotMutateInput(t *testing.T) {
	w := newTestWizard(&fakeExtractor{}, &fakeEvaluator{reject: 1})
	sess := toVenture(t, w)
	before := sess.Clone()

	_, err := w.Advance(context.Background(), sess, ventureAnswers[0])
	require.NoError(t, err)
	if diff := cmp.Diff(before, sess); diff != "" {
		t.Errorf("input session mutated (-before +after):\n%s", diff)
	}
}

func TestAdvanceNilSession(t *testing.T) {
	w := newTestWizard(nil, nil)
	_, err := w.Advance(context.Background(), nil, "hola")
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestFirstName(t *testing.T) {
	assert.Equal(t, "Juan", FirstName("Pérez, Juan Carlos"))
	assert.Equal(t, "Ana", FirstName("Ana"))
	assert.Equal(t, "emprendedor", FirstName(""))
}
