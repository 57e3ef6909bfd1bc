package service

import (
	"fmt"
	"ithakabot/internal/model"
	"strings"
)

const (
	msgCancelled = `❌ **Proceso cancelado**

Has cancelado el proceso de postulación. Tus respuestas se han guardado y podrás retomarlas más tarde si lo deseas.

Si cambias de opinión, simplemente escribe ` + "`postular`" + ` de nuevo y podrás continuar desde donde lo dejaste.`

	msgCompletedFull = `🎉 **¡Postulación completada exitosamente!**

¡Felicitaciones! Has completado todo el proceso de postulación a Ithaka.

**¿Qué sigue?**
• Nuestro equipo revisará tu postulación
• En caso de avanzar en el proceso, nos pondremos en contacto contigo
• Recibirás un email de confirmación en tu correo

¡Te deseamos mucho éxito con tu emprendimiento! 🚀`

	msgCompletedBasic = `✅ **¡Registro completado!**

Gracias por completar tu información básica. Aunque no tengas una idea específica de emprendimiento en este momento, estás dando el primer paso en el camino emprendedor.

**¿Qué sigue?**
• El equipo de Ithaka revisará tu información
• Te contactaremos para ofrecerte recursos y programas que te ayuden a desarrollar tu espíritu emprendedor
• Podrás participar en nuestras actividades y talleres

¡Te deseamos mucho éxito en tu camino emprendedor! 🚀`

	msgAlreadyFirst = "Ya estás en la primera pregunta. No puedes volver más atrás.\n\n"

	msgPaused = "💾 **Progreso guardado**\n\nTus respuestas quedaron guardadas. Escribe cualquier mensaje cuando quieras continuar donde lo dejaste."

	msgResumed = "👋 ¡Qué bueno verte de nuevo! Sigamos donde lo dejaste.\n\n"

	msgRestartedFromCancel = "🔄 Retomamos tu postulación con las respuestas que ya habías dado.\n\n"

	msgClosedCompleted = "Tu postulación ya fue completada. Si quieres comenzar una nueva, escribe `postular`."

	msgClosedCancelled = "Este proceso de postulación fue cancelado. Escribe `postular` para retomarlo desde donde lo dejaste."

	msgCorrupted = "😔 Lo sentimos, hubo un problema con tu sesión y tuvimos que cerrarla. Escribe `postular` para comenzar de nuevo."

	msgRetryAnswer = "De acuerdo, respondamos de nuevo.\n\n"

	msgCapReached = "📌 Guardamos tu respuesta tal como está y seguimos adelante.\n\n"

	// Shown when the session store or record sink fails
	msgTechnicalProblem = "⚠️ Tuvimos un problema técnico y no pudimos guardar tu respuesta. Por favor, envíala de nuevo en unos minutos."
)

// renderQuestion builds the prompt shown for a question, including options,
// its note and the available commands
func renderQuestion(q *model.QuestionDefinition, first int) string {
	var sb strings.Builder
	sb.WriteString(q.Text)

	if len(q.Options) > 0 && q.Validation != model.ValidationYesNo {
		sb.WriteString("\n\nOpciones:")
		for _, opt := range q.Options {
			sb.WriteString("\n• ")
			sb.WriteString(opt)
		}
	}
	if q.Validation == model.ValidationYesNo {
		sb.WriteString("\n\nResponde SI o NO.")
	}

	if q.Note != "" {
		sb.WriteString("\n\n💡 ")
		sb.WriteString(q.Note)
	}

	sb.WriteString("\n\n📝 **Comandos disponibles:**")
	if q.Number > first {
		sb.WriteString("\n• Escribe `volver` para ir a la pregunta anterior")
	}
	sb.WriteString("\n• Escribe `guardar` para pausar y continuar más tarde")
	sb.WriteString("\n• Escribe `cancelar` para terminar el proceso")
	return sb.String()
}

func validationErrorMessage(reason, question string) string {
	return fmt.Sprintf("❌ **Error en tu respuesta:**\n\n%s\n\n**Por favor, intenta de nuevo:**\n\n%s", reason, question)
}

func improvementMessage(p *model.PendingImprovement) string {
	feedback := p.Feedback
	if feedback == "" {
		feedback = "Tu respuesta puede mejorarse"
	}

	var tips strings.Builder
	for _, s := range p.Suggestions {
		tips.WriteString("• ")
		tips.WriteString(s)
		tips.WriteString("\n")
	}

	return fmt.Sprintf(`📝 **Tu respuesta:** %s

🤔 **Feedback:** %s

💡 **Sugerencias para mejorar:**
%s
**¿Quieres mejorar tu respuesta o continuar con la actual?**

Opciones:
• Escribe una respuesta mejorada
• Escribe `+"`continuar`"+` para avanzar con tu respuesta actual
• Escribe `+"`volver`"+` para ir a la pregunta anterior
• Escribe `+"`cancelar`"+` para terminar el proceso`, p.RawAnswer, feedback, tips.String())
}

func confirmationMessage(p *model.PendingConfirmation) string {
	return fmt.Sprintf(`🤖 Entendí tu respuesta así:

%s

¿Es correcto? Responde `+"`sí`"+` para confirmarla, `+"`no`"+` para responder de nuevo, o escribe directamente la corrección.`, p.ProposedValue)
}

func completionMessage(path model.ApplicationPath) string {
	if path == model.PathBasic {
		return msgCompletedBasic
	}
	return msgCompletedFull
}

func closedMessage(status model.SessionStatus) string {
	if status == model.SessionCompleted {
		return msgClosedCompleted
	}
	return msgClosedCancelled
}

// FirstName takes the given name from a "Apellido, Nombre" answer
func FirstName(fullName string) string {
	name := fullName
	if i := strings.Index(name, ","); i >= 0 {
		name = name[i+1:]
	}
	if fields := strings.Fields(name); len(fields) > 0 {
		return fields[0]
	}
	return "emprendedor"
}
