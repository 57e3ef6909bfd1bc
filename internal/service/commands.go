package service

import (
	"ithakabot/internal/validator"
	"strings"
)

// Command is a navigation keyword recognized in any active state
type Command int

const (
	CommandNone Command = iota
	CommandCancel
	CommandBack
	CommandSave
	CommandRestart
	CommandContinue
)

// Phrases are stored folded (lowercase, no accents)
var commandPhrases = []struct {
	cmd     Command
	phrases []string
}{
	{CommandSave, []string{"guardar", "save", "pausar", "pausa", "guardar y salir", "guardar progreso", "continuar mas tarde"}},
	{CommandCancel, []string{
		"cancelar", "cancel", "cancelo", "quiero cancelar", "quiero salir", "salir", "terminar",
		"no quiero continuar", "abandonar", "parar", "detener", "finalizar", "me quiero salir", "ya no quiero",
	}},
	{CommandBack, []string{
		"volver", "back", "regresar", "anterior", "atras", "ir atras", "quiero volver", "pregunta anterior",
		"paso anterior", "volver atras", "me devuelvo", "retroceder", "hacia atras", "quiero regresar",
	}},
	{CommandRestart, []string{"postular", "reiniciar", "restart", "retomar", "comenzar de nuevo", "empezar de nuevo"}},
	{CommandContinue, []string{"continuar", "continue", "seguir", "sigo", "mantener mi respuesta"}},
}

// Longer messages are answers even if they mention a keyword
const maxCommandWords = 3

// ParseCommand recognizes a command when the whole message is one of the
// phrases, or when a short message contains one as whole words. Exact
// matches win, so "guardar y salir" saves rather than cancels.
func ParseCommand(message string) Command {
	msg := normalizeCommand(message)
	if msg == "" {
		return CommandNone
	}

	for _, group := range commandPhrases {
		for _, p := range group.phrases {
			if msg == p {
				return group.cmd
			}
		}
	}

	if len(strings.Fields(msg)) > maxCommandWords {
		return CommandNone
	}
	padded := " " + msg + " "
	for _, group := range commandPhrases {
		// Resuming and keeping an answer must be asked for explicitly
		if group.cmd == CommandRestart || group.cmd == CommandContinue {
			continue
		}
		for _, p := range group.phrases {
			if strings.Contains(padded, " "+p+" ") {
				return group.cmd
			}
		}
	}
	return CommandNone
}

func normalizeCommand(message string) string {
	msg := validator.Fold(strings.TrimSpace(message))
	msg = strings.TrimPrefix(msg, "/")
	msg = strings.Trim(msg, "`\"'.,;:!¡?¿ ")
	return strings.Join(strings.Fields(msg), " ")
}

var (
	confirmWords = map[string]bool{
		"si": true, "yes": true, "ok": true, "dale": true, "confirmo": true,
		"confirmar": true, "correcto": true, "si es correcto": true, "esta bien": true,
	}
	rejectWords = map[string]bool{"no": true, "no es correcto": true, "incorrecto": true}
)

type confirmation int

const (
	confirmNone confirmation = iota
	confirmYes
	confirmNo
)

func parseConfirmation(message string) confirmation {
	msg := normalizeCommand(message)
	switch {
	case confirmWords[msg]:
		return confirmYes
	case rejectWords[msg]:
		return confirmNo
	}
	return confirmNone
}
