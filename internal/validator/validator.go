// Package validator holds the mechanical answer rules. Every function is pure:
// the same rule and input always produce the same Result.
package validator

import (
	"fmt"
	"ithakabot/internal/model"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	emailPattern  = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[a-zA-Z]{2,}$`)
	phoneStrip    = regexp.MustCompile(`[^\d+]`)
	phonePattern  = regexp.MustCompile(`^\+?\d+$`)
	nonDigits     = regexp.MustCompile(`\D`)
	trailingPunct = ".!¡?¿ "
)

var (
	yesWords = map[string]bool{"si": true, "sí": true, "yes": true, "y": true}
	noWords  = map[string]bool{"no": true, "n": true}
)

// Rule is the validation type plus its parameters
type Rule struct {
	Type      model.ValidationType
	MinLength int
	Options   []string
	Required  bool
}

// RuleFor derives the rule of a catalog question
func RuleFor(q *model.QuestionDefinition) Rule {
	return Rule{
		Type:      q.Validation,
		MinLength: q.MinLength,
		Options:   q.Options,
		Required:  q.Required,
	}
}

// Result is either a normalized value or a user-facing error
type Result struct {
	OK         bool
	Normalized model.AnswerValue
	Error      string
}

func ok(s string) Result {
	return Result{OK: true, Normalized: model.TextAnswer(s)}
}

func fail(format string, args ...any) Result {
	return Result{Error: fmt.Sprintf(format, args...)}
}

// Validate applies rule to raw input
func Validate(rule Rule, raw string) Result {
	switch rule.Type {
	case model.ValidationName:
		return Name(raw)
	case model.ValidationEmail:
		return Email(raw)
	case model.ValidationPhone:
		return Phone(raw)
	case model.ValidationDocumentID:
		return DocumentID(raw)
	case model.ValidationLocation:
		return Location(raw)
	case model.ValidationTextMin, model.ValidationEvaluative:
		return MinLength(raw, rule.MinLength)
	case model.ValidationOptional:
		return ok(strings.TrimSpace(raw))
	case model.ValidationChoice:
		return Choice(raw, rule.Options, rule.Required)
	case model.ValidationMultiChoice:
		return MultiChoice(raw, rule.Options, rule.Required)
	case model.ValidationYesNo:
		return YesNo(raw)
	}
	return fail("Tipo de validación desconocido: %s", rule.Type)
}

// Name formats "Juan Pérez" as "Pérez, Juan"; the last token is the surname
func Name(raw string) Result {
	name := strings.Join(strings.Fields(raw), " ")
	if name == "" {
		return fail("Por favor ingresa tu nombre completo.")
	}
	if utf8.RuneCountInString(name) < 3 {
		return fail("El nombre debe tener al menos 3 caracteres.")
	}

	parts := strings.Fields(name)
	if len(parts) < 2 {
		return fail("Por favor ingresa tu nombre completo incluyendo apellido y nombre. Ejemplo: Juan Pérez o Pérez, Juan")
	}

	if strings.Contains(name, ",") {
		halves := strings.Split(name, ",")
		if len(halves) != 2 || strings.TrimSpace(halves[0]) == "" || strings.TrimSpace(halves[1]) == "" {
			return fail("El formato con coma debe ser: Apellido, Nombre. Ejemplo: Pérez, Juan")
		}
		return ok(strings.TrimSpace(halves[0]) + ", " + strings.TrimSpace(halves[1]))
	}

	last := parts[len(parts)-1]
	return ok(last + ", " + strings.Join(parts[:len(parts)-1], " "))
}

// Email lowercases and checks the address, naming the exact defect on failure
func Email(raw string) Result {
	email := strings.ToLower(strings.TrimSpace(raw))
	if emailPattern.MatchString(email) {
		return ok(email)
	}

	const example = " Ejemplo: usuario@dominio.com"
	switch at := strings.Count(email, "@"); {
	case at == 0:
		return fail("El correo electrónico debe incluir el símbolo @." + example)
	case at > 1:
		return fail("El correo electrónico solo puede tener un símbolo @." + example)
	}

	domain := email[strings.Index(email, "@")+1:]
	if !strings.Contains(domain, ".") {
		return fail("El dominio del correo debe incluir un punto." + example)
	}
	if suffix := domain[strings.LastIndex(domain, ".")+1:]; len(suffix) < 2 {
		return fail("La extensión del dominio debe tener al menos 2 caracteres." + example)
	}
	return fail("El formato del correo electrónico no es válido." + example)
}

// Phone keeps digits and plus signs; length must stay within 8..15
func Phone(raw string) Result {
	phone := phoneStrip.ReplaceAllString(strings.TrimSpace(raw), "")
	switch {
	case phone == "":
		return fail("Por favor ingresa un número de teléfono.")
	case len(phone) < 8:
		return fail("El número de teléfono debe tener al menos 8 dígitos.")
	case len(phone) > 15:
		return fail("El número de teléfono es demasiado largo. Verifica que sea correcto.")
	case !phonePattern.MatchString(phone):
		return fail("El número de teléfono solo puede contener dígitos y el símbolo + al inicio.")
	}
	return ok(phone)
}

// DocumentID keeps digits only; length must stay within 7..10
func DocumentID(raw string) Result {
	doc := nonDigits.ReplaceAllString(raw, "")
	switch {
	case doc == "":
		return fail("Por favor ingresa tu número de documento de identidad.")
	case len(doc) < 7:
		return fail("El número de documento debe tener al menos 7 dígitos.")
	case len(doc) > 10:
		return fail("El número de documento es demasiado largo. Verifica que sea correcto.")
	}
	return ok(doc)
}

// Location turns "montevideo uruguay" into "Montevideo, Uruguay"
func Location(raw string) Result {
	loc := strings.Join(strings.Fields(raw), " ")
	if utf8.RuneCountInString(loc) < 4 {
		return fail("La ubicación es demasiado corta. Indica ciudad y país, por ejemplo: Montevideo, Uruguay")
	}
	if !strings.Contains(loc, ",") {
		loc = strings.Replace(loc, " ", ", ", 1)
	} else {
		parts := strings.Split(loc, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		loc = strings.Join(parts, ", ")
	}
	// Casers keep state, so one per call
	return ok(cases.Title(language.Spanish).String(loc))
}

// MinLength trims and counts characters, not bytes
func MinLength(raw string, min int) Result {
	text := strings.TrimSpace(raw)
	if utf8.RuneCountInString(text) < min {
		return fail("La respuesta debe tener al menos %d caracteres", min)
	}
	return ok(text)
}

// YesNo maps the accepted synonyms to SI or NO
func YesNo(raw string) Result {
	word := strings.Trim(strings.ToLower(strings.TrimSpace(raw)), trailingPunct)
	switch {
	case yesWords[word]:
		return ok("SI")
	case noWords[word]:
		return ok("NO")
	}
	return fail("Por favor responde SI o NO.")
}

// Choice resolves one option
func Choice(raw string, options []string, required bool) Result {
	input := strings.TrimSpace(raw)
	if input == "" {
		if !required {
			return ok("")
		}
		return fail("%s", optionsError(options))
	}

	match, candidates := resolveOption(input, options)
	if match != "" {
		return ok(match)
	}
	if len(candidates) > 1 {
		return fail("\"%s\" coincide con varias opciones: %s. Por favor sé más específico.", input, strings.Join(candidates, ", "))
	}
	return fail("%s", optionsError(options))
}

// MultiChoice resolves each comma-separated token; unresolved tokens are dropped
func MultiChoice(raw string, options []string, required bool) Result {
	var chosen []string
	seen := make(map[string]bool)
	for _, token := range strings.Split(raw, ",") {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}
		if match, _ := resolveOption(token, options); match != "" && !seen[match] {
			seen[match] = true
			chosen = append(chosen, match)
		}
	}
	if len(chosen) == 0 {
		if required {
			return fail("%s", optionsError(options))
		}
		return Result{OK: true}
	}
	return Result{OK: true, Normalized: model.ChoicesAnswer(chosen)}
}

// resolveOption tries exact, then case and accent insensitive, then a unique
// substring match. It returns the match, or every substring candidate when
// that tier was ambiguous.
func resolveOption(input string, options []string) (string, []string) {
	for _, opt := range options {
		if input == opt {
			return opt, nil
		}
	}

	folded := Fold(input)
	for _, opt := range options {
		if folded == Fold(opt) {
			return opt, nil
		}
	}

	var candidates []string
	for _, opt := range options {
		if strings.Contains(Fold(opt), folded) {
			candidates = append(candidates, opt)
		}
	}
	if len(candidates) == 1 {
		return candidates[0], nil
	}
	return "", candidates
}

func optionsError(options []string) string {
	var sb strings.Builder
	sb.WriteString("Opción no válida. Las opciones disponibles son:")
	for _, opt := range options {
		sb.WriteString("\n• ")
		sb.WriteString(opt)
	}
	return sb.String()
}

// Fold lowercases s and strips accents
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(out)
}
