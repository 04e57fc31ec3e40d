package services

import (
	"fmt"
	"math"
	"strings"
	"time"
	"unicode"

	"barberpro-backend/models"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// TemplateKind is the semantic category of a message template, independent of the
// name or type label a barbershop gives it.
type TemplateKind string

const (
	KindConfirmation       TemplateKind = "confirmation"
	KindReminder           TemplateKind = "reminder"
	KindSurvey             TemplateKind = "survey"
	KindManualConfirmation TemplateKind = "manual-confirmation"
)

// QueueKinds are the kinds the synchronizer schedules automatically. Manual
// confirmations are only sent on operator request.
var QueueKinds = []TemplateKind{KindConfirmation, KindReminder, KindSurvey}

// kindByType maps normalized template types to their kind.
var kindByType = map[string]TemplateKind{
	"lembrete de agendamento":    KindReminder,
	"lembrete":                   KindReminder,
	"appointment reminder":       KindReminder,
	"reminder":                   KindReminder,
	"confirmacao de agendamento": KindConfirmation,
	"confirmacao":                KindConfirmation,
	"appointment confirmation":   KindConfirmation,
	"confirmation":               KindConfirmation,
	"pesquisa de satisfacao":     KindSurvey,
	"pesquisa":                   KindSurvey,
	"satisfaction survey":        KindSurvey,
	"survey":                     KindSurvey,
	"confirmacao manual":         KindManualConfirmation,
	"manual confirmation":        KindManualConfirmation,
}

// kindKeywords is consulted, in order, for custom labels missing from kindByType.
// Manual confirmation comes first so it never classifies as a plain confirmation.
var kindKeywords = []struct {
	keyword string
	kind    TemplateKind
}{
	{"confirmacao manual", KindManualConfirmation},
	{"manual confirmation", KindManualConfirmation},
	{"lembrete", KindReminder},
	{"reminder", KindReminder},
	{"pesquisa", KindSurvey},
	{"survey", KindSurvey},
	{"confirmacao", KindConfirmation},
	{"confirmation", KindConfirmation},
}

// NormalizeTemplateType lowercases, strips diacritics and collapses whitespace.
func NormalizeTemplateType(value string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, value)
	if err != nil {
		stripped = value
	}
	return strings.Join(strings.Fields(strings.ToLower(stripped)), " ")
}

// KindOf classifies a template. Exact matches on type win over exact matches on name,
// which win over keyword matches.
func KindOf(t models.MessageTemplate) (TemplateKind, bool) {
	normType := NormalizeTemplateType(t.Type)
	normName := NormalizeTemplateType(t.Name)

	if k, ok := kindByType[normType]; ok {
		return k, true
	}
	if k, ok := kindByType[normName]; ok {
		return k, true
	}
	for _, label := range []string{normType, normName} {
		if label == "" {
			continue
		}
		for _, kw := range kindKeywords {
			if strings.Contains(label, kw.keyword) {
				return kw.kind, true
			}
		}
	}
	return "", false
}

// DefaultTemplates returns the template set every barbershop starts with.
func DefaultTemplates() []models.MessageTemplate {
	reminderHours := 24
	return []models.MessageTemplate{
		{
			Name:                "Lembrete Padrão",
			Type:                "Lembrete de Agendamento",
			Content:             "Olá, {cliente}!\nPassando para lembrar do seu horário amanhã às {horario} com {barbeiro}.\nAté lá!\nEquipe {barbearia}.",
			Enabled:             true,
			ReminderHoursBefore: &reminderHours,
		},
		{
			Name:    "Confirmação Padrão",
			Type:    "Confirmação de Agendamento",
			Content: "Olá, {cliente}!\nSeu agendamento para {servico} no dia {data} às {horario} foi confirmado.\nEquipe {barbearia}.",
			Enabled: true,
		},
		{
			Name:    "Confirmação Manual",
			Type:    "Confirmação Manual",
			Content: "Olá, {cliente}!\nPassando para confirmar seu agendamento para {servico} no dia {data} às {horario} com {barbeiro}.\nPor favor, responda 'SIM' para confirmar.\nEquipe {barbearia}.",
			Enabled: true,
		},
		{
			Name:    "Pesquisa Padrão",
			Type:    "Pesquisa de Satisfação",
			Content: "Olá, {cliente}!\nAgradecemos a sua visita.\nO que você achou do nosso serviço?\nResponda de 0 a 10.\nEquipe {barbearia}.",
			Enabled: false,
		},
	}
}

// MergeTemplates overlays overrides on defaults. An override replaces the default with
// the same normalized type, or else the default of the same kind, in place. Overrides
// matching neither are appended.
func MergeTemplates(defaults, overrides []models.MessageTemplate) []models.MessageTemplate {
	merged := make([]models.MessageTemplate, 0, len(defaults)+len(overrides))
	index := make(map[string]int, len(defaults)+len(overrides))
	defaultByKind := make(map[TemplateKind]int, len(defaults))

	for _, t := range defaults {
		key := NormalizeTemplateType(t.Type)
		if key == "" {
			continue
		}
		if i, ok := index[key]; ok {
			merged[i] = t
			continue
		}
		index[key] = len(merged)
		if kind, ok := KindOf(t); ok {
			defaultByKind[kind] = len(merged)
		}
		merged = append(merged, t)
	}

	for _, t := range overrides {
		key := NormalizeTemplateType(t.Type)
		if key == "" {
			continue
		}
		i, ok := index[key]
		if !ok {
			if kind, known := KindOf(t); known {
				i, ok = defaultByKind[kind]
			}
		}
		if ok {
			if kind, known := KindOf(merged[i]); known {
				delete(defaultByKind, kind)
			}
			merged[i] = t
			index[key] = i
			continue
		}
		index[key] = len(merged)
		merged = append(merged, t)
	}
	return merged
}

// FindEnabledTemplate returns the first enabled template of the given kind.
func FindEnabledTemplate(templates []models.MessageTemplate, kind TemplateKind) (*models.MessageTemplate, bool) {
	for i := range templates {
		if !templates[i].Enabled {
			continue
		}
		if k, ok := KindOf(templates[i]); ok && k == kind {
			return &templates[i], true
		}
	}
	return nil, false
}

// RenderContext carries the values substituted into template placeholders.
type RenderContext struct {
	ClientName     string
	BarbershopName string
	Address        string
	BarberName     string
	Services       []string
	TotalPrice     float64
	StartTime      time.Time
	Location       *time.Location
}

// RenderTemplate replaces every placeholder occurrence in content.
func RenderTemplate(content string, rc RenderContext) string {
	loc := rc.Location
	if loc == nil {
		loc = time.UTC
	}
	start := rc.StartTime.In(loc)

	shopName := rc.BarbershopName
	if strings.TrimSpace(shopName) == "" {
		shopName = "sua barbearia"
	}
	barber := rc.BarberName
	if strings.TrimSpace(barber) == "" {
		barber = "Barbeiro"
	}

	r := strings.NewReplacer(
		"{cliente}", rc.ClientName,
		"{servico}", strings.Join(rc.Services, ", "),
		"{valor}", FormatBRL(rc.TotalPrice),
		"{data}", start.Format("02/01/2006"),
		"{horario}", start.Format("15:04"),
		"{barbeiro}", barber,
		"{barbearia}", shopName,
		"{endereco}", rc.Address,
	)
	return r.Replace(content)
}

// FormatBRL renders an amount as Brazilian currency, e.g. "R$ 1.234,50".
func FormatBRL(amount float64) string {
	cents := int64(math.Round(amount * 100))
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	whole := fmt.Sprintf("%d", cents/100)

	var b strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	return fmt.Sprintf("%sR$ %s,%02d", sign, b.String(), cents%100)
}
