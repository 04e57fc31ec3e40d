package services

import (
	"testing"
	"time"

	"barberpro-backend/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeTemplateType(t *testing.T) {
	cases := map[string]string{
		"Confirmação de Agendamento":   "confirmacao de agendamento",
		"  PESQUISA   de  Satisfação ": "pesquisa de satisfacao",
		"lembrete":                     "lembrete",
		"":                             "",
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizeTemplateType(in), in)
	}
}

func TestKindOf(t *testing.T) {
	cases := []struct {
		name string
		tpl  models.MessageTemplate
		kind TemplateKind
		ok   bool
	}{
		{"reminder type", models.MessageTemplate{Type: "Lembrete de Agendamento"}, KindReminder, true},
		{"confirmation type", models.MessageTemplate{Type: "Confirmação de Agendamento"}, KindConfirmation, true},
		{"manual confirmation is not a confirmation", models.MessageTemplate{Type: "Confirmação Manual"}, KindManualConfirmation, true},
		{"survey type", models.MessageTemplate{Type: "Pesquisa de Satisfação"}, KindSurvey, true},
		{"name used when type unknown", models.MessageTemplate{Type: "custom", Name: "Survey"}, KindSurvey, true},
		{"keyword fallback", models.MessageTemplate{Type: "Lembrete 2h antes"}, KindReminder, true},
		{"manual keyword wins", models.MessageTemplate{Type: "Nova confirmação manual VIP"}, KindManualConfirmation, true},
		{"unknown", models.MessageTemplate{Type: "Promoção", Name: "Black Friday"}, "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			kind, ok := KindOf(tc.tpl)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.kind, kind)
		})
	}
}

func TestDefaultTemplatesCoverEveryKind(t *testing.T) {
	seen := map[TemplateKind]bool{}
	for _, tpl := range DefaultTemplates() {
		kind, ok := KindOf(tpl)
		require.True(t, ok, tpl.Type)
		seen[kind] = true
	}
	for _, kind := range append(QueueKinds, KindManualConfirmation) {
		assert.True(t, seen[kind], kind)
	}
}

func TestMergeTemplatesOverridesByNormalizedType(t *testing.T) {
	defaults := DefaultTemplates()
	overrides := []models.MessageTemplate{
		{Name: "Meu lembrete", Type: "lembrete de agendamento", Content: "custom", Enabled: false},
		{Name: "Aniversário", Type: "Aniversário", Content: "parabéns", Enabled: true},
	}

	merged := MergeTemplates(defaults, overrides)

	require.Len(t, merged, len(defaults)+1)
	assert.Equal(t, "Meu lembrete", merged[0].Name, "override keeps the default's position")
	assert.False(t, merged[0].Enabled)
	assert.Equal(t, "Aniversário", merged[len(merged)-1].Name)

	_, ok := FindEnabledTemplate(merged, KindReminder)
	assert.False(t, ok, "disabled override hides the default reminder")
}

func TestMergeTemplatesOverridesDefaultOfSameKind(t *testing.T) {
	defaults := DefaultTemplates()
	overrides := []models.MessageTemplate{
		{Name: "Lembrete curto", Type: "Lembrete", Content: "em 2h", Enabled: true, ReminderHoursBefore: intPtr(2)},
	}

	merged := MergeTemplates(defaults, overrides)

	require.Len(t, merged, len(defaults))
	tpl, ok := FindEnabledTemplate(merged, KindReminder)
	require.True(t, ok)
	assert.Equal(t, "Lembrete curto", tpl.Name)
	assert.Equal(t, 2, *tpl.ReminderHoursBefore)

	overrides[0].Enabled = false
	_, ok = FindEnabledTemplate(MergeTemplates(defaults, overrides), KindReminder)
	assert.False(t, ok, "a disabled custom reminder also disables the default one")
}

func TestMergeTemplatesIsPure(t *testing.T) {
	defaults := DefaultTemplates()
	before := defaults[0].Content
	MergeTemplates(defaults, []models.MessageTemplate{{Type: defaults[0].Type, Content: "x"}})
	assert.Equal(t, before, defaults[0].Content)
}

func TestFindEnabledTemplate(t *testing.T) {
	templates := []models.MessageTemplate{
		{Name: "old", Type: "Lembrete", Enabled: false},
		{Name: "new", Type: "Lembrete de Agendamento", Enabled: true},
	}
	tpl, ok := FindEnabledTemplate(templates, KindReminder)
	require.True(t, ok)
	assert.Equal(t, "new", tpl.Name)

	_, ok = FindEnabledTemplate(templates, KindSurvey)
	assert.False(t, ok)
}

func TestRenderTemplate(t *testing.T) {
	saoPaulo := time.FixedZone("BRT", -3*60*60)
	rc := RenderContext{
		ClientName:     "Ana",
		BarbershopName: "Navalha",
		Address:        "Rua A, 1",
		BarberName:     "Carlos",
		Services:       []string{"Corte", "Barba"},
		TotalPrice:     75.5,
		StartTime:      time.Date(2025, 3, 11, 17, 30, 0, 0, time.UTC),
		Location:       saoPaulo,
	}

	got := RenderTemplate("{cliente} {servico} {valor} {data} {horario} {barbeiro} {barbearia} {endereco} {cliente}", rc)

	assert.Equal(t, "Ana Corte, Barba R$ 75,50 11/03/2025 14:30 Carlos Navalha Rua A, 1 Ana", got)
}

func TestRenderTemplateDefaults(t *testing.T) {
	got := RenderTemplate("{barbearia}/{barbeiro}/{endereco}", RenderContext{StartTime: refTime})
	assert.Equal(t, "sua barbearia/Barbeiro/", got)
}

func TestFormatBRL(t *testing.T) {
	cases := map[float64]string{
		0:         "R$ 0,00",
		35:        "R$ 35,00",
		1234.5:    "R$ 1.234,50",
		1000000:   "R$ 1.000.000,00",
		-5:        "-R$ 5,00",
		19.999999: "R$ 20,00",
	}
	for in, want := range cases {
		assert.Equal(t, want, FormatBRL(in))
	}
}
