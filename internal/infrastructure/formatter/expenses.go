package formatter

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"Sentinela/internal/domain"
	"Sentinela/internal/ports"
)

const (
	maxCategoryLines    = 5
	defaultCategoryIcon = "▪️"
	defaultExpenseTags  = "#ProjetoSentinela #TransparenciaBrasil #Fiscalize #Governo #GastosPúblicos"
	expenseSourceLine   = "🔗 Fonte: Portal da Câmara dos Deputados\n"
)

var categoryIcons = map[string]string{
	"Divulgação Da Atividade Parlamentar":                       "📢",
	"Combustíveis E Lubrificantes":                              "⛽",
	"Passagem Aérea - Sigepa":                                   "✈️",
	"Manutenção De Escritório De Apoio À Atividade Parlamentar": "🏢",
	"Locação Ou Fretamento De Veículos Automotores":             "🚗",
	"Telefonia":                                                 "📱",
	"Serviços Postais":                                          "✉️",
}

// ErrNoExpense is returned for items that carry no expense summary.
var ErrNoExpense = errors.New("item has no expense summary")

// ExpenseFormatter renders a deputy expense summary as a three-part thread.
type ExpenseFormatter struct {
	hashtags string
}

var _ ports.ThreadFormatter = (*ExpenseFormatter)(nil)

func NewExpenseFormatter(hashtags string) *ExpenseFormatter {
	hashtags = strings.TrimSpace(hashtags)
	if hashtags == "" {
		hashtags = defaultExpenseTags
	}
	return &ExpenseFormatter{hashtags: hashtags}
}

// Format builds the total, category breakdown and highlight parts.
func (f *ExpenseFormatter) Format(item domain.Item) ([]string, error) {
	summary := item.Expense
	if summary == nil {
		return nil, fmt.Errorf("format %s: %w", item.ID, ErrNoExpense)
	}
	p := message.NewPrinter(language.BrazilianPortuguese)

	deputy := summary.Deputy.Name
	if affiliation := affiliation(summary.Deputy); affiliation != "" {
		deputy += " (" + affiliation + ")"
	}

	intro := p.Sprintf("📊 Gastos Parlamentares: R$ %.2f\n\n", summary.Total) +
		fmt.Sprintf("Deputado(a): %s utilizou este valor da cota parlamentar nos últimos %d meses.", deputy, summary.Months) +
		"\n\n👇 Siga o fio para ver os detalhes e as fontes."
	first := intro + "\n\n" + f.hashtags
	if Length(first) > MaxPartLength {
		first = intro
	}

	details := "🧵 Detalhes dos Gastos:\n\n"
	for i, c := range summary.Categories {
		if i == maxCategoryLines {
			break
		}
		line := p.Sprintf("%s %s: R$ %.2f\n", categoryIcon(c.Category), c.Category, c.Total)
		if Length(details+line) >= MaxPartLength {
			break
		}
		details += line
	}

	var highlight string
	if l := summary.Largest; l != nil && l.Amount > 0 {
		supplier := cases.Title(language.BrazilianPortuguese).String(strings.ToLower(strings.TrimSpace(l.Supplier)))
		highlight = p.Sprintf("✨ Destaque: O maior gasto único foi de R$ %.2f com \"%s\".\n\n", l.Amount, supplier)
	}
	highlight += expenseSourceLine + item.URL()

	return []string{
		Clamp(first, MaxPartLength),
		Clamp(strings.TrimRight(details, "\n"), MaxPartLength),
		Clamp(highlight, MaxPartLength),
	}, nil
}

func affiliation(d domain.Deputy) string {
	switch {
	case d.Party != "" && d.State != "":
		return d.Party + "-" + d.State
	default:
		return d.Party + d.State
	}
}

func categoryIcon(category string) string {
	if icon, ok := categoryIcons[category]; ok {
		return icon
	}
	return defaultCategoryIcon
}
