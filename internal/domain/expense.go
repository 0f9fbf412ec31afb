package domain

import "time"

// Deputy is a member of the Câmara dos Deputados as listed by the open-data API.
type Deputy struct {
	ID    int    `json:"id"`
	Name  string `json:"nome"`
	Party string `json:"siglaPartido"`
	State string `json:"siglaUf"`
}

// Expense is a single reimbursed expense of a deputy.
type Expense struct {
	Category string  `json:"tipoDespesa"`
	Supplier string  `json:"nomeFornecedor"`
	Amount   float64 `json:"valorLiquido"`
}

// CategoryTotal aggregates expenses of one category.
type CategoryTotal struct {
	Category string  `json:"categoria"`
	Total    float64 `json:"total"`
}

// ExpenseSummary condenses a deputy's expenses over a period.
type ExpenseSummary struct {
	Deputy     Deputy          `json:"deputado"`
	Total      float64         `json:"total_gasto"`
	Categories []CategoryTotal `json:"categorias"`
	Largest    *Expense        `json:"maior_gasto,omitempty"`
	Months     int             `json:"meses"`
}

// Ranking is the output of the ranking job, sorted by total descending.
type Ranking struct {
	GeneratedAt time.Time        `json:"gerado_em"`
	Months      int              `json:"meses"`
	Deputies    []ExpenseSummary `json:"deputados"`
}
