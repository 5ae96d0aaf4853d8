package xero

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var ErrNoColumns = errors.New("xero report did not include columns")

// Report is one entry of the Reports array returned by the reports API.
type Report struct {
	Columns []Column `json:"Columns"`
	Rows    []Row    `json:"Rows"`
}

type Column struct {
	Title string `json:"Title"`
}

type Row struct {
	RowType string `json:"RowType"`
	Title   string `json:"Title"`
	Cells   []Cell `json:"Cells"`
	Rows    []Row  `json:"Rows"`
}

type Cell struct {
	Value CellValue `json:"Value"`
}

// CellValue holds a cell that may arrive as a JSON string, a number or null.
type CellValue struct {
	Text   string
	Number *float64
}

func (v *CellValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*v = CellValue{}
		return nil
	}
	if data[0] == '"' {
		return json.Unmarshal(data, &v.Text)
	}
	var n float64
	if err := json.Unmarshal(data, &n); err != nil {
		// booleans and objects carry no amount
		*v = CellValue{}
		return nil
	}
	v.Number = &n
	return nil
}

func (v CellValue) String() string {
	if v.Number != nil {
		return strconv.FormatFloat(*v.Number, 'f', -1, 64)
	}
	return v.Text
}

func (v CellValue) Float() float64 {
	if v.Number != nil {
		return *v.Number
	}
	return ToNumber(v.Text)
}

// ToNumber parses an accounting amount. "(12.50)" is negative, thousands
// separators and dollar signs are ignored, and blank, "-" or unparsable input
// is zero.
func ToNumber(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" || s == "-" {
		return 0
	}
	negative := strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")")
	cleaned := strings.NewReplacer("(", "", ")", "", ",", "", "$", "").Replace(s)
	n, err := strconv.ParseFloat(strings.TrimSpace(cleaned), 64)
	if err != nil {
		return 0
	}
	if negative {
		return -n
	}
	return n
}

var monthNumbers = map[string]time.Month{
	"jan": time.January, "january": time.January,
	"feb": time.February, "february": time.February,
	"mar": time.March, "march": time.March,
	"apr": time.April, "april": time.April,
	"may": time.May,
	"jun": time.June, "june": time.June,
	"jul": time.July, "july": time.July,
	"aug": time.August, "august": time.August,
	"sep": time.September, "sept": time.September, "september": time.September,
	"oct": time.October, "october": time.October,
	"nov": time.November, "november": time.November,
	"dec": time.December, "december": time.December,
}

// NormalizeMonthLabel turns a column title such as "Mar 2024" into the key
// "2024-03" and the label "Mar 2024". Titles that are not a month pass through
// unchanged as both key and label.
func NormalizeMonthLabel(title string) (key, label string) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", ""
	}
	parts := strings.Fields(title)
	if len(parts) == 2 {
		month, ok := monthNumbers[strings.ToLower(parts[0])]
		year, err := strconv.Atoi(parts[1])
		if ok && err == nil && year > 0 && isDigits(parts[1]) {
			d := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
			return d.Format("2006-01"), d.Format("Jan 2006")
		}
	}
	return title, title
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

const (
	SectionTradingIncome     = "trading_income"
	SectionCostOfSales       = "cost_of_sales"
	SectionOtherIncome       = "other_income"
	SectionOperatingExpenses = "operating_expenses"
	SectionUnknown           = "unknown"
)

func SectionFromHeader(header string) string {
	s := strings.ToLower(strings.TrimSpace(header))
	switch {
	case strings.Contains(s, "trading income"):
		return SectionTradingIncome
	case strings.Contains(s, "cost of sales"), strings.Contains(s, "costs of sales"), strings.Contains(s, "cogs"):
		return SectionCostOfSales
	case strings.Contains(s, "other income"):
		return SectionOtherIncome
	case strings.Contains(s, "operating expenses"):
		return SectionOperatingExpenses
	}
	return SectionUnknown
}

var summaryRows = map[string]bool{
	"net profit":       true,
	"net income":       true,
	"gross profit":     true,
	"gross margin":     true,
	"operating profit": true,
	"operating income": true,
}

func IsSummaryRow(name string) bool {
	return summaryRows[strings.ToLower(strings.TrimSpace(name))]
}

type PLAccount struct {
	Name    string    `json:"name"`
	Section string    `json:"section"`
	Values  []float64 `json:"values"`
	Total   float64   `json:"total"`
}

type ProfitAndLoss struct {
	Months      []string    `json:"months"`
	MonthLabels []string    `json:"monthLabels"`
	Accounts    []PLAccount `json:"accounts"`
}

// ParseProfitAndLoss flattens a P&L report into one row per account. Every
// column after the first is a month unless its title starts with "Total",
// in which case it is the row total.
func ParseProfitAndLoss(report *Report) (*ProfitAndLoss, error) {
	if report == nil || len(report.Columns) == 0 {
		return nil, ErrNoColumns
	}

	titles := make([]string, 0, len(report.Columns))
	for _, col := range report.Columns {
		titles = append(titles, strings.TrimSpace(col.Title))
	}

	monthTitles := titles[1:]
	hasTotal := false
	if n := len(monthTitles); n > 0 && strings.HasPrefix(strings.ToLower(monthTitles[n-1]), "total") {
		hasTotal = true
		monthTitles = monthTitles[:n-1]
	}

	pl := &ProfitAndLoss{Months: []string{}, MonthLabels: []string{}, Accounts: []PLAccount{}}
	for _, title := range monthTitles {
		key, label := NormalizeMonthLabel(title)
		if key == "" {
			continue
		}
		pl.Months = append(pl.Months, key)
		pl.MonthLabels = append(pl.MonthLabels, label)
	}

	p := plParser{months: len(pl.Months), hasTotal: hasTotal, out: pl}
	p.walk(report.Rows, SectionUnknown)
	return pl, nil
}

type plParser struct {
	months   int
	hasTotal bool
	out      *ProfitAndLoss
}

func (p *plParser) walk(rows []Row, section string) {
	for _, row := range rows {
		switch row.RowType {
		case "Section":
			next := section
			if row.Title != "" {
				next = SectionFromHeader(row.Title)
			}
			p.walk(row.Rows, next)
		case "Row":
			p.row(row, section)
		}
	}
}

func (p *plParser) row(row Row, section string) {
	if len(row.Cells) == 0 {
		return
	}
	name := strings.TrimSpace(row.Cells[0].Value.String())
	if name == "" || IsSummaryRow(name) {
		return
	}

	values := make([]float64, p.months)
	sum := 0.0
	for i := 0; i < p.months && i+1 < len(row.Cells); i++ {
		values[i] = row.Cells[i+1].Value.Float()
		sum += values[i]
	}

	total := sum
	if p.hasTotal && len(row.Cells) > p.months+1 {
		total = row.Cells[p.months+1].Value.Float()
	}

	p.out.Accounts = append(p.out.Accounts, PLAccount{
		Name:    name,
		Section: section,
		Values:  values,
		Total:   total,
	})
}

type GLTxn struct {
	Account     string  `json:"account"`
	Date        string  `json:"date"`
	Source      string  `json:"source"`
	Description string  `json:"description"`
	Reference   string  `json:"reference"`
	Debit       float64 `json:"debit"`
	Credit      float64 `json:"credit"`
	Amount      float64 `json:"amount"`
}

type GeneralLedger struct {
	Txns []GLTxn `json:"txns"`
}

type glColumns struct {
	date, desc, source, debit, credit, amount int
}

func findColumn(titles []string, match func(string) bool) int {
	for i, t := range titles {
		if match(t) {
			return i
		}
	}
	return -1
}

func contains(sub string) func(string) bool {
	return func(s string) bool { return strings.Contains(s, sub) }
}

// ParseGeneralLedger flattens a general ledger report into transactions.
// Columns are located by title, and the account is the title of the
// enclosing section.
func ParseGeneralLedger(report *Report) *GeneralLedger {
	gl := &GeneralLedger{Txns: []GLTxn{}}
	if report == nil {
		return gl
	}

	titles := make([]string, 0, len(report.Columns))
	for _, col := range report.Columns {
		titles = append(titles, strings.ToLower(strings.TrimSpace(col.Title)))
	}
	cols := glColumns{
		date: findColumn(titles, contains("date")),
		desc: findColumn(titles, func(s string) bool {
			return strings.Contains(s, "description") || strings.Contains(s, "narration")
		}),
		source: findColumn(titles, func(s string) bool {
			return strings.Contains(s, "source") || strings.Contains(s, "reference")
		}),
		debit:  findColumn(titles, contains("debit")),
		credit: findColumn(titles, contains("credit")),
		amount: findColumn(titles, func(s string) bool {
			return strings.Contains(s, "amount") && !strings.Contains(s, "balance")
		}),
	}

	walkLedger(report.Rows, "", cols, gl)
	return gl
}

func walkLedger(rows []Row, account string, cols glColumns, gl *GeneralLedger) {
	for _, row := range rows {
		switch row.RowType {
		case "Section":
			next := account
			if row.Title != "" {
				next = row.Title
			}
			walkLedger(row.Rows, next, cols, gl)
		case "Row":
			if txn, ok := ledgerRow(row.Cells, account, cols); ok {
				gl.Txns = append(gl.Txns, txn)
			}
		}
	}
}

func ledgerRow(cells []Cell, account string, cols glColumns) (GLTxn, bool) {
	at := func(i int) CellValue {
		if i < 0 || i >= len(cells) {
			return CellValue{}
		}
		return cells[i].Value
	}

	date := at(cols.date).String()
	desc := at(cols.desc).String()
	source := at(cols.source).String()
	debit := at(cols.debit).Float()
	credit := at(cols.credit).Float()
	amount := debit - credit

	if cols.amount >= 0 && debit == 0 && credit == 0 {
		amount = at(cols.amount).Float()
		if amount > 0 {
			debit = amount
		} else if amount < 0 {
			credit = -amount
		}
	}

	if date == "" && desc == "" && debit == 0 && credit == 0 {
		return GLTxn{}, false
	}

	return GLTxn{
		Account:     account,
		Date:        date,
		Source:      source,
		Description: desc,
		Reference:   source,
		Debit:       debit,
		Credit:      credit,
		Amount:      amount,
	}, true
}

// reportsEnvelope is the top-level body of a reports API response.
type reportsEnvelope struct {
	Reports []Report `json:"Reports"`
}

func firstReport(body []byte) (*Report, error) {
	var env reportsEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("failed to decode report: %w", err)
	}
	if len(env.Reports) == 0 {
		return nil, nil
	}
	return &env.Reports[0], nil
}
