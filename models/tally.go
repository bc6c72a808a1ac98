package models

// MonthNames are the calendar months in order, as labelled on the dashboard.
var MonthNames = [12]string{
	"Enero", "Febrero", "Marzo", "Abril", "Mayo", "Junio",
	"Julio", "Agosto", "Septiembre", "Octubre", "Noviembre", "Diciembre",
}

// MonthlyOperatorTally counts policies per operator per month. Operators keep
// the order in which they were first seen.
type MonthlyOperatorTally struct {
	order  []string
	counts map[string]*[12]int
}

// NewMonthlyOperatorTally returns an empty tally.
func NewMonthlyOperatorTally() *MonthlyOperatorTally {
	return &MonthlyOperatorTally{counts: make(map[string]*[12]int)}
}

// Add increments the operator's count for month (0 = January). The first time
// an operator is seen all twelve months start at zero.
func (t *MonthlyOperatorTally) Add(operator string, month int) {
	row, ok := t.counts[operator]
	if !ok {
		row = new([12]int)
		t.counts[operator] = row
		t.order = append(t.order, operator)
	}
	row[month]++
}

// Operators returns a copy of the operators in discovery order.
func (t *MonthlyOperatorTally) Operators() []string {
	out := make([]string, len(t.order))
	copy(out, t.order)
	return out
}

// Months returns the twelve monthly counts of an operator in calendar order.
func (t *MonthlyOperatorTally) Months(operator string) ([12]int, bool) {
	row, ok := t.counts[operator]
	if !ok {
		return [12]int{}, false
	}
	return *row, true
}

// Count returns the count of one operator and month.
func (t *MonthlyOperatorTally) Count(operator string, month int) int {
	if row, ok := t.counts[operator]; ok {
		return row[month]
	}
	return 0
}

// Len is the number of operators.
func (t *MonthlyOperatorTally) Len() int { return len(t.order) }

// OperatorTotals counts policies per operator, in discovery order.
type OperatorTotals struct {
	order  []string
	totals map[string]int
}

// NewOperatorTotals returns empty totals.
func NewOperatorTotals() *OperatorTotals {
	return &OperatorTotals{totals: make(map[string]int)}
}

// Add increments the operator's total.
func (o *OperatorTotals) Add(operator string) {
	if _, ok := o.totals[operator]; !ok {
		o.order = append(o.order, operator)
	}
	o.totals[operator]++
}

// Operators returns a copy of the operators in discovery order.
func (o *OperatorTotals) Operators() []string {
	out := make([]string, len(o.order))
	copy(out, o.order)
	return out
}

// Get returns the operator's total.
func (o *OperatorTotals) Get(operator string) int { return o.totals[operator] }

// Sum is the total over all operators.
func (o *OperatorTotals) Sum() int {
	sum := 0
	for _, v := range o.totals {
		sum += v
	}
	return sum
}

// Len is the number of operators.
func (o *OperatorTotals) Len() int { return len(o.order) }

// Aggregation is the result of one aggregation pass over a snapshot.
type Aggregation struct {
	Tally    *MonthlyOperatorTally
	Totals   *OperatorTotals
	Warnings []string
	// Considered is the number of input policies, Matched the number counted.
	Considered int
	Matched    int
}
