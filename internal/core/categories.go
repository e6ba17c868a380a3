package core

// Preset categories offered by the entry forms. Category stays free text.
var (
	IncomeCategories = []string{"Salary", "Freelance", "Investment", "Gift", "Other"}

	ExpenseCategories = []string{
		"Food",
		"Shopping",
		"Transport",
		"Bills",
		"Housing",
		"Health",
		"Coffee",
		"Entertainment",
		"Other",
	}
)

// CategoriesFor returns a copy of the preset list for a transaction type.
func CategoriesFor(t TransactionType) []string {
	src := ExpenseCategories
	if t == Income {
		src = IncomeCategories
	}
	return append([]string(nil), src...)
}
