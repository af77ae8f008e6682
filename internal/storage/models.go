package storage

type Transaction struct {
	ID          int64
	Date        string
	Kind        string
	Category    string
	Description string
	AmountMinor int64
	Currency    string
	CreatedAt   string
}

type Budget struct {
	Category   string
	Period     string
	LimitMinor int64
	UpdatedAt  string
}
