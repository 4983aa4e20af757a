package transfer

type KeywordBulkRegister struct {
	Keywords []string `json:"keywords"`
}

type KeywordBulkResult struct {
	Inserted int `json:"inserted"`
	Skipped  int `json:"skipped"`
}
