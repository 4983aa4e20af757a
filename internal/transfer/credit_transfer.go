package transfer

type CreditGrant struct {
	AccountID int64  `json:"account_id"`
	Amount    int    `json:"amount"`
	Reason    string `json:"reason"`
}

type CreditStatus struct {
	Balance        int `json:"balance"`
	NextRunCost    int `json:"next_run_cost"`
	RunsAffordable int `json:"runs_affordable"`
}
