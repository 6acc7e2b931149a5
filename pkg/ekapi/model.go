package ekapi

// Session identifies the customer and the connection the API calls operate
// on.
type Session struct {
	CustomerNumber int `json:"customer_number"`
	ConnectionID   int `json:"connection_id"`
}

// AccountBalance is the account's running balance summary. Amounts and
// percentages are reported by the API as strings and passed through as-is.
type AccountBalance struct {
	TotalRunningBalance string       `json:"total_running_balance"`
	TotalAccountBalance string       `json:"total_account_balance"`
	NextBillingDate     string       `json:"next_billing_date"`
	Connections         []Connection `json:"connections"`
}

// Connection is one power connection on the account.
type Connection struct {
	ID            int    `json:"id"`
	HopPercentage string `json:"hop_percentage"`
}

// HopIntervals is the catalog of hour of power windows, keyed by interval
// number.
type HopIntervals map[int]HopInterval

// HopInterval is one selectable hour of power window. Active is 1 if the
// interval can currently be selected.
type HopInterval struct {
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Active    int    `json:"active"`
}

type hopIntervalsConfig struct {
	Intervals HopIntervals `json:"intervals"`
}

// Hop is the hour of power currently selected for the connection.
type Hop struct {
	ConnectionID string   `json:"connection_id"`
	Start        HopStart `json:"start"`
	End          HopEnd   `json:"end"`
}

// HopStart is the start boundary of a selected hour of power.
type HopStart struct {
	StartTime string `json:"start_time"`
	Interval  string `json:"interval"`
}

// HopEnd is the end boundary of a selected hour of power.
type HopEnd struct {
	EndTime  string `json:"end_time"`
	Interval string `json:"interval"`
}

// Label returns the window as displayed to users, e.g. "9:00 PM - 10:00 PM".
func (h Hop) Label() string {
	return h.Start.StartTime + " - " + h.End.EndTime
}
