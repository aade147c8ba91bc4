package domain

// Stats summarizes the SCORES database for the stats endpoint.
type Stats struct {
	Users      int64            `json:"users"`
	Complaints int64            `json:"complaints"`
	ByStatus   map[string]int64 `json:"by_status"`
}
