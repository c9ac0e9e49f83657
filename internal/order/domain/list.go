package domain

// ListQuery filters and pages an order listing. StatusMilestone keeps the
// historical "at or before this milestone" semantics: a milestone matches
// orders whose history is exactly the chain of prior statuses up to it, and
// CANCELLED matches any history containing it.
type ListQuery struct {
	UserID          string
	CodeContains    string
	StatusMilestone *Status
	SortAsc         bool
	Page            int
	Limit           int
}

// MilestonePrefix expands a milestone into the status chain it matches.
// Returns nil for CANCELLED, which is a containment match instead.
func MilestonePrefix(s Status) []Status {
	chain := []Status{StatusPending, StatusProcessing, StatusShipping, StatusDelivered}
	for i, st := range chain {
		if st == s {
			return chain[:i+1]
		}
	}
	return nil
}

type OrderPage struct {
	Orders    []*Order `json:"orders"`
	TotalDocs int      `json:"totalDocs"`
	TotalPage int      `json:"totalPage"`
}
