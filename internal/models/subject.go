package models

// Subject is a study subject together with the study time its pending material analyses still
// require.
type Subject struct {
	ID                 string `db:"id" json:"id"`
	Name               string `db:"name" json:"name"`
	Color              string `db:"color" json:"color"`
	OutstandingMinutes int    `db:"outstanding_minutes" json:"outstanding_minutes"`
}
