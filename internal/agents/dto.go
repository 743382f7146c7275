package agents

import (
	"github.com/qatalysthq/qatalyst-backend/pkg/db/models"
	"github.com/qatalysthq/qatalyst-backend/pkg/enums"
)

// AgentView is the roster entry served to the dashboard.
type AgentView struct {
	ID            string            `json:"id"`
	Name          string            `json:"name"`
	Status        enums.AgentStatus `json:"status"`
	CurrentTicket *string           `json:"current_ticket"`
	TotalServed   int               `json:"total_served"`
	Efficiency    int               `json:"efficiency"`
	Skills        []string          `json:"skills"`
}

// Views maps agent rows to roster entries. Skills is never null in responses.
func Views(roster []models.Agent) []AgentView {
	out := make([]AgentView, 0, len(roster))
	for _, a := range roster {
		skills := []string(a.Skills)
		if skills == nil {
			skills = []string{}
		}
		out = append(out, AgentView{
			ID:            a.ID,
			Name:          a.Name,
			Status:        a.Status,
			CurrentTicket: a.CurrentTicket,
			TotalServed:   a.TotalServed,
			Efficiency:    a.Efficiency,
			Skills:        skills,
		})
	}
	return out
}
