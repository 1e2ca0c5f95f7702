package service

import (
	"strings"

	"github.com/AdamBeresnev/esports-bracket/internal/utils"
)

// ParseTeamList reads one team per line, the way organizers paste a roster. Blank lines are
// ignored.
func ParseTeamList(text string) []string {
	teams := make([]string, 0)
	for _, line := range strings.Split(text, "\n") {
		if team := utils.StringOrNil(line); team != nil {
			teams = append(teams, *team)
		}
	}
	return teams
}

// normalizeTeams trims surrounding whitespace. Blank and duplicate ids are left for the engine
// to reject.
func normalizeTeams(teams []string) []string {
	out := make([]string, len(teams))
	for i, team := range teams {
		out[i] = strings.TrimSpace(team)
	}
	return out
}
