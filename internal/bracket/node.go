package bracket

import (
	"time"

	"github.com/AdamBeresnev/esports-bracket/internal/utils"
	"github.com/google/uuid"
)

type MatchStatus string

const (
	MatchPending   MatchStatus = "pending"
	MatchCompleted MatchStatus = "completed"
	// A match that can never be played: no team ever reached it, or it is a grand final reset
	// that turned out to be unnecessary.
	MatchSkipped MatchStatus = "skipped"
)

type BracketType string

const (
	WinnerBracket BracketType = "winner"
	LoserBracket  BracketType = "loser"
	GrandFinal    BracketType = "grand-final"
)

// Node is one match slot in the bracket.
type Node struct {
	ID uuid.UUID `json:"id"`

	// Position in the bracket for reconstructing the view
	BracketType BracketType `json:"bracketType"`
	Round       int         `json:"round"`
	Position    int         `json:"position"`

	Team1  *string `json:"team1,omitempty"`
	Team2  *string `json:"team2,omitempty"`
	Winner *string `json:"winner,omitempty"`

	Score1 *int        `json:"score1,omitempty"`
	Score2 *int        `json:"score2,omitempty"`
	Status MatchStatus `json:"status"`

	NextMatchID      *uuid.UUID `json:"nextMatchId,omitempty"`
	LoserNextMatchID *uuid.UUID `json:"loserNextMatchId,omitempty"`

	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

func (n *Node) IsTerminal() bool {
	return n.Status == MatchCompleted || n.Status == MatchSkipped
}

// IsReady reports whether the match can be played now.
func (n *Node) IsReady() bool {
	return n.Status == MatchPending && n.Team1 != nil && n.Team2 != nil
}

func (n *Node) HasTeam(team string) bool {
	return (n.Team1 != nil && *n.Team1 == team) || (n.Team2 != nil && *n.Team2 == team)
}

// Opponent returns the other team of the match, if both are known.
func (n *Node) Opponent(team string) (string, bool) {
	if n.Team1 == nil || n.Team2 == nil {
		return "", false
	}
	switch team {
	case *n.Team1:
		return *n.Team2, true
	case *n.Team2:
		return *n.Team1, true
	}
	return "", false
}

// Loser is only known for completed matches that were actually played.
func (n *Node) Loser() *string {
	if n.Status != MatchCompleted || n.Winner == nil {
		return nil
	}
	if opp, ok := n.Opponent(*n.Winner); ok {
		return &opp
	}
	return nil
}

func (n *Node) teamCount() int {
	count := 0
	if n.Team1 != nil {
		count++
	}
	if n.Team2 != nil {
		count++
	}
	return count
}

// fill places a team into the first empty slot, team1 first.
func (n *Node) fill(team string) bool {
	switch {
	case n.Team1 == nil:
		n.Team1 = utils.Ptr(team)
	case n.Team2 == nil:
		n.Team2 = utils.Ptr(team)
	default:
		return false
	}
	return true
}

func (n Node) clone() Node {
	n.Team1 = utils.Clone(n.Team1)
	n.Team2 = utils.Clone(n.Team2)
	n.Winner = utils.Clone(n.Winner)
	n.Score1 = utils.Clone(n.Score1)
	n.Score2 = utils.Clone(n.Score2)
	n.NextMatchID = utils.Clone(n.NextMatchID)
	n.LoserNextMatchID = utils.Clone(n.LoserNextMatchID)
	n.CompletedAt = utils.Clone(n.CompletedAt)
	return n
}
