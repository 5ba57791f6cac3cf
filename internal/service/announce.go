package service

import (
	"errors"
	"fmt"
	"strings"

	"tile-race-bot/internal/model"
	"tile-race-bot/internal/repository"
)

// NotOnTeamText is the reply to actors that do not belong to any team.
const NotOnTeamText = "You aren't on any team. Ask an admin to add you first."

// FormatAnnouncement renders the status line for a committed turn.
func FormatAnnouncement(res *TurnResult) string {
	if res.Status == StatusFinished {
		return fmt.Sprintf("🏁 %s reached %s and finished the board!", res.Team, res.FromName)
	}

	line := fmt.Sprintf("%s %s: %s → %s (🎲 %d) • rerolls %d • skips %d",
		res.Team, verb(res.Action), res.FromName, res.ToName, res.Roll, res.Rerolls, res.Skips)
	if res.MustHit {
		line += " • must-hit stop"
	}
	return line
}

// ForkPrompt builds the choice prompt for a team at a fork.
func ForkPrompt(res *TurnResult) Message {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s, choose your path (🎲 %d from %s):", res.Team, res.Roll, res.FromName)

	choices := make([]Choice, 0, len(res.Options))
	for i, o := range res.Options {
		name := o.Tile
		if i < len(res.OptionName) {
			name = res.OptionName[i]
		}
		fmt.Fprintf(&sb, "\n%s → %s", o.Symbol, name)
		choices = append(choices, Choice{
			Label: fmt.Sprintf("%s %s", o.Symbol, name),
			Data:  ForkCallback(res.PromptID, o.Key),
		})
	}
	return Message{Text: sb.String(), Choices: choices}
}

// FormatUploaded is the notice posted when a team uploads a drop.
func FormatUploaded(team string) string {
	return fmt.Sprintf("%s uploaded a drop – waiting for approval.", team)
}

// FormatDeclined is the notice posted when a drop is declined.
func FormatDeclined(team string) string {
	return fmt.Sprintf("%s drop was declined.", team)
}

// RejectionText returns the user-facing reply for a rejected event.
func RejectionText(res *TurnResult) string {
	if res.Status == StatusNotOnTeam {
		return NotOnTeamText
	}

	switch {
	case errors.Is(res.Reason, ErrNoRerolls):
		return fmt.Sprintf("Team %s has no rerolls left.", res.Team)
	case errors.Is(res.Reason, ErrNoSkips):
		return fmt.Sprintf("Team %s has no skips left.", res.Team)
	case errors.Is(res.Reason, ErrAwaitingChoice):
		return fmt.Sprintf("Team %s must choose a path first.", res.Team)
	case errors.Is(res.Reason, ErrTeamFinished):
		return fmt.Sprintf("Team %s has already finished.", res.Team)
	case errors.Is(res.Reason, ErrNothingToReroll):
		return fmt.Sprintf("Team %s has no move to reroll yet.", res.Team)
	case errors.Is(res.Reason, ErrStalePrompt):
		return "That choice is no longer active."
	case errors.Is(res.Reason, ErrUnknownChoice):
		return "Unknown choice."
	case errors.Is(res.Reason, ErrSubmissionNotFound):
		return "That drop is no longer pending."
	case errors.Is(res.Reason, ErrAlreadyDecided):
		return "That drop was already decided."
	case errors.Is(res.Reason, ErrNotApprover):
		return "Only approvers can decide drops."
	case errors.Is(res.Reason, repository.ErrTeamNotFound):
		return "That team no longer exists."
	default:
		return "That action is not possible right now."
	}
}

// FormatStatus lists every team with its position and counters.
func FormatStatus(snap Snapshot) string {
	var sb strings.Builder
	sb.WriteString("📋 Teams")
	for _, t := range snap.Teams {
		name := t.Tile
		if tile, ok := snap.Tiles[t.Tile]; ok {
			name = tile.DisplayName()
		}
		fmt.Fprintf(&sb, "\n%s: %s • rerolls %d • skips %d", t.Name, name, t.Rerolls, t.Skips)
		switch {
		case t.Finished:
			sb.WriteString(" • 🏁")
		case t.AwaitingChoice():
			sb.WriteString(" • choosing")
		}
	}
	return sb.String()
}

// FormatHistory lists journal entries, newest first.
func FormatHistory(team string, moves []*model.Move) string {
	title := "📜 Recent moves"
	if team != "" {
		title = fmt.Sprintf("📜 Recent moves of %s", team)
	}
	if len(moves) == 0 {
		return title + "\nNo moves yet."
	}

	var sb strings.Builder
	sb.WriteString(title)
	for _, m := range moves {
		fmt.Fprintf(&sb, "\n%s %s %s: %s → %s (🎲 %d)",
			m.CreatedAt.Format("01-02 15:04"), m.Team, verb(m.Kind), m.FromTile, m.ToTile, m.Roll)
	}
	return sb.String()
}

func verb(kind string) string {
	switch kind {
	case model.MoveAutoChose:
		return "auto-chose"
	case model.MoveNoMove:
		return "stayed"
	default:
		return kind
	}
}
