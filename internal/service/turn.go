package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"tile-race-bot/internal/game/board"
	"tile-race-bot/internal/game/dice"
	"tile-race-bot/internal/model"
	"tile-race-bot/internal/pkg/lock"
	"tile-race-bot/internal/repository"
)

// Turn rejection reasons. They are reported in TurnResult.Reason, never as
// the returned error.
var (
	ErrNotOnTeam          = errors.New("actor is not on any team")
	ErrNoRerolls          = errors.New("no rerolls left")
	ErrNoSkips            = errors.New("no skips left")
	ErrAwaitingChoice     = errors.New("team must choose a path first")
	ErrTeamFinished       = errors.New("team already finished")
	ErrNothingToReroll    = errors.New("no move to reroll")
	ErrUnknownChoice      = errors.New("unknown choice")
	ErrStalePrompt        = errors.New("choice prompt is no longer active")
	ErrSubmissionNotFound = errors.New("submission not found")
	ErrAlreadyDecided     = errors.New("submission already decided")
	ErrNotApprover        = errors.New("actor may not decide submissions")
)

// errRejected aborts a team mutation without storing it.
var errRejected = errors.New("turn rejected")

// Defaults for TurnConfig.
const (
	DefaultLockTimeout   = 30 * time.Second
	DefaultRenderRetries = 2
)

// TurnStatus is the outcome of one actor event.
type TurnStatus int

const (
	StatusSubmitted      TurnStatus = iota // Upload recorded, awaiting a decision
	StatusMoved                            // Team moved to a new tile
	StatusNoMove                           // Roll had no path; team stayed
	StatusAwaitingChoice                   // Fork prompt published
	StatusFinished                         // Team finished the board
	StatusDeclined                         // Submission declined
	StatusRejected                         // Trigger rejected, see Reason
	StatusNotOnTeam                        // Actor is not on any team
)

func (s TurnStatus) String() string {
	switch s {
	case StatusSubmitted:
		return "submitted"
	case StatusMoved:
		return "moved"
	case StatusNoMove:
		return "no_move"
	case StatusAwaitingChoice:
		return "awaiting_choice"
	case StatusFinished:
		return "finished"
	case StatusDeclined:
		return "declined"
	case StatusRejected:
		return "rejected"
	case StatusNotOnTeam:
		return "not_on_team"
	default:
		return "unknown"
	}
}

// TurnResult describes what an actor event did.
type TurnResult struct {
	Status     TurnStatus
	Action     string // move kind, see model.Move*
	Team       string
	From       string
	To         string
	FromName   string
	ToName     string
	Roll       int
	MustHit    bool
	Rerolls    int
	Skips      int
	PromptID   string
	Options    []model.ForkOption
	OptionName []string // display names parallel to Options
	Submission *model.Submission
	Reason     error
}

// Rejected reports whether the event was refused without a state change.
func (r *TurnResult) Rejected() bool {
	return r.Status == StatusRejected || r.Status == StatusNotOnTeam
}

// TurnConfig holds turn orchestration settings.
type TurnConfig struct {
	MaxRoll       int
	BonusValue    int // zero means MaxRoll+1
	ChoiceTimeout time.Duration
	LockTimeout   time.Duration
	RenderRetries int
	Approvers     []int64
}

// TurnService drives turns: approvals, rerolls, skips and fork choices.
// Events for one team are serialized by a per-team lock held across the
// decide, mutate and announce steps; different teams proceed in parallel.
type TurnService struct {
	session  *Session
	roller   dice.Roller
	notifier Notifier
	renderer Renderer
	journal  Journal
	locks    *lock.KeyLock
	cfg      TurnConfig

	approvers map[int64]bool
	newID     func() string
	now       func() time.Time

	subMu       sync.Mutex
	submissions map[string]*model.Submission

	timerMu sync.Mutex
	timers  map[string]*time.Timer // pending choice timers by team
}

// NewTurnService creates a new TurnService instance.
func NewTurnService(
	session *Session,
	roller dice.Roller,
	notifier Notifier,
	renderer Renderer,
	journal Journal,
	cfg TurnConfig,
) *TurnService {
	if cfg.MaxRoll <= 0 {
		cfg.MaxRoll = dice.DefaultMaxRoll
	}
	if cfg.LockTimeout <= 0 {
		cfg.LockTimeout = DefaultLockTimeout
	}
	if cfg.RenderRetries < 0 {
		cfg.RenderRetries = 0
	}

	approvers := make(map[int64]bool, len(cfg.Approvers))
	for _, id := range cfg.Approvers {
		approvers[id] = true
	}

	return &TurnService{
		session:     session,
		roller:      roller,
		notifier:    notifier,
		renderer:    renderer,
		journal:     journal,
		locks:       lock.NewKeyLock(),
		cfg:         cfg,
		approvers:   approvers,
		newID:       uuid.NewString,
		now:         time.Now,
		submissions: make(map[string]*model.Submission),
		timers:      make(map[string]*time.Timer),
	}
}

// IsApprover reports whether userID may decide submissions.
func (s *TurnService) IsApprover(userID int64) bool {
	return s.approvers[userID]
}

// TeamOf returns the team userID belongs to.
func (s *TurnService) TeamOf(userID int64) (string, bool) {
	var name string
	var ok bool
	_ = s.session.Read(func(_ *board.Board, teams *repository.TeamRepository) error {
		name, ok = teams.FindByMember(userID)
		return nil
	})
	return name, ok
}

// SubmitUpload records a proof upload by actorID for their team.
func (s *TurnService) SubmitUpload(ctx context.Context, actorID int64) (*TurnResult, error) {
	team, ok := s.TeamOf(actorID)
	if !ok {
		return notOnTeam(), nil
	}

	sub := &model.Submission{
		ID:          s.newID(),
		Team:        team,
		SubmittedBy: actorID,
		CreatedAt:   s.now(),
	}

	s.subMu.Lock()
	s.submissions[sub.ID] = sub
	s.subMu.Unlock()

	log.Info().
		Str("team", team).
		Int64("user_id", actorID).
		Str("submission_id", sub.ID).
		Msg("Drop submitted")

	s.publish(ctx, ChannelNotification, Message{Text: FormatUploaded(team)})

	c := *sub
	return &TurnResult{Status: StatusSubmitted, Team: team, Submission: &c}, nil
}

// Decide approves or declines a submission. Approval runs a turn for the
// submitting team. A submission is decided once; if the team is still
// choosing a path the submission stays pending.
func (s *TurnService) Decide(ctx context.Context, approverID int64, submissionID string, approved bool) (*TurnResult, error) {
	if !s.IsApprover(approverID) {
		return rejected("", ErrNotApprover), nil
	}

	sub, reason := s.claimSubmission(submissionID)
	if reason != nil {
		return rejected("", reason), nil
	}

	if !approved {
		res := &TurnResult{Status: StatusDeclined, Action: model.MoveDeclined, Team: sub.Team}
		log.Info().
			Str("team", sub.Team).
			Int64("approver_id", approverID).
			Str("submission_id", sub.ID).
			Msg("Drop declined")
		s.publish(ctx, ChannelNotification, Message{Text: FormatDeclined(sub.Team)})
		s.record(ctx, res, approverID)
		return res, nil
	}

	res, err := s.withTurn(ctx, sub.Team, approverID, func(b *board.Board, teams *repository.TeamRepository) (*TurnResult, error) {
		return s.approve(b, teams, sub.Team)
	})
	if err != nil || (res.Rejected() && errors.Is(res.Reason, ErrAwaitingChoice)) {
		s.releaseSubmission(sub.ID)
	}
	if err != nil {
		return nil, err
	}
	return res, nil
}

// Reroll spends a reroll token: the team goes back to where it stood before
// its last move and rolls again from there.
func (s *TurnService) Reroll(ctx context.Context, actorID int64) (*TurnResult, error) {
	return s.tokenTurn(ctx, actorID, model.MoveRerolled)
}

// Skip spends a skip token and rolls from the current tile without an approval.
func (s *TurnService) Skip(ctx context.Context, actorID int64) (*TurnResult, error) {
	return s.tokenTurn(ctx, actorID, model.MoveSkipped)
}

// ChooseFork resolves an outstanding fork prompt of the actor's team.
func (s *TurnService) ChooseFork(ctx context.Context, actorID int64, promptID, key string) (*TurnResult, error) {
	team, ok := s.TeamOf(actorID)
	if !ok {
		log.Debug().Int64("user_id", actorID).Str("prompt_id", promptID).Msg("Fork choice by non-member ignored")
		return notOnTeam(), nil
	}
	return s.choose(ctx, team, actorID, promptID, key, model.MoveChose)
}

// Submission returns a copy of a submission.
func (s *TurnService) Submission(id string) (model.Submission, bool) {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	sub, ok := s.submissions[id]
	if !ok {
		return model.Submission{}, false
	}
	return *sub, true
}

// RefreshBoard renders the board and posts it to the board channel. Failures
// are logged and returned; game state is never rolled back.
func (s *TurnService) RefreshBoard(ctx context.Context) error {
	snap := s.session.Snapshot()

	var png []byte
	var err error
	for attempt := 0; attempt <= s.cfg.RenderRetries; attempt++ {
		png, err = s.renderer.Render(snap.Tiles, snap.Config, snap.Teams)
		if err == nil {
			break
		}
		log.Warn().Err(err).Int("attempt", attempt+1).Msg("Board render failed")
	}
	if err != nil {
		return fmt.Errorf("failed to render board: %w", err)
	}

	msg := Message{File: &Attachment{Name: "game_board.png", Data: png}}
	if err := s.notifier.Publish(ctx, ChannelBoard, msg); err != nil {
		log.Warn().Err(err).Msg("Failed to publish board")
		return fmt.Errorf("failed to publish board: %w", err)
	}
	return nil
}

// CancelTimers stops every pending choice timer. Called when the session is
// replaced.
func (s *TurnService) CancelTimers() {
	s.timerMu.Lock()
	defer s.timerMu.Unlock()

	for team, t := range s.timers {
		t.Stop()
		delete(s.timers, team)
	}
}

func (s *TurnService) tokenTurn(ctx context.Context, actorID int64, action string) (*TurnResult, error) {
	team, ok := s.TeamOf(actorID)
	if !ok {
		return notOnTeam(), nil
	}

	return s.withTurn(ctx, team, actorID, func(b *board.Board, teams *repository.TeamRepository) (*TurnResult, error) {
		return s.spendToken(b, teams, team, action)
	})
}

// withTurn holds the team's turn lock for the whole event. fn decides and
// mutates under the session read lock; the result is published before the
// turn lock is released.
func (s *TurnService) withTurn(
	ctx context.Context,
	team string,
	actorID int64,
	fn func(*board.Board, *repository.TeamRepository) (*TurnResult, error),
) (*TurnResult, error) {
	var res *TurnResult
	err := s.locks.WithLockContext(ctx, team, s.cfg.LockTimeout, func() error {
		err := s.session.Read(func(b *board.Board, teams *repository.TeamRepository) error {
			var err error
			res, err = fn(b, teams)
			return err
		})
		if err != nil {
			return err
		}
		if res.Status == StatusMoved && (res.Action == model.MoveChose || res.Action == model.MoveAutoChose) {
			s.stopTimer(team)
		}
		s.finish(ctx, res, actorID)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to run turn for %s: %w", team, err)
	}
	return res, nil
}

func (s *TurnService) approve(b *board.Board, teams *repository.TeamRepository, team string) (*TurnResult, error) {
	res := &TurnResult{Action: model.MoveApproved, Team: team}

	updated, err := teams.Mutate(team, func(t *model.Team) error {
		if t.Finished {
			return res.reject(ErrTeamFinished)
		}
		if t.AwaitingChoice() {
			return res.reject(ErrAwaitingChoice)
		}

		if tile, ok := b.Tile(t.Tile); ok && tile.IsEnd() {
			t.Finished = true
			res.Status = StatusFinished
			res.Action = model.MoveFinished
			res.From, res.To = t.Tile, t.Tile
			return nil
		}

		return s.advance(b, t, model.MoveApproved, t.Tile, res)
	})
	return s.settle(b, res, updated, err)
}

func (s *TurnService) spendToken(b *board.Board, teams *repository.TeamRepository, team, action string) (*TurnResult, error) {
	res := &TurnResult{Action: action, Team: team}

	updated, err := teams.Mutate(team, func(t *model.Team) error {
		if t.Finished {
			return res.reject(ErrTeamFinished)
		}
		if t.AwaitingChoice() {
			return res.reject(ErrAwaitingChoice)
		}

		origin := t.Tile
		switch action {
		case model.MoveRerolled:
			if t.Rerolls <= 0 {
				return res.reject(ErrNoRerolls)
			}
			if t.PreviousTile == "" {
				return res.reject(ErrNothingToReroll)
			}
			t.Rerolls--
			origin = t.PreviousTile
		case model.MoveSkipped:
			if t.Skips <= 0 {
				return res.reject(ErrNoSkips)
			}
			t.Skips--
		default:
			return fmt.Errorf("unknown token action %q", action)
		}

		return s.advance(b, t, action, origin, res)
	})
	return s.settle(b, res, updated, err)
}

// advance rolls from origin and applies the outcome to t.
func (s *TurnService) advance(b *board.Board, t *model.Team, action, origin string, res *TurnResult) error {
	roll := s.roller.Roll(s.cfg.MaxRoll, b.CanAdvance(origin, s.bonusValue()))

	out, err := board.Resolve(b, origin, roll)
	if err != nil {
		return err
	}

	res.From = origin
	res.Roll = roll
	res.MustHit = out.MustHit
	t.LastRoll = out.Roll

	switch out.Kind {
	case board.NoMove:
		t.Tile = origin
		res.Status = StatusNoMove
		res.To = origin
		log.Debug().
			Str("team", t.Name).
			Str("from", origin).
			Int("roll", roll).
			Msg("No path for roll")

	case board.Deterministic:
		t.PreviousTile = origin
		t.Tile = out.Destination
		res.Status = StatusMoved
		res.To = out.Destination

	case board.Fork:
		if len(out.Dropped) > 0 {
			log.Warn().
				Str("team", t.Name).
				Str("from", origin).
				Int("roll", roll).
				Strs("dropped", out.Dropped).
				Msg("Fork has more destinations than choice keys")
		}
		t.Tile = origin
		t.Pending = &model.PendingChoice{
			PromptID:  s.newID(),
			Action:    action,
			Origin:    origin,
			Roll:      roll,
			Options:   out.Options,
			CreatedAt: s.now(),
		}
		res.Status = StatusAwaitingChoice
		res.To = origin
		res.PromptID = t.Pending.PromptID
		res.Options = out.Options
	}
	return nil
}

func (s *TurnService) choose(ctx context.Context, team string, actorID int64, promptID, key, kind string) (*TurnResult, error) {
	return s.withTurn(ctx, team, actorID, func(b *board.Board, teams *repository.TeamRepository) (*TurnResult, error) {
		res := &TurnResult{Action: kind, Team: team}

		updated, err := teams.Mutate(team, func(t *model.Team) error {
			if t.Pending == nil || t.Pending.PromptID != promptID {
				return res.reject(ErrStalePrompt)
			}
			opt, ok := t.Pending.Option(key)
			if !ok {
				log.Warn().
					Str("team", team).
					Str("prompt_id", promptID).
					Str("key", key).
					Msg("Unknown choice key ignored")
				return res.reject(ErrUnknownChoice)
			}

			t.PreviousTile = t.Pending.Origin
			t.Tile = opt.Tile
			res.From = t.Pending.Origin
			res.To = opt.Tile
			res.Roll = t.Pending.Roll
			res.PromptID = promptID
			res.Status = StatusMoved
			t.Pending = nil
			return nil
		})
		return s.settle(b, res, updated, err)
	})
}

// settle fills display fields from the committed team and converts a
// rejection into a result.
func (s *TurnService) settle(b *board.Board, res *TurnResult, updated model.Team, err error) (*TurnResult, error) {
	switch {
	case errors.Is(err, errRejected):
		res.Status = StatusRejected
	case errors.Is(err, repository.ErrTeamNotFound):
		res.Status = StatusRejected
		res.Reason = repository.ErrTeamNotFound
	case err != nil:
		return nil, err
	}

	res.Rerolls = updated.Rerolls
	res.Skips = updated.Skips
	res.FromName = tileName(b, res.From)
	res.ToName = tileName(b, res.To)
	for _, o := range res.Options {
		res.OptionName = append(res.OptionName, tileName(b, o.Tile))
	}
	return res, nil
}

// finish publishes the committed result: announcement or prompt, journal
// entry and board refresh. Rejections publish nothing.
func (s *TurnService) finish(ctx context.Context, res *TurnResult, actorID int64) {
	if res.Rejected() {
		log.Debug().
			Str("team", res.Team).
			Str("action", res.Action).
			AnErr("reason", res.Reason).
			Msg("Turn rejected")
		return
	}

	// Announce even if the triggering request is cancelled; the move is committed.
	ctx = context.WithoutCancel(ctx)

	log.Info().
		Str("team", res.Team).
		Str("action", res.Action).
		Str("status", res.Status.String()).
		Str("from", res.From).
		Str("to", res.To).
		Int("roll", res.Roll).
		Int64("actor_id", actorID).
		Msg("Turn committed")

	if res.Status == StatusAwaitingChoice {
		s.publish(ctx, ChannelNotification, ForkPrompt(res))
		s.startTimer(res.Team, res.PromptID, res.Options)
		return
	}

	s.publish(ctx, ChannelNotification, Message{Text: FormatAnnouncement(res)})
	s.record(ctx, res, actorID)
	_ = s.RefreshBoard(ctx)
}

func (s *TurnService) record(ctx context.Context, res *TurnResult, actorID int64) {
	kind := res.Action
	if res.Status == StatusNoMove {
		kind = model.MoveNoMove
	}
	m := &model.Move{
		Team:     res.Team,
		Kind:     kind,
		FromTile: res.From,
		ToTile:   res.To,
		Roll:     res.Roll,
		ActorID:  actorID,
	}
	if err := s.journal.Record(ctx, m); err != nil {
		log.Warn().Err(err).Str("team", res.Team).Msg("Failed to record move")
	}
}

func (s *TurnService) publish(ctx context.Context, kind ChannelKind, msg Message) {
	if err := s.notifier.Publish(ctx, kind, msg); err != nil {
		log.Warn().Err(err).Str("channel", string(kind)).Msg("Failed to publish message")
	}
}

func (s *TurnService) startTimer(team, promptID string, options []model.ForkOption) {
	if s.cfg.ChoiceTimeout <= 0 || len(options) == 0 {
		return
	}
	key := options[0].Key

	s.timerMu.Lock()
	defer s.timerMu.Unlock()

	if old, ok := s.timers[team]; ok {
		old.Stop()
	}
	s.timers[team] = time.AfterFunc(s.cfg.ChoiceTimeout, func() {
		res, err := s.choose(context.Background(), team, 0, promptID, key, model.MoveAutoChose)
		if err != nil {
			log.Warn().Err(err).Str("team", team).Msg("Automatic fork choice failed")
			return
		}
		if res.Rejected() {
			log.Debug().Str("team", team).Str("prompt_id", promptID).Msg("Choice timer fired for stale prompt")
		}
	})
}

func (s *TurnService) stopTimer(team string) {
	s.timerMu.Lock()
	defer s.timerMu.Unlock()

	if t, ok := s.timers[team]; ok {
		t.Stop()
		delete(s.timers, team)
	}
}

func (s *TurnService) claimSubmission(id string) (*model.Submission, error) {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	sub, ok := s.submissions[id]
	if !ok {
		return nil, ErrSubmissionNotFound
	}
	if sub.Decided {
		return nil, ErrAlreadyDecided
	}
	sub.Decided = true
	c := *sub
	return &c, nil
}

func (s *TurnService) releaseSubmission(id string) {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	if sub, ok := s.submissions[id]; ok {
		sub.Decided = false
	}
}

func (s *TurnService) bonusValue() int {
	if s.cfg.BonusValue > 0 {
		return s.cfg.BonusValue
	}
	return s.cfg.MaxRoll + 1
}

func (r *TurnResult) reject(reason error) error {
	r.Status = StatusRejected
	r.Reason = reason
	return errRejected
}

func rejected(team string, reason error) *TurnResult {
	return &TurnResult{Status: StatusRejected, Team: team, Reason: reason}
}

func notOnTeam() *TurnResult {
	return &TurnResult{Status: StatusNotOnTeam, Reason: ErrNotOnTeam}
}
