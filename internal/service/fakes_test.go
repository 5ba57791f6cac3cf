package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"tile-race-bot/internal/game/board"
	"tile-race-bot/internal/game/dice"
	"tile-race-bot/internal/model"
	"tile-race-bot/internal/repository"
)

const (
	approverID int64 = 900
	redMember  int64 = 1
	blueMember int64 = 2
	outsider   int64 = 77
)

type published struct {
	kind ChannelKind
	msg  Message
}

type fakeNotifier struct {
	mu   sync.Mutex
	msgs []published
	err  error
}

func (n *fakeNotifier) Publish(_ context.Context, kind ChannelKind, msg Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.msgs = append(n.msgs, published{kind: kind, msg: msg})
	return nil
}

func (n *fakeNotifier) on(kind ChannelKind) []Message {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []Message
	for _, p := range n.msgs {
		if p.kind == kind {
			out = append(out, p.msg)
		}
	}
	return out
}

func (n *fakeNotifier) last(kind ChannelKind) Message {
	msgs := n.on(kind)
	if len(msgs) == 0 {
		return Message{}
	}
	return msgs[len(msgs)-1]
}

type fakeRenderer struct {
	mu    sync.Mutex
	calls int
	fail  bool
}

func (r *fakeRenderer) Render(tiles map[string]model.Tile, _ model.BoardConfig, teams []model.Team) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if r.fail {
		return nil, errors.New("disk full")
	}
	return []byte(fmt.Sprintf("board:%d:%d", len(tiles), len(teams))), nil
}

func (r *fakeRenderer) RenderGrid(tiles map[string]model.Tile, _ model.BoardConfig) ([]byte, error) {
	return []byte(fmt.Sprintf("grid:%d", len(tiles))), nil
}

func (r *fakeRenderer) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

// chainDataset builds tile0 -> ... -> tile{n-1} with Red and Blue on tile0.
func chainDataset(n int) *model.Dataset {
	tiles := make(map[string]model.Tile, n)
	for i := 0; i < n; i++ {
		t := model.Tile{Name: fmt.Sprintf("Tile %d", i)}
		if i < n-1 {
			t.Next = []string{fmt.Sprintf("tile%d", i+1)}
		}
		tiles[fmt.Sprintf("tile%d", i)] = t
	}
	return &model.Dataset{
		Board: model.DefaultBoardConfig(),
		Tiles: tiles,
		Teams: map[string]model.Team{
			"Red":  {Members: []int64{redMember}, Tile: "tile0"},
			"Blue": {Members: []int64{blueMember}, Tile: "tile0"},
		},
	}
}

// graphDataset builds tiles from an adjacency list with Red on start.
func graphDataset(adj map[string][]string, start string) *model.Dataset {
	tiles := make(map[string]model.Tile)
	for id, next := range adj {
		tiles[id] = model.Tile{Name: id, Next: next}
		for _, n := range next {
			if _, ok := adj[n]; !ok {
				tiles[n] = model.Tile{Name: n}
			}
		}
	}
	return &model.Dataset{
		Board: model.DefaultBoardConfig(),
		Tiles: tiles,
		Teams: map[string]model.Team{
			"Red": {Members: []int64{redMember}, Tile: start},
		},
	}
}

type testEnv struct {
	svc      *TurnService
	session  *Session
	roller   *dice.Fixed
	notifier *fakeNotifier
	renderer *fakeRenderer
	journal  *repository.MemoryJournal
}

func newTestEnv(t *testing.T, ds *model.Dataset, cfg TurnConfig, rolls ...int) *testEnv {
	t.Helper()

	session, err := NewSession(ds)
	require.NoError(t, err)

	if cfg.Approvers == nil {
		cfg.Approvers = []int64{approverID}
	}
	if cfg.MaxRoll == 0 {
		cfg.MaxRoll = 3
	}

	env := &testEnv{
		session:  session,
		roller:   dice.NewFixed(rolls...),
		notifier: &fakeNotifier{},
		renderer: &fakeRenderer{},
		journal:  repository.NewMemoryJournal(100),
	}
	env.svc = NewTurnService(session, env.roller, env.notifier, env.renderer, env.journal, cfg)

	var n int
	var mu sync.Mutex
	env.svc.newID = func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("id-%d", n)
	}
	return env
}

func (e *testEnv) team(t *testing.T, name string) model.Team {
	t.Helper()
	var team model.Team
	err := e.session.Read(func(_ *board.Board, teams *repository.TeamRepository) error {
		var err error
		team, err = teams.Get(name)
		return err
	})
	require.NoError(t, err)
	return team
}

// approve submits a drop for actor and approves it.
func (e *testEnv) approve(t *testing.T, actor int64) *TurnResult {
	t.Helper()
	ctx := context.Background()

	sub, err := e.svc.SubmitUpload(ctx, actor)
	require.NoError(t, err)
	require.Equal(t, StatusSubmitted, sub.Status)

	res, err := e.svc.Decide(ctx, approverID, sub.Submission.ID, true)
	require.NoError(t, err)
	return res
}

func (e *testEnv) setTeam(t *testing.T, name string, fn func(*model.Team)) {
	t.Helper()
	err := e.session.Read(func(_ *board.Board, teams *repository.TeamRepository) error {
		_, err := teams.Mutate(name, func(team *model.Team) error {
			fn(team)
			return nil
		})
		return err
	})
	require.NoError(t, err)
}

// recordingRoller always rolls 1 and remembers each bonus flag it was given.
type recordingRoller struct {
	mu       sync.Mutex
	eligible []bool
}

func (r *recordingRoller) Roll(_ int, bonusEligible bool) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.eligible = append(r.eligible, bonusEligible)
	return 1
}

func (r *recordingRoller) last() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.eligible[len(r.eligible)-1]
}
