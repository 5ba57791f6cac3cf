package loader

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"tile-race-bot/internal/model"
)

// DefaultSheetTimeout bounds both CSV downloads together.
const DefaultSheetTimeout = 30 * time.Second

// SheetBoardConfig returns the board settings used for sheet imports before
// the config file's board block is merged in.
func SheetBoardConfig() model.BoardConfig {
	return model.BoardConfig{
		TileSize:   100,
		PlayerSize: 60,
		Width:      1600,
		Height:     900,
	}
}

// SheetProvider loads tiles and teams from two published CSV exports.
type SheetProvider struct {
	TilesURL  string
	TeamsURL  string
	BoardPath string // game config file to take board settings from
	Client    *http.Client
	Timeout   time.Duration
}

// Load downloads both sheets concurrently, parses and validates them.
func (p *SheetProvider) Load(ctx context.Context) (*model.Dataset, error) {
	if p.TilesURL == "" || p.TeamsURL == "" {
		return nil, ErrNotConfigured
	}

	timeout := p.Timeout
	if timeout <= 0 {
		timeout = DefaultSheetTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var tileRows, teamRows []map[string]string
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rows, err := p.fetch(gctx, p.TilesURL)
		if err != nil {
			return fmt.Errorf("tiles sheet: %w", err)
		}
		tileRows = rows
		return nil
	})
	g.Go(func() error {
		rows, err := p.fetch(gctx, p.TeamsURL)
		if err != nil {
			return fmt.Errorf("teams sheet: %w", err)
		}
		teamRows = rows
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	tiles, err := parseTileRows(tileRows)
	if err != nil {
		return nil, err
	}
	teams, err := parseTeamRows(teamRows)
	if err != nil {
		return nil, err
	}

	ds, err := normalize(boardFromFile(p.BoardPath, SheetBoardConfig()), tiles, teams)
	if err != nil {
		return nil, err
	}

	log.Info().
		Int("tiles", len(ds.Tiles)).
		Int("teams", len(ds.Teams)).
		Msg("Sheet loaded")

	return ds, nil
}

func (p *SheetProvider) fetch(ctx context.Context, url string) ([]map[string]string, error) {
	client := p.Client
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download: status %d", resp.StatusCode)
	}
	return readCSV(resp.Body)
}

// readCSV reads a CSV with a header row into one map per record.
func readCSV(r io.Reader) ([]map[string]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse csv: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	header := records[0]
	for i, h := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}

	rows := make([]map[string]string, 0, len(records)-1)
	for _, rec := range records[1:] {
		row := make(map[string]string, len(header))
		for i, h := range header {
			if i < len(rec) {
				row[h] = strings.TrimSpace(rec[i])
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func parseTileRows(rows []map[string]string) (map[string]rawTile, error) {
	tiles := make(map[string]rawTile, len(rows))
	for idx, row := range rows {
		// Sheet rows are 1-based and the first one is the header.
		line := idx + 2

		r, errR := strconv.Atoi(row["row"])
		c, errC := strconv.Atoi(row["col"])
		if errR != nil || errC != nil {
			return nil, fmt.Errorf("row %d: invalid row/col %q / %q: %w", line, row["row"], row["col"], ErrInvalidRow)
		}

		points := 1
		if s := row["points"]; s != "" {
			n, err := strconv.Atoi(s)
			if err != nil {
				return nil, fmt.Errorf("row %d: invalid points %q: %w", line, s, ErrInvalidRow)
			}
			points = n
		}

		var next []string
		for _, n := range strings.Split(row["nextTiles"], ",") {
			if n = strings.TrimSpace(n); n != "" {
				next = append(next, n)
			}
		}

		tiles[fmt.Sprintf("tile%d", idx)] = rawTile{
			Name:        row["item-name"],
			Description: row["tile-desc"],
			Picture:     row["item-picture"],
			Coords:      [2]int{r, c},
			Next:        next,
			Points:      &points,
			MustHit:     parseBool(row["must-hit"]),
		}
	}
	return tiles, nil
}

func parseTeamRows(rows []map[string]string) (map[string]rawTeam, error) {
	teams := make(map[string]rawTeam, len(rows))
	for _, row := range rows {
		name := row["team-name"]
		if name == "" {
			continue
		}

		rerolls, err := atoiDefault(row["rerolls"])
		if err != nil {
			return nil, fmt.Errorf("team %s: invalid rerolls: %w", name, err)
		}
		skips, err := atoiDefault(row["skips"])
		if err != nil {
			return nil, fmt.Errorf("team %s: invalid skips: %w", name, err)
		}

		var members []memberID
		for _, m := range strings.Split(row["member-ids"], ";") {
			if m = strings.TrimSpace(m); m != "" {
				members = append(members, memberID(m))
			}
		}

		teams[name] = rawTeam{
			Name:    name,
			Members: members,
			Tile:    row["startTile"],
			Rerolls: rerolls,
			Skips:   skips,
		}
	}
	return teams, nil
}

func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes":
		return true
	}
	return false
}

func atoiDefault(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.Atoi(s)
}
