// Package query asks a running game server for its status over the Source
// engine query protocol (A2S) and renders the result for an operator.
package query

import (
	"context"
	"fmt"
	"io"
	"net"
	"sort"
	"strconv"
	"time"

	"github.com/rumblefrog/go-a2s"
)

// Player is one entry of the server's player list.
type Player struct {
	Name     string
	Score    int
	Duration time.Duration
}

// Status combines the A2S_INFO and A2S_PLAYER responses.
type Status struct {
	Name       string
	Map        string
	Players    int
	MaxPlayers int
	Bots       int
	Roster     []Player
}

// Querier fetches the status of the server listening at addr ("ip:port").
type Querier interface {
	Query(ctx context.Context, addr string) (*Status, error)
}

// Addr joins an IP and port into the address form Query expects.
func Addr(ip string, port int) string {
	return net.JoinHostPort(ip, strconv.Itoa(port))
}

// A2S implements Querier with github.com/rumblefrog/go-a2s.
type A2S struct {
	// Timeout bounds each UDP exchange. Zero uses the client library default.
	Timeout time.Duration
}

// Query implements Querier. A context deadline shorter than Timeout takes
// precedence.
func (q A2S) Query(ctx context.Context, addr string) (*Status, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var opts []func(*a2s.Client) error
	if timeout := q.timeout(ctx); timeout > 0 {
		opts = append(opts, a2s.TimeoutOption(timeout))
	}

	client, err := a2s.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create query client for %s: %w", addr, err)
	}
	defer client.Close()

	info, err := client.QueryInfo()
	if err != nil {
		return nil, fmt.Errorf("failed to query server info from %s: %w", addr, err)
	}
	players, err := client.QueryPlayer()
	if err != nil {
		return nil, fmt.Errorf("failed to query player list from %s: %w", addr, err)
	}
	return fromA2S(info, players), nil
}

func (q A2S) timeout(ctx context.Context) time.Duration {
	timeout := q.Timeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); timeout == 0 || remaining < timeout {
			timeout = remaining
		}
	}
	return timeout
}

func fromA2S(info *a2s.ServerInfo, players *a2s.PlayerInfo) *Status {
	status := &Status{
		Name:       info.Name,
		Map:        info.Map,
		Players:    int(info.Players),
		MaxPlayers: int(info.MaxPlayers),
		Bots:       int(info.Bots),
	}
	if players == nil {
		return status
	}
	for _, p := range players.Players {
		if p == nil {
			continue
		}
		status.Roster = append(status.Roster, Player{
			Name: p.Name,
			// A2S carries the score as a signed 32-bit value.
			Score:    int(int32(p.Score)),
			Duration: time.Duration(float64(p.Duration) * float64(time.Second)),
		})
	}
	return status
}

// SortByScore returns the roster ordered by score, highest first. Players
// with equal scores keep the order the server reported them in.
func SortByScore(roster []Player) []Player {
	sorted := append([]Player(nil), roster...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Score > sorted[j].Score
	})
	return sorted
}

// Render writes the status table:
//
//	<server name>: <current>/<max> players
//	  <score>  <player name>
//
// with one player line per roster entry, highest score first.
func Render(w io.Writer, status *Status) error {
	if _, err := fmt.Fprintf(w, "%s: %d/%d players\n", status.Name, status.Players, status.MaxPlayers); err != nil {
		return err
	}
	for _, p := range SortByScore(status.Roster) {
		if _, err := fmt.Fprintf(w, "  %4d  %s\n", p.Score, p.Name); err != nil {
			return err
		}
	}
	return nil
}
