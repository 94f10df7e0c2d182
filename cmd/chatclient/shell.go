package main

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/c-bata/go-prompt"
	"github.com/go-resty/resty/v2"

	"github.com/nexmeet/nexmeet-chat/internal/connection"
	"github.com/nexmeet/nexmeet-chat/internal/match"
	"github.com/nexmeet/nexmeet-chat/internal/session"
)

var errNoPartner = errors.New("no partner yet, wait for a match or type /next")

// chatter is what the shell drives. *client implements it.
type chatter interface {
	FindPartner(f match.Filters) error
	Next() error
	Send(text string) error
	ID() string
	Partner() string
}

// shell executes prompt lines.
type shell struct {
	client  chatter
	out     io.Writer
	statsFn func() (serverStats, error) // nil = stats unavailable
	quit    bool
}

var commands = []prompt.Suggest{
	{Text: "/find", Description: "search again: /find country=US state=CA interest=music"},
	{Text: "/next", Description: "leave this partner and search with the same filters"},
	{Text: "/stats", Description: "show server statistics"},
	{Text: "/whoami", Description: "show your connection id and partner"},
	{Text: "/help", Description: "show commands"},
	{Text: "/quit", Description: "disconnect and exit"},
}

func complete(d prompt.Document) []prompt.Suggest {
	before := d.TextBeforeCursor()
	if !strings.HasPrefix(before, "/") || strings.Contains(before, " ") {
		return nil
	}
	return prompt.FilterHasPrefix(commands, d.GetWordBeforeCursor(), true)
}

func (s *shell) execute(line string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}

	if !strings.HasPrefix(line, "/") {
		if err := s.client.Send(line); err != nil {
			fmt.Fprintln(s.out, "error:", err)
		}
		return
	}

	fields := strings.Fields(line)
	switch fields[0] {
	case "/find":
		f, err := parseFilters(fields[1:])
		if err != nil {
			fmt.Fprintln(s.out, "error:", err)
			return
		}
		s.report(s.client.FindPartner(f))
	case "/next":
		s.report(s.client.Next())
	case "/stats":
		s.printStats()
	case "/whoami":
		partner := s.client.Partner()
		if partner == "" {
			partner = "(none)"
		}
		fmt.Fprintf(s.out, "id=%s partner=%s\n", s.client.ID(), partner)
	case "/help":
		for _, c := range commands {
			fmt.Fprintf(s.out, "%-10s %s\n", c.Text, c.Description)
		}
	case "/quit", "/exit":
		s.quit = true
	default:
		fmt.Fprintf(s.out, "unknown command %s, type /help\n", fields[0])
	}
}

func (s *shell) report(err error) {
	if err != nil {
		fmt.Fprintln(s.out, "error:", err)
	}
}

func (s *shell) printStats() {
	if s.statsFn == nil {
		fmt.Fprintln(s.out, "stats unavailable")
		return
	}
	st, err := s.statsFn()
	if err != nil {
		fmt.Fprintln(s.out, "error:", err)
		return
	}
	fmt.Fprintf(s.out, "server=%s waiting=%d sessions=%d connected=%d\n",
		st.Instance, st.Pairing.Waiting, st.Pairing.Sessions, st.Connections.Connected)
}

// parseFilters reads key=value pairs. Unset keys mean any.
func parseFilters(args []string) (match.Filters, error) {
	var f match.Filters
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok {
			return match.Filters{}, fmt.Errorf("expected key=value, got %q", arg)
		}
		switch strings.ToLower(key) {
		case "country":
			f.Country = value
		case "state":
			f.State = value
		case "interest":
			f.Interest = value
		default:
			return match.Filters{}, fmt.Errorf("unknown filter %q", key)
		}
	}
	return f, nil
}

// serverStats is the subset of GET /stats the client shows.
type serverStats struct {
	Instance    string                  `json:"instance"`
	Pairing     session.Stats           `json:"pairing"`
	Connections connection.ManagerStats `json:"connections"`
}

// statsURL derives the HTTP base URL from the websocket URL.
func statsURL(wsURL string) (string, error) {
	u, err := url.Parse(wsURL)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "ws":
		u.Scheme = "http"
	case "wss":
		u.Scheme = "https"
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	u.Path = ""
	u.RawQuery = ""
	return u.String(), nil
}

// newStatsFetcher returns a function that reads GET /stats from baseURL.
func newStatsFetcher(baseURL string) func() (serverStats, error) {
	rc := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(5 * time.Second)

	return func() (serverStats, error) {
		var st serverStats
		resp, err := rc.R().
			SetHeader("Accept", "application/json").
			SetResult(&st).
			Get("/stats")
		if err != nil {
			return serverStats{}, err
		}
		if resp.IsError() {
			return serverStats{}, fmt.Errorf("stats: %s", resp.Status())
		}
		return st, nil
	}
}
