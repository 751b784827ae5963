package main

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"time"

	"restaurant-hub/domain"

	"github.com/goccy/go-json"
	"github.com/gookit/color"
	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"
)

func listenCmd(cfg *Config) *cobra.Command {
	var rooms []string
	cmd := &cobra.Command{
		Use:   "listen",
		Short: "Join rooms and print every frame received",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			return listen(ctx, cmd.OutOrStdout(), cfg, rooms)
		},
	}
	cmd.Flags().StringArrayVar(&rooms, "room", nil, "room to join, repeatable (order:42, staff, table:7)")
	cmd.Flags().StringVar(&cfg.Token, "token", cfg.Token, "client token, anonymous when empty")
	return cmd
}

func listen(ctx context.Context, out io.Writer, cfg *Config, rooms []string) error {
	endpoint, err := socketURL(cfg.URL, cfg.Token)
	if err != nil {
		return err
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", endpoint, err)
	}
	defer conn.Close()
	go func() {
		<-ctx.Done()
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		_ = conn.Close()
	}()

	for i, room := range rooms {
		command, err := json.Marshal(map[string]string{
			"verb": string(domain.VerbJoinRoom),
			"ref":  fmt.Sprintf("join-%d", i+1),
			"room": room,
		})
		if err != nil {
			return err
		}
		if err := conn.WriteMessage(websocket.TextMessage, command); err != nil {
			return fmt.Errorf("join %s: %w", room, err)
		}
	}

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return nil
			}
			return err
		}
		fmt.Fprintln(out, formatFrame(raw, cfg.Colours))
	}
}

// socketURL turns the HTTP base URL into the socket endpoint.
func socketURL(base, token string) (string, error) {
	u, err := url.Parse(strings.TrimSuffix(base, "/"))
	if err != nil {
		return "", fmt.Errorf("invalid hub url %q: %w", base, err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http", "":
		u.Scheme = "ws"
	}
	u.Path += "/ws"
	if token != "" {
		q := u.Query()
		q.Set("token", token)
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

// formatFrame prints events as "type payload" and replies as
// "verb ok|error". Anything else is printed as is.
func formatFrame(raw []byte, colours bool) string {
	var frame struct {
		Type    string          `json:"type"`
		Payload json.RawMessage `json:"payload"`
		Verb    string          `json:"verb"`
		OK      bool            `json:"ok"`
		Error   *struct {
			Kind    string `json:"kind"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(raw, &frame); err != nil {
		return string(raw)
	}

	paint := func(c color.Color, s string) string {
		if !colours {
			return s
		}
		return c.Render(s)
	}
	switch {
	case frame.Type != "":
		return paint(color.FgCyan, frame.Type) + " " + string(frame.Payload)
	case frame.Verb != "" && frame.OK:
		return paint(color.FgGreen, frame.Verb+" ok")
	case frame.Verb != "" && frame.Error != nil:
		return paint(color.FgRed, frame.Verb+" "+frame.Error.Kind) + " " + frame.Error.Message
	default:
		return string(raw)
	}
}
