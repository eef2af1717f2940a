package native

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/macrokit/macrokit/pkg/logging"
	"github.com/macrokit/macrokit/pkg/macro"
)

// Message is the JSON envelope carried over the channel.
type Message struct {
	Type      string `json:"type"` // "play", "set", "stop", "lastExtract", "lastError"
	Name      string `json:"name,omitempty"`
	Value     string `json:"value,omitempty"`
	TimeoutMS int    `json:"timeout_ms,omitempty"`
}

// Reply is the JSON response envelope.
type Reply struct {
	OK      bool   `json:"ok"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
	Data    string `json:"data,omitempty"`
}

// Player is the macro runtime surface the channel drives.
type Player interface {
	Play(name string, timeout time.Duration) (macro.MacroResult, error)
	SetVariable(name, value string)
	LastExtract() string
	LastError() string
	Stop()
}

// Channel serves framed messages from r and writes framed replies to w
// until r is exhausted. Partial reads are accumulated; only a framing
// violation (oversized length, malformed JSON) terminates the channel.
type Channel struct {
	player Player
	log    *logging.Logger
}

// NewChannel creates a channel bound to a player. The logger may be
// nil.
func NewChannel(player Player, log *logging.Logger) *Channel {
	return &Channel{player: player, log: log}
}

// Serve pumps messages until EOF.
func (c *Channel) Serve(r io.Reader, w io.Writer) error {
	var dec Decoder
	chunk := make([]byte, 4096)

	for {
		for {
			body, err := dec.Next()
			if err == ErrNeedMoreData {
				break
			}
			if err != nil {
				return err
			}
			if err := c.handle(body, w); err != nil {
				return err
			}
		}

		n, err := r.Read(chunk)
		if n > 0 {
			dec.Feed(chunk[:n])
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("native: read failed: %w", err)
		}
	}
}

func (c *Channel) handle(body []byte, w io.Writer) error {
	var msg Message
	if err := json.Unmarshal(body, &msg); err != nil {
		return c.reply(w, Reply{Code: "SYNTAX_ERROR", Message: "malformed message body"})
	}
	if c.log != nil {
		c.log.Debugf("native message: %s %s", msg.Type, msg.Name)
	}

	switch msg.Type {
	case "play":
		timeout := time.Duration(msg.TimeoutMS) * time.Millisecond
		result, err := c.player.Play(msg.Name, timeout)
		if err != nil {
			return c.reply(w, Reply{Code: "SCRIPT_ERROR", Message: err.Error()})
		}
		return c.reply(w, Reply{
			OK:      result.Success,
			Code:    result.Code.String(),
			Message: result.Message,
			Data:    result.Extract,
		})

	case "set":
		c.player.SetVariable(msg.Name, msg.Value)
		return c.reply(w, Reply{OK: true})

	case "stop":
		c.player.Stop()
		return c.reply(w, Reply{OK: true})

	case "lastExtract":
		return c.reply(w, Reply{OK: true, Data: c.player.LastExtract()})

	case "lastError":
		return c.reply(w, Reply{OK: true, Data: c.player.LastError()})

	default:
		return c.reply(w, Reply{Code: "UNKNOWN_COMMAND", Message: fmt.Sprintf("unknown message type %q", msg.Type)})
	}
}

func (c *Channel) reply(w io.Writer, reply Reply) error {
	body, err := json.Marshal(reply)
	if err != nil {
		return fmt.Errorf("native: failed to encode reply: %w", err)
	}
	if _, err := w.Write(Encode(body)); err != nil {
		return fmt.Errorf("native: write failed: %w", err)
	}
	return nil
}
