package native

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/macrokit/macrokit/pkg/macro"
)

func TestDecoder_SingleMessage(t *testing.T) {
	var d Decoder
	d.Feed(Encode([]byte("hello")))

	body, err := d.Next()
	require.NoError(t, err)
	assert.Equal(t, "hello", string(body))
	assert.Zero(t, d.Buffered())
}

func TestDecoder_PartialHeader(t *testing.T) {
	var d Decoder
	frame := Encode([]byte("payload"))

	d.Feed(frame[:2])
	_, err := d.Next()
	assert.ErrorIs(t, err, ErrNeedMoreData)

	d.Feed(frame[2:])
	body, err := d.Next()
	require.NoError(t, err)
	assert.Equal(t, "payload", string(body))
}

func TestDecoder_PartialBodyByteByByte(t *testing.T) {
	var d Decoder
	frame := Encode([]byte("abc"))

	for i := 0; i < len(frame)-1; i++ {
		d.Feed(frame[i : i+1])
		_, err := d.Next()
		assert.ErrorIs(t, err, ErrNeedMoreData)
	}
	d.Feed(frame[len(frame)-1:])

	body, err := d.Next()
	require.NoError(t, err)
	assert.Equal(t, "abc", string(body))
}

func TestDecoder_MultipleMessagesInOneFeed(t *testing.T) {
	var d Decoder
	var wire []byte
	wire = append(wire, Encode([]byte("one"))...)
	wire = append(wire, Encode([]byte("two"))...)
	d.Feed(wire)

	body, err := d.Next()
	require.NoError(t, err)
	assert.Equal(t, "one", string(body))

	body, err = d.Next()
	require.NoError(t, err)
	assert.Equal(t, "two", string(body))

	_, err = d.Next()
	assert.ErrorIs(t, err, ErrNeedMoreData)
}

func TestDecoder_EmptyBody(t *testing.T) {
	var d Decoder
	d.Feed(Encode(nil))

	body, err := d.Next()
	require.NoError(t, err)
	assert.Empty(t, body)
}

func TestDecoder_OversizedLengthIsAnError(t *testing.T) {
	var d Decoder
	header := make([]byte, HeaderSize)
	binary.LittleEndian.PutUint32(header, MaxMessageSize+1)
	d.Feed(header)

	_, err := d.Next()
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNeedMoreData)
}

func TestEncode_LittleEndianHeader(t *testing.T) {
	frame := Encode([]byte("abcd"))
	require.Len(t, frame, HeaderSize+4)
	assert.Equal(t, []byte{4, 0, 0, 0}, frame[:HeaderSize])
	assert.Equal(t, "abcd", string(frame[HeaderSize:]))
}

// channelPlayer is a scripted Player for channel tests.
type channelPlayer struct {
	played  []string
	vars    map[string]string
	extract string
	stopped bool
	fail    bool
}

func (p *channelPlayer) Play(name string, timeout time.Duration) (macro.MacroResult, error) {
	p.played = append(p.played, name)
	if p.fail {
		return macro.MacroResult{}, fmt.Errorf("player unavailable")
	}
	return macro.MacroResult{Success: true, Code: macro.ErrOK, Extract: p.extract}, nil
}

func (p *channelPlayer) SetVariable(name, value string) {
	if p.vars == nil {
		p.vars = make(map[string]string)
	}
	p.vars[name] = value
}

func (p *channelPlayer) LastExtract() string { return p.extract }
func (p *channelPlayer) LastError() string   { return "OK" }
func (p *channelPlayer) Stop()               { p.stopped = true }

// roundTrip serves a sequence of messages through a channel and decodes
// the replies.
func roundTrip(t *testing.T, player Player, msgs ...Message) []Reply {
	t.Helper()

	var in bytes.Buffer
	for _, msg := range msgs {
		body, err := json.Marshal(msg)
		require.NoError(t, err)
		in.Write(Encode(body))
	}

	var out bytes.Buffer
	require.NoError(t, NewChannel(player, nil).Serve(&in, &out))

	var replies []Reply
	var dec Decoder
	dec.Feed(out.Bytes())
	for {
		body, err := dec.Next()
		if err != nil {
			break
		}
		var reply Reply
		require.NoError(t, json.Unmarshal(body, &reply))
		replies = append(replies, reply)
	}
	return replies
}

func TestChannel_PlayRoundTrip(t *testing.T) {
	player := &channelPlayer{extract: "data"}
	replies := roundTrip(t, player, Message{Type: "play", Name: "demo", TimeoutMS: 1000})

	require.Len(t, replies, 1)
	assert.True(t, replies[0].OK)
	assert.Equal(t, "OK", replies[0].Code)
	assert.Equal(t, "data", replies[0].Data)
	assert.Equal(t, []string{"demo"}, player.played)
}

func TestChannel_SetStopAndQueries(t *testing.T) {
	player := &channelPlayer{extract: "x"}
	replies := roundTrip(t, player,
		Message{Type: "set", Name: "!VAR1", Value: "3"},
		Message{Type: "lastExtract"},
		Message{Type: "lastError"},
		Message{Type: "stop"},
	)

	require.Len(t, replies, 4)
	assert.True(t, replies[0].OK)
	assert.Equal(t, "3", player.vars["!VAR1"])
	assert.Equal(t, "x", replies[1].Data)
	assert.Equal(t, "OK", replies[2].Data)
	assert.True(t, player.stopped)
}

func TestChannel_PlayFailure(t *testing.T) {
	player := &channelPlayer{fail: true}
	replies := roundTrip(t, player, Message{Type: "play", Name: "demo"})

	require.Len(t, replies, 1)
	assert.False(t, replies[0].OK)
	assert.Equal(t, "SCRIPT_ERROR", replies[0].Code)
}

func TestChannel_UnknownType(t *testing.T) {
	replies := roundTrip(t, &channelPlayer{}, Message{Type: "dance"})
	require.Len(t, replies, 1)
	assert.False(t, replies[0].OK)
	assert.Equal(t, "UNKNOWN_COMMAND", replies[0].Code)
}

func TestChannel_MalformedBodyReports(t *testing.T) {
	var in bytes.Buffer
	in.Write(Encode([]byte("{not json")))

	var out bytes.Buffer
	require.NoError(t, NewChannel(&channelPlayer{}, nil).Serve(&in, &out))

	var dec Decoder
	dec.Feed(out.Bytes())
	body, err := dec.Next()
	require.NoError(t, err)

	var reply Reply
	require.NoError(t, json.Unmarshal(body, &reply))
	assert.False(t, reply.OK)
	assert.Equal(t, "SYNTAX_ERROR", reply.Code)
}
