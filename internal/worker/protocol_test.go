package worker

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	out := NewConn(strings.NewReader(""), &buf)

	require.NoError(t, out.Send(Frame{Type: FrameHello, Contract: ContractVersion, Version: "1.2.3", Worker: DefaultWorkerName, PID: 42, ContextID: "ctx-1"}))
	require.NoError(t, out.Send(Frame{Type: FrameResult, Result: json.RawMessage(`{"errors":0,"warnings":2}`)}))

	assert.Equal(t, 2, strings.Count(buf.String(), "\n"), "one frame per line")

	in := NewConn(&buf, io.Discard)
	hello, err := in.Receive()
	require.NoError(t, err)
	assert.Equal(t, FrameHello, hello.Type)
	assert.Equal(t, ContractVersion, hello.Contract)
	assert.Equal(t, "1.2.3", hello.Version)
	assert.Equal(t, 42, hello.PID)
	assert.Equal(t, "ctx-1", hello.ContextID)

	result, err := in.Receive()
	require.NoError(t, err)
	assert.Equal(t, FrameResult, result.Type)
	assert.JSONEq(t, `{"errors":0,"warnings":2}`, string(result.Result))

	_, err = in.Receive()
	assert.ErrorIs(t, err, io.EOF)
}

func TestConnSkipsNonProtocolLines(t *testing.T) {
	input := "Loading rules...\n\n  \n{\"type\":\"lint\",\"project_file\":\"/p/App.fsproj\"}\n"
	conn := NewConn(strings.NewReader(input), io.Discard)

	var skipped []string
	conn.Skipped = func(line string) { skipped = append(skipped, line) }

	f, err := conn.Receive()
	require.NoError(t, err)
	assert.Equal(t, FrameLint, f.Type)
	assert.Equal(t, "/p/App.fsproj", f.ProjectFile)
	assert.Equal(t, []string{"Loading rules..."}, skipped)
}

func TestConnReceiveErrors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr error
	}{
		{name: "empty stream", input: "", wantErr: io.EOF},
		{name: "only noise", input: "warming up\n", wantErr: io.EOF},
		{name: "truncated frame", input: `{"type":"result","result":{"errors"`, wantErr: io.ErrUnexpectedEOF},
		{name: "invalid json", input: "{not json}\n", wantErr: ErrMalformedFrame},
		{name: "missing type", input: "{\"kind\":\"marshaling\"}\n", wantErr: ErrMalformedFrame},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewConn(strings.NewReader(tt.input), io.Discard).Receive()
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
		})
	}
}
