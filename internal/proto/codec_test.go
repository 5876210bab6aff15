package proto

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRequestRoundTrip(t *testing.T) {
	reqs := []Request{
		{ID: 1, Tenant: "alice", Payload: RequestPayload{Kind: KindFileRead, FileRead: &FileReadParams{Path: "/tmp/x"}}},
		{ID: 2, Payload: RequestPayload{Kind: KindProcSpawn, ProcSpawn: &ProcSpawnParams{
			Cmd: "echo", Args: []string{"hi"}, Pty: &PtyDimensions{Rows: 24, Cols: 80},
		}}},
		{ID: 3, Payload: RequestPayload{Kind: KindBatch, Batch: []RequestPayload{
			{Kind: KindExists, Exists: &ExistsParams{Path: "a"}},
			{Kind: KindExists, Exists: &ExistsParams{Path: "b"}},
		}}},
	}
	for _, want := range reqs {
		body, err := MarshalRequest(want)
		require.NoError(t, err)
		got, err := UnmarshalRequest(body)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
}

func TestResponseRoundTrip(t *testing.T) {
	code := int32(0)
	resps := []Response{
		{ID: 10, OriginID: 1, Payload: OK()},
		{ID: 11, OriginID: 1, Payload: Err("not_found", "no such file")},
		{ID: 12, OriginID: 2, Payload: ResponsePayload{
			Kind: RKindProcDone,
			ProcDone: &ProcDonePayload{Success: true, Code: &code},
		}},
		{ID: 13, OriginID: 2, Payload: ResponsePayload{
			Kind:    RKindChanged,
			Changed: &ChangedPayload{Path: "/tmp/x", Kind: "modified", Unix: 1700000000},
		}},
	}
	for _, want := range resps {
		body, err := MarshalResponse(want)
		require.NoError(t, err)
		got, err := UnmarshalResponse(body)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
}

func TestIsTerminal(t *testing.T) {
	require.True(t, OK().IsTerminal())
	require.True(t, Err("io", "x").IsTerminal())
	require.False(t, (ResponsePayload{Kind: RKindProcStdout}).IsTerminal())
	require.False(t, (ResponsePayload{Kind: RKindChanged}).IsTerminal())
	require.True(t, (ResponsePayload{Kind: RKindProcDone}).IsTerminal())
}

func TestDirReadParamsNormalizedDepth(t *testing.T) {
	require.Equal(t, 1, DirReadParams{}.NormalizedDepth())
	require.Equal(t, 3, DirReadParams{Depth: 3}.NormalizedDepth())
}
