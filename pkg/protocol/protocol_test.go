package protocol

import (
	"bufio"
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRequestRoundTrip(t *testing.T) {
	cases := []Request{
		SetRequest("k", "v"),
		GetRequest("k"),
		RmRequest("k"),
	}
	for _, req := range cases {
		line, err := EncodeRequest(req)
		require.NoError(t, err)
		got, err := DecodeRequest(bytes.TrimRight(line, "\n"))
		require.NoError(t, err)
		require.Equal(t, req, got)
	}
}

func TestResponseRoundTrip(t *testing.T) {
	cases := []Response{
		OkResponse(""),
		OkResponse("Key not found"),
		ErrResponse("Key not found"),
	}
	for _, resp := range cases {
		line, err := EncodeResponse(resp)
		require.NoError(t, err)
		got, err := DecodeResponse(bytes.TrimRight(line, "\n"))
		require.NoError(t, err)
		require.Equal(t, resp, got)
	}
}

func TestDecodeRequestMalformed(t *testing.T) {
	_, err := DecodeRequest([]byte("not json"))
	require.Error(t, err)
}

func TestReadLine(t *testing.T) {
	r := bufio.NewReader(bytes.NewBufferString("{\"Get\":{\"key\":\"a\"}}\n"))
	line, err := ReadLine(r)
	require.NoError(t, err)
	require.Equal(t, `{"Get":{"key":"a"}}`, string(line))
}
