package record

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	cases := []Record{
		Insertion("key1", "value1"),
		Insertion("key1", ""),
		Discard("key1"),
	}

	for _, want := range cases {
		line, err := Encode(want)
		require.NoError(t, err)
		require.True(t, line[len(line)-1] == '\n')

		got, err := Decode(line[:len(line)-1])
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
}

func TestDecodeMalformed(t *testing.T) {
	_, err := Decode([]byte("not json"))
	require.Error(t, err)
}

func TestDecodeUnknownTag(t *testing.T) {
	_, err := Decode([]byte(`{"Bogus":{"key":"k"}}`))
	require.Error(t, err)
}

func TestEncodeUnknownTag(t *testing.T) {
	_, err := Encode(Record{Tag: "Bogus", Key: "k"})
	require.Error(t, err)
}
