package kvserver_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"kvs/internal/store"
	"kvs/pkg/kvclient"
	"kvs/pkg/kvserver"
)

func startTestServer(t *testing.T) (*kvserver.Server, *kvclient.Client, func()) {
	t.Helper()

	eng, err := store.Open(store.Config{
		DataDir:             t.TempDir(),
		MaxSegmentSize:      1 << 20,
		CompactionThreshold: 64,
	})
	require.NoError(t, err)

	srv, err := kvserver.Listen("127.0.0.1:0", eng, 2, nil, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		srv.Run(ctx)
		close(done)
	}()

	// Give the accept loop a moment to start before dialing.
	time.Sleep(10 * time.Millisecond)

	client, err := kvclient.Connect(srv.Addr().String())
	require.NoError(t, err)

	cleanup := func() {
		client.Close()
		cancel()
		<-done
		eng.Close()
	}
	return srv, client, cleanup
}

func TestServerSetGetRemove(t *testing.T) {
	_, client, cleanup := startTestServer(t)
	defer cleanup()

	require.NoError(t, client.Set("a", "1"))

	v, ok, err := client.Get("a")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "1", v)

	require.NoError(t, client.Remove("a"))

	_, ok, err = client.Get("a")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestServerGetMissingKeyIsOk(t *testing.T) {
	_, client, cleanup := startTestServer(t)
	defer cleanup()

	_, ok, err := client.Get("never-set")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestServerRemoveMissingKeyIsError(t *testing.T) {
	_, client, cleanup := startTestServer(t)
	defer cleanup()

	err := client.Remove("never-set")
	require.Error(t, err)
}

func TestServerMultipleConnections(t *testing.T) {
	srv, client, cleanup := startTestServer(t)
	defer cleanup()

	require.NoError(t, client.Set("shared", "v1"))

	client2, err := kvclient.Connect(srv.Addr().String())
	require.NoError(t, err)
	defer client2.Close()

	v, ok, err := client2.Get("shared")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "v1", v)
}
