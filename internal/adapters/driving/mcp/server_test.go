package mcp

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docrag/internal/core/domain"
)

func TestNewServer(t *testing.T) {
	t.Run("missing ports returns error", func(t *testing.T) {
		server, err := NewServer(&Ports{})
		require.Error(t, err)
		assert.Nil(t, server)
		assert.ErrorIs(t, err, ErrMissingIngestionService)
	})

	t.Run("valid ports creates server", func(t *testing.T) {
		ports, _, _, _ := testPorts()
		server, err := NewServer(ports)
		require.NoError(t, err)
		assert.NotNil(t, server)
	})
}

func TestPorts_Validate(t *testing.T) {
	tests := []struct {
		name  string
		ports *Ports
		want  error
	}{
		{"empty", &Ports{}, ErrMissingIngestionService},
		{"no retrieval", &Ports{Ingestion: &mockIngestionService{}}, ErrMissingRetrievalService},
		{
			"no document",
			&Ports{Ingestion: &mockIngestionService{}, Retrieval: &mockRetrievalService{}},
			ErrMissingDocumentService,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.ports.Validate(), tt.want)
		})
	}

	t.Run("all ports is valid", func(t *testing.T) {
		ports, _, _, _ := testPorts()
		assert.NoError(t, ports.Validate())
	})
}

// connect starts an in-memory client session against the server.
func connect(t *testing.T, s *Server) *mcp.ClientSession {
	t.Helper()
	ctx := context.Background()
	serverTransport, clientTransport := mcp.NewInMemoryTransports()

	ss, err := s.server.Connect(ctx, serverTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ss.Close() })

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "0.0.1"}, nil)
	cs, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = cs.Close() })
	return cs
}

func TestServer_Session(t *testing.T) {
	ctx := context.Background()
	ports, ing, ret, doc := testPorts()
	ret.answer = &domain.Answer{Text: domain.NoRelevantInformation, Citations: []domain.Citation{}}
	doc.err = domain.ErrNotFound
	server, err := NewServer(ports)
	require.NoError(t, err)
	cs := connect(t, server)

	t.Run("lists every tool", func(t *testing.T) {
		res, err := cs.ListTools(ctx, nil)
		require.NoError(t, err)

		names := make([]string, len(res.Tools))
		for i, tool := range res.Tools {
			names[i] = tool.Name
		}
		assert.ElementsMatch(t, []string{
			"upload_document", "ask", "list_documents", "delete_document", "search_documents",
		}, names)
	})

	t.Run("ask returns structured answer", func(t *testing.T) {
		res, err := cs.CallTool(ctx, &mcp.CallToolParams{
			Name:      "ask",
			Arguments: map[string]any{"question": "anything?"},
		})
		require.NoError(t, err)
		assert.False(t, res.IsError)
		require.NotEmpty(t, res.Content)
		text, ok := res.Content[0].(*mcp.TextContent)
		require.True(t, ok)
		assert.Contains(t, text.Text, domain.NoRelevantInformation)
	})

	t.Run("service errors become error results", func(t *testing.T) {
		ing.err = errors.New("store down")
		defer func() { ing.err = nil }()

		res, err := cs.CallTool(ctx, &mcp.CallToolParams{
			Name:      "delete_document",
			Arguments: map[string]any{"document_id": "doc-1"},
		})
		require.NoError(t, err)
		assert.True(t, res.IsError)
		require.NotEmpty(t, res.Content)
		text, ok := res.Content[0].(*mcp.TextContent)
		require.True(t, ok)
		assert.Contains(t, text.Text, "store down")
	})

	t.Run("unknown document resource is not found", func(t *testing.T) {
		_, err := cs.ReadResource(ctx, &mcp.ReadResourceParams{URI: "docrag://documents/missing"})
		require.Error(t, err)
	})
}

func TestServer_Handler(t *testing.T) {
	ports, _, _, _ := testPorts()
	server, err := NewServer(ports, WithVersion("1.2.3"))
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, HealthPath, nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok 1.2.3\n", rec.Body.String())

	rec = httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/elsewhere", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_ServeStopsOnCancel(t *testing.T) {
	ports, _, _, _ := testPorts()
	server, err := NewServer(ports)
	require.NoError(t, err)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- server.Serve(ctx, ln) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + HealthPath)
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(shutdownGrace + time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}

func TestServer_RunHTTPBadAddress(t *testing.T) {
	ports, _, _, _ := testPorts()
	server, err := NewServer(ports)
	require.NoError(t, err)

	err = server.RunHTTP(context.Background(), "not-an-address")

	assert.ErrorContains(t, err, "listen on")
}
