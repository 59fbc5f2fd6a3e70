package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/doorlist/concierge-core/internal/convctx"
	"github.com/doorlist/concierge-core/internal/feed"
	"github.com/doorlist/concierge-core/internal/respond"
	"github.com/doorlist/concierge-core/internal/session"
	"github.com/doorlist/concierge-core/internal/store"
	"github.com/doorlist/concierge-core/pkg/logger"
)

func TestOpenLogsErrorWithContext(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	log := &logger.Logger{Logger: zap.New(core)}

	f := feed.NewMemoryFeed()
	defer f.Close()
	s := store.NewMemoryStore(f)
	m := session.NewManager(session.Config{
		Threads:  s,
		Messages: s,
		Feed:     f,
		Reply:    respond.NewGenerator(nil, logger.NewNop()),
		Contexts: convctx.NewCache(4, time.Hour),
		Logger:   logger.NewNop(),
	})
	m.Close() // every session operation now fails

	h := NewThreadHandler(m, log)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/threads",
		strings.NewReader(`{"venue_id":"v1","venue_name":"Velvet Room"}`))
	rec := httptest.NewRecorder()
	h.Open(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	entries := logs.FilterMessage("failed to open thread").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Contains(t, fields, "error")
	assert.Equal(t, "v1", fields["venue_id"])
}
