package analysis

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"kata_review/internal/bootstrap"
	"kata_review/internal/domain"
	errs "kata_review/internal/errors"
	"kata_review/internal/httpresponse"
	analysisUC "kata_review/internal/usecase/analysis"
)

const game = `(;GM[1]SZ[19];B[dp];W[pd];B[dd])`

// fakeEngine answers every position with an even game, or fails at failAt.
type fakeEngine struct {
	failAt int
	err    error
}

func (e *fakeEngine) Submit(ctx context.Context, q domain.AnalysisQuery) (domain.Verdict, error) {
	if e.err != nil && q.Ply == e.failAt {
		return domain.Verdict{}, e.err
	}
	return domain.Verdict{
		ID:           q.ID,
		Winrate:      0.5,
		Visits:       q.MaxVisits,
		PlayerToMove: q.MovesSoFar.ToMove(),
	}, nil
}

type mapStore map[string]domain.Analysis

func (s mapStore) SaveRun(_ context.Context, run domain.Analysis) error {
	s[run.ID] = run
	return nil
}

func (s mapStore) GetRun(_ context.Context, id string) (domain.Analysis, error) {
	run, ok := s[id]
	if !ok {
		return domain.Analysis{}, errs.ErrRunNotFound
	}
	return run, nil
}

func (s mapStore) ListRuns(_ context.Context, limit int) ([]domain.Analysis, error) {
	var out []domain.Analysis
	for _, run := range s {
		run.Nodes = nil
		out = append(out, run)
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func newTestServer(t *testing.T, engine analysisUC.Engine) (*httptest.Server, mapStore) {
	t.Helper()
	cfg := bootstrap.Config{
		Analysis: bootstrap.AnalysisConfig{
			MaxVisits:     100,
			Rules:         "chinese",
			Komi:          7.5,
			BoardSize:     19,
			ReportAs:      bootstrap.ReportBlack,
			Authoritative: bootstrap.AuthorityConfig,
		},
		Save: bootstrap.SaveConfig{AIWinrate: true},
	}
	log := zap.NewNop().Sugar()
	store := mapStore{}
	analyzer := analysisUC.NewAnalyzer(cfg, engine, log).WithStore(store)

	r := chi.NewRouter()
	NewAnalysisHandler(analyzer, log).Router(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, store
}

func post(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func analyzeBody(t *testing.T, sgf string) string {
	t.Helper()
	raw, err := json.Marshal(AnalyzeRequest{Source: "test.sgf", SGF: sgf})
	require.NoError(t, err)
	return string(raw)
}

func TestAnalyze(t *testing.T) {
	srv, store := newTestServer(t, &fakeEngine{})

	resp := post(t, srv.URL+"/analyze", analyzeBody(t, game))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body httpresponse.Response[domain.Analysis]
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, http.StatusOK, body.Status)
	require.Len(t, body.Body.Nodes, 3)
	assert.Equal(t, "test.sgf", body.Body.Source)
	assert.Equal(t, "Black winrate: 50.0%\nScore lead: even", body.Body.Nodes[0].Comment)

	_, ok := store[body.Body.ID]
	assert.True(t, ok, "run is archived")
}

func TestAnalyzeBadRequest(t *testing.T) {
	srv, _ := newTestServer(t, &fakeEngine{})

	for name, body := range map[string]string{
		"not json":      "{",
		"unknown field": `{"sgf":"(;B[aa])","moves":[]}`,
		"no sgf":        `{"source":"x"}`,
		"bad record":    analyzeBody(t, "(;B[dp]"),
		"off the board": analyzeBody(t, "(;SZ[9];B[pp])"),
	} {
		t.Run(name, func(t *testing.T) {
			resp := post(t, srv.URL+"/analyze", body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		})
	}
}

func TestAnalyzeEngineFailure(t *testing.T) {
	srv, _ := newTestServer(t, &fakeEngine{
		failAt: 2,
		err:    errors.Wrap(errs.ErrEngineTimeout, "no response after 2m0s"),
	})

	resp := post(t, srv.URL+"/analyze", analyzeBody(t, game))
	require.Equal(t, http.StatusGatewayTimeout, resp.StatusCode)

	var body httpresponse.Response[httpresponse.ErrorResponse]
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.NotNil(t, body.Body.Ply)
	assert.Equal(t, 2, *body.Body.Ply)
	assert.Contains(t, body.Body.ErrorDescription, "timed out")
}

func TestGetRunAndReports(t *testing.T) {
	srv, _ := newTestServer(t, &fakeEngine{})

	resp := post(t, srv.URL+"/analyze", analyzeBody(t, game))
	var created httpresponse.Response[domain.Analysis]
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	id := created.Body.ID

	got, err := http.Get(srv.URL + "/runs/" + id)
	require.NoError(t, err)
	defer got.Body.Close()
	require.Equal(t, http.StatusOK, got.StatusCode)
	var run httpresponse.Response[domain.Analysis]
	require.NoError(t, json.NewDecoder(got.Body).Decode(&run))
	assert.Len(t, run.Body.Nodes, 3)

	for format, ctype := range map[string]string{
		"pdf":  "application/pdf",
		"yaml": "application/yaml; charset=utf-8",
		"dot":  "text/vnd.graphviz; charset=utf-8",
	} {
		rep, err := http.Get(srv.URL + "/runs/" + id + "/report." + format)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, rep.StatusCode, format)
		assert.Equal(t, ctype, rep.Header.Get("Content-Type"), format)
		rep.Body.Close()
	}

	rep, err := http.Get(srv.URL + "/runs/" + id + "/report.docx")
	require.NoError(t, err)
	rep.Body.Close()
	assert.Equal(t, http.StatusBadRequest, rep.StatusCode)
}

func TestGetRunNotFound(t *testing.T) {
	srv, _ := newTestServer(t, &fakeEngine{})

	resp, err := http.Get(srv.URL + "/runs/nope")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestListRuns(t *testing.T) {
	srv, _ := newTestServer(t, &fakeEngine{})

	resp, err := http.Get(srv.URL + "/runs")
	require.NoError(t, err)
	var empty httpresponse.Response[[]domain.Analysis]
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&empty))
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, empty.Status)
	assert.Empty(t, empty.Body)

	post(t, srv.URL+"/analyze", analyzeBody(t, game))

	resp, err = http.Get(srv.URL + "/runs?limit=5")
	require.NoError(t, err)
	var list httpresponse.Response[[]domain.Analysis]
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	resp.Body.Close()
	assert.Len(t, list.Body, 1)

	resp, err = http.Get(srv.URL + "/runs?limit=-1")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAnalyzeWS(t *testing.T) {
	srv, _ := newTestServer(t, &fakeEngine{})

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/analyze"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(AnalyzeRequest{Source: "ws.sgf", SGF: game}))

	var plies []int
	for {
		var ev Event
		require.NoError(t, conn.ReadJSON(&ev))
		if ev.Type == EventNode {
			require.NotNil(t, ev.Node)
			plies = append(plies, ev.Node.Ply)
			continue
		}
		require.Equal(t, EventDone, ev.Type, ev.Error)
		require.NotNil(t, ev.Run)
		assert.Equal(t, "ws.sgf", ev.Run.Source)
		break
	}
	assert.Equal(t, []int{0, 1, 2}, plies)
}

func TestAnalyzeWSError(t *testing.T) {
	srv, _ := newTestServer(t, &fakeEngine{failAt: 1, err: errs.ErrSessionFaulted})

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/analyze"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(AnalyzeRequest{SGF: game}))

	var first, last Event
	require.NoError(t, conn.ReadJSON(&first))
	assert.Equal(t, EventNode, first.Type)
	require.NoError(t, conn.ReadJSON(&last))
	assert.Equal(t, EventError, last.Type)
	require.NotNil(t, last.Ply)
	assert.Equal(t, 1, *last.Ply)
}

func TestStatusFor(t *testing.T) {
	for _, tc := range []struct {
		err  error
		want int
	}{
		{errors.Wrap(errs.ErrMalformedRecord, "x"), http.StatusBadRequest},
		{&errs.PlyError{Ply: 3, Err: errs.ErrCoordinateOutOfRange}, http.StatusBadRequest},
		{&errs.PlyError{Ply: 3, Err: errs.ErrEngineTimeout}, http.StatusGatewayTimeout},
		{errs.ErrProtocolViolation, http.StatusBadGateway},
		{errs.ErrEngineUnavailable, http.StatusBadGateway},
		{errs.ErrIncompleteVerdict, http.StatusBadGateway},
		{context.Canceled, http.StatusInternalServerError},
	} {
		assert.Equal(t, tc.want, StatusFor(tc.err), tc.err.Error())
	}
}
