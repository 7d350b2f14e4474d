package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sqlhunt/sqlhunt/internal/auth"
	"github.com/sqlhunt/sqlhunt/internal/cases"
	"github.com/sqlhunt/sqlhunt/internal/catalog"
	"github.com/sqlhunt/sqlhunt/internal/config"
	"github.com/sqlhunt/sqlhunt/internal/executor"
	"github.com/sqlhunt/sqlhunt/internal/sqlguard"
	"github.com/sqlhunt/sqlhunt/internal/tasks"
)

func mapLookup(values map[string]string) config.LookupFunc {
	return func(key string) (string, bool) {
		value, ok := values[key]
		return value, ok
	}
}

type progressKey struct {
	userID string
	caseID string
}

// memoryCaseStore backs the handler tests without a database.
type memoryCaseStore struct {
	cases    map[string]cases.Case
	tables   map[string][]string
	progress map[progressKey]cases.Progress
	xp       map[string]int
}

func newMemoryCaseStore() *memoryCaseStore {
	return &memoryCaseStore{
		cases:    map[string]cases.Case{},
		tables:   map[string][]string{},
		progress: map[progressKey]cases.Progress{},
		xp:       map[string]int{},
	}
}

func (s *memoryCaseStore) ListCases(_ context.Context) ([]cases.Case, error) {
	list := make([]cases.Case, 0, len(s.cases))
	for _, c := range s.cases {
		list = append(list, c)
	}
	return list, nil
}

func (s *memoryCaseStore) GetCase(_ context.Context, caseID string) (cases.Case, error) {
	c, ok := s.cases[caseID]
	if !ok {
		return cases.Case{}, cases.ErrNotFound
	}
	return c, nil
}

func (s *memoryCaseStore) AllowedTables(_ context.Context, caseID string) ([]string, error) {
	return s.tables[caseID], nil
}

func (s *memoryCaseStore) GetProgress(_ context.Context, userID, caseID string) (cases.Progress, error) {
	progress, ok := s.progress[progressKey{userID, caseID}]
	if !ok {
		return cases.Progress{}, cases.ErrNotFound
	}
	return progress, nil
}

func (s *memoryCaseStore) StartProgress(_ context.Context, userID, caseID string) (cases.Progress, error) {
	key := progressKey{userID, caseID}
	if existing, ok := s.progress[key]; ok {
		return existing, nil
	}
	progress := cases.Progress{UserID: userID, CaseID: caseID, StartedAt: time.Now().UTC()}
	s.progress[key] = progress
	return progress, nil
}

func (s *memoryCaseStore) CompleteProgress(_ context.Context, userID, caseID string) (bool, error) {
	key := progressKey{userID, caseID}
	progress, ok := s.progress[key]
	if !ok || progress.Completed {
		return false, nil
	}
	progress.Completed = true
	s.progress[key] = progress
	return true, nil
}

func (s *memoryCaseStore) GetXP(_ context.Context, userID string) (int, error) {
	return s.xp[userID], nil
}

func (s *memoryCaseStore) AddXP(_ context.Context, userID string, delta int) (int, error) {
	s.xp[userID] += delta
	return s.xp[userID], nil
}

func (s *memoryCaseStore) UpsertCase(_ context.Context, def cases.Definition) error {
	s.cases[def.ID] = cases.Case{
		ID:               def.ID,
		Title:            def.Title,
		ShortDescription: def.ShortDescription,
		Description:      def.Description,
		RequiredXP:       def.RequiredXP,
		RewardXP:         def.RewardXP,
		Answer:           def.Answer,
	}
	return nil
}

func (s *memoryCaseStore) ReplaceAvailableTables(_ context.Context, caseID string, tables []string) error {
	s.tables[caseID] = tables
	return nil
}

var _ cases.Store = (*memoryCaseStore)(nil)

// nameListEngine returns at most two person names regardless of the query.
type nameListEngine struct{}

func (nameListEngine) Execute(_ context.Context, _ string) executor.Result {
	return executor.Result{
		Columns: []string{"name"},
		Rows:    [][]any{{"Marla Voss"}, {"Martin Cole"}},
	}
}

type testHarness struct {
	handler http.Handler
	store   *memoryCaseStore
	worker  *tasks.Worker
}

func newTestHarness(t *testing.T) testHarness {
	t.Helper()

	cfg, err := config.Load("sqlhunt-api", mapLookup(map[string]string{}))
	if err != nil {
		t.Fatalf("config load failed: %v", err)
	}

	store := newMemoryCaseStore()
	if err := store.UpsertCase(context.Background(), cases.Definition{
		ID:       "vanished-witness",
		Title:    "The Vanished Witness",
		RewardXP: 100,
		Answer:   "Martin Cole",
	}); err != nil {
		t.Fatalf("seed case failed: %v", err)
	}
	if err := store.ReplaceAvailableTables(context.Background(), "vanished-witness", []string{"person", "cases", "suspect", "alibi", "statement"}); err != nil {
		t.Fatalf("seed tables failed: %v", err)
	}

	caseService := cases.NewService(store)
	taskStore := tasks.NewMemoryStore()
	validator := sqlguard.NewValidator(sqlguard.DefaultRuleset(1000))
	// Same wiring as the api binary: the catalog fronts the allow-list so an
	// empty one surfaces as not-found at submit time.
	runner := tasks.NewRunner(taskStore, validator, catalog.New(caseService, nil), nil)
	worker := &tasks.Worker{Store: taskStore, Engine: nameListEngine{}}

	handler := NewHandler(cfg, Dependencies{
		Cases:  caseService,
		Runner: runner,
	})
	return testHarness{handler: handler, store: store, worker: worker}
}

func doJSON(t *testing.T, handler http.Handler, method, target, userID, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

func TestHealthEndpoint(t *testing.T) {
	harness := newTestHarness(t)
	rr := doJSON(t, harness.handler, http.MethodGet, "/v1/health", "", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
}

func TestReadyEndpointReturns503WhenDependencyFails(t *testing.T) {
	cfg, err := config.Load("sqlhunt-api", mapLookup(map[string]string{}))
	if err != nil {
		t.Fatalf("config load failed: %v", err)
	}
	h := NewHandler(cfg, Dependencies{
		Readiness: func(context.Context) error {
			return errors.New("dependency down")
		},
	})
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/ready", nil))
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", rr.Code)
	}
}

func TestProtectedRouteRequiresAuth(t *testing.T) {
	cfg, err := config.Load("sqlhunt-api", mapLookup(map[string]string{
		"SQLHUNT_AUTH_REQUIRED": "true",
	}))
	if err != nil {
		t.Fatalf("config load failed: %v", err)
	}
	validator, err := auth.NewStaticAPIKeyValidator("k1:learner-1:player")
	if err != nil {
		t.Fatalf("validator setup failed: %v", err)
	}

	store := newMemoryCaseStore()
	h := NewHandler(cfg, Dependencies{
		AuthMiddleware: auth.Middleware(nil, validator),
		Cases:          cases.NewService(store),
	})

	unauthResp := httptest.NewRecorder()
	h.ServeHTTP(unauthResp, httptest.NewRequest(http.MethodGet, "/v1/cases", nil))
	if unauthResp.Code != http.StatusUnauthorized {
		t.Fatalf("unauth status = %d", unauthResp.Code)
	}

	authReq := httptest.NewRequest(http.MethodGet, "/v1/cases", nil)
	authReq.Header.Set("X-API-Key", "k1")
	authResp := httptest.NewRecorder()
	h.ServeHTTP(authResp, authReq)
	if authResp.Code != http.StatusOK {
		t.Fatalf("auth status = %d", authResp.Code)
	}
}

func TestListCasesHidesAnswer(t *testing.T) {
	harness := newTestHarness(t)
	rr := doJSON(t, harness.handler, http.MethodGet, "/v1/cases", "learner-1", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if strings.Contains(rr.Body.String(), "Martin Cole") {
		t.Fatal("case listing leaked the answer")
	}
	if !strings.Contains(rr.Body.String(), "The Vanished Witness") {
		t.Fatalf("case listing missing title: %s", rr.Body.String())
	}
}

func TestQuerySubmitRequiresStartedCase(t *testing.T) {
	harness := newTestHarness(t)

	rr := doJSON(t, harness.handler, http.MethodPost, "/v1/cases/vanished-witness/query", "learner-1", `{"sql":"SELECT name FROM person"}`)
	if rr.Code != http.StatusConflict {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}
	if !strings.Contains(rr.Body.String(), "PROGRESS_REQUIRED") {
		t.Fatalf("body = %s", rr.Body.String())
	}
}

func TestQuerySubmitPollLifecycle(t *testing.T) {
	harness := newTestHarness(t)

	if started := doJSON(t, harness.handler, http.MethodPost, "/v1/cases/vanished-witness/start", "learner-1", ""); started.Code != http.StatusOK {
		t.Fatalf("start status = %d, body = %s", started.Code, started.Body.String())
	}

	rr := doJSON(t, harness.handler, http.MethodPost, "/v1/cases/vanished-witness/query", "learner-1", `{"sql":"SELECT name FROM person LIMIT 2"}`)
	if rr.Code != http.StatusAccepted {
		t.Fatalf("submit status = %d, body = %s", rr.Code, rr.Body.String())
	}
	var accepted struct {
		TaskID string `json:"task_id"`
		State  string `json:"state"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &accepted); err != nil {
		t.Fatalf("json decode failed: %v", err)
	}
	if len(accepted.TaskID) != 32 {
		t.Fatalf("task id = %q", accepted.TaskID)
	}
	if accepted.State != "pending" {
		t.Fatalf("state = %q", accepted.State)
	}

	pending := doJSON(t, harness.handler, http.MethodGet, "/v1/tasks/"+accepted.TaskID, "learner-1", "")
	if pending.Code != http.StatusOK {
		t.Fatalf("poll status = %d", pending.Code)
	}
	if !strings.Contains(pending.Body.String(), `"state":"pending"`) {
		t.Fatalf("poll body = %s", pending.Body.String())
	}

	processed, err := harness.worker.ProcessOnce(context.Background())
	if err != nil {
		t.Fatalf("ProcessOnce() error = %v", err)
	}
	if !processed {
		t.Fatal("worker found no task to process")
	}

	done := doJSON(t, harness.handler, http.MethodGet, "/v1/tasks/"+accepted.TaskID, "learner-1", "")
	var final struct {
		State  string `json:"state"`
		Result struct {
			Columns []string `json:"columns"`
			Rows    [][]any  `json:"rows"`
		} `json:"result"`
	}
	if err := json.Unmarshal(done.Body.Bytes(), &final); err != nil {
		t.Fatalf("json decode failed: %v", err)
	}
	if final.State != "success" {
		t.Fatalf("state = %q, body = %s", final.State, done.Body.String())
	}
	if len(final.Result.Columns) != 1 || final.Result.Columns[0] != "name" {
		t.Fatalf("columns = %v", final.Result.Columns)
	}
	if len(final.Result.Rows) > 2 {
		t.Fatalf("rows = %v", final.Result.Rows)
	}
}

func TestSubmitRejectedQueryReturns400(t *testing.T) {
	harness := newTestHarness(t)

	if started := doJSON(t, harness.handler, http.MethodPost, "/v1/cases/vanished-witness/start", "learner-1", ""); started.Code != http.StatusOK {
		t.Fatalf("start status = %d, body = %s", started.Code, started.Body.String())
	}

	rr := doJSON(t, harness.handler, http.MethodPost, "/v1/cases/vanished-witness/query", "learner-1", `{"sql":"SELECT * FROM evidence"}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}
	var envelope struct {
		ErrorCode string         `json:"error_code"`
		Message   string         `json:"message"`
		Context   map[string]any `json:"context"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("json decode failed: %v", err)
	}
	if envelope.ErrorCode != "VALIDATION_FAILED" {
		t.Fatalf("error_code = %q", envelope.ErrorCode)
	}
	if !strings.Contains(envelope.Message, "evidence") {
		t.Fatalf("message = %q", envelope.Message)
	}
	if envelope.Context["rule"] != sqlguard.RuleTableNotAllowed {
		t.Fatalf("rule = %v", envelope.Context["rule"])
	}
}

func TestSubmitToCaseWithoutTablesReturns404(t *testing.T) {
	harness := newTestHarness(t)

	if err := harness.store.UpsertCase(context.Background(), cases.Definition{
		ID:       "cold-trail",
		Title:    "The Cold Trail",
		RewardXP: 50,
		Answer:   "Ray Okafor",
	}); err != nil {
		t.Fatalf("seed case failed: %v", err)
	}

	if started := doJSON(t, harness.handler, http.MethodPost, "/v1/cases/cold-trail/start", "learner-1", ""); started.Code != http.StatusOK {
		t.Fatalf("start status = %d, body = %s", started.Code, started.Body.String())
	}

	// Even a tableless select fails: a case exposing no tables is unplayable.
	rr := doJSON(t, harness.handler, http.MethodPost, "/v1/cases/cold-trail/query", "learner-1", `{"sql":"SELECT 1"}`)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}
	if !strings.Contains(rr.Body.String(), "CASE_NOT_FOUND") {
		t.Fatalf("body = %s", rr.Body.String())
	}
}

func TestSubmitTablelessSelectIsAccepted(t *testing.T) {
	harness := newTestHarness(t)

	if started := doJSON(t, harness.handler, http.MethodPost, "/v1/cases/vanished-witness/start", "learner-1", ""); started.Code != http.StatusOK {
		t.Fatalf("start status = %d, body = %s", started.Code, started.Body.String())
	}

	rr := doJSON(t, harness.handler, http.MethodPost, "/v1/cases/vanished-witness/query", "learner-1", `{"sql":"SELECT 1"}`)
	if rr.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}
}

func TestPollUnknownTaskReturns404(t *testing.T) {
	harness := newTestHarness(t)
	rr := doJSON(t, harness.handler, http.MethodGet, "/v1/tasks/0123456789abcdef0123456789abcdef", "learner-1", "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "TASK_NOT_FOUND") {
		t.Fatalf("body = %s", rr.Body.String())
	}
}

func TestAnswerFlow(t *testing.T) {
	harness := newTestHarness(t)

	early := doJSON(t, harness.handler, http.MethodPost, "/v1/cases/vanished-witness/answer", "learner-1", `{"answer":"Martin Cole"}`)
	if early.Code != http.StatusConflict {
		t.Fatalf("pre-start status = %d, body = %s", early.Code, early.Body.String())
	}
	if !strings.Contains(early.Body.String(), "PROGRESS_REQUIRED") {
		t.Fatalf("pre-start body = %s", early.Body.String())
	}

	started := doJSON(t, harness.handler, http.MethodPost, "/v1/cases/vanished-witness/start", "learner-1", "")
	if started.Code != http.StatusOK {
		t.Fatalf("start status = %d, body = %s", started.Code, started.Body.String())
	}

	wrong := doJSON(t, harness.handler, http.MethodPost, "/v1/cases/vanished-witness/answer", "learner-1", `{"answer":"Ray Okafor"}`)
	var wrongOutcome answerResponse
	if err := json.Unmarshal(wrong.Body.Bytes(), &wrongOutcome); err != nil {
		t.Fatalf("json decode failed: %v", err)
	}
	if wrongOutcome.Correct || wrongOutcome.AwardedXP != 0 {
		t.Fatalf("wrong answer outcome = %+v", wrongOutcome)
	}

	right := doJSON(t, harness.handler, http.MethodPost, "/v1/cases/vanished-witness/answer", "learner-1", `{"answer":"  martin   COLE "}`)
	var outcome answerResponse
	if err := json.Unmarshal(right.Body.Bytes(), &outcome); err != nil {
		t.Fatalf("json decode failed: %v", err)
	}
	if !outcome.Correct || !outcome.CompletedNow || outcome.AwardedXP != 100 {
		t.Fatalf("outcome = %+v", outcome)
	}

	retry := doJSON(t, harness.handler, http.MethodPost, "/v1/cases/vanished-witness/answer", "learner-1", `{"answer":"Martin Cole"}`)
	var retryOutcome answerResponse
	if err := json.Unmarshal(retry.Body.Bytes(), &retryOutcome); err != nil {
		t.Fatalf("json decode failed: %v", err)
	}
	if !retryOutcome.Correct || retryOutcome.CompletedNow || retryOutcome.AwardedXP != 0 {
		t.Fatalf("retry outcome = %+v", retryOutcome)
	}
	if retryOutcome.TotalXP != 100 {
		t.Fatalf("total xp = %d", retryOutcome.TotalXP)
	}
}

func TestMissingUserIdentityIsRejected(t *testing.T) {
	harness := newTestHarness(t)
	rr := doJSON(t, harness.handler, http.MethodPost, "/v1/cases/vanished-witness/start", "", "")
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", rr.Code)
	}
}

func TestInvalidJSONBodyIsRejected(t *testing.T) {
	harness := newTestHarness(t)
	rr := doJSON(t, harness.handler, http.MethodPost, "/v1/cases/vanished-witness/query", "learner-1", `{"sql":`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "INVALID_JSON") {
		t.Fatalf("body = %s", rr.Body.String())
	}
}

func TestCombineReadinessChecksStopsOnFirstFailure(t *testing.T) {
	order := make([]int, 0, 3)
	combined := CombineReadinessChecks(
		func(_ context.Context) error {
			order = append(order, 1)
			return nil
		},
		func(_ context.Context) error {
			order = append(order, 2)
			return errors.New("boom")
		},
		func(_ context.Context) error {
			order = append(order, 3)
			return nil
		},
	)

	if err := combined(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if len(order) != 2 || order[0] != 1 || order[1] != 2 {
		t.Fatalf("execution order = %#v", order)
	}
}
