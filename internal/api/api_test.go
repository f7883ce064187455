package api

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"qna/internal/docstore"
	"qna/internal/identity"
	"qna/internal/models"
)

func setupTestServer(t *testing.T) (*httptest.Server, *sql.DB) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "qna-test.db")
	database, err := docstore.Open(dbPath)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	if err := docstore.ApplyMigrations(database); err != nil {
		t.Fatalf("migrate db: %v", err)
	}
	srv := httptest.NewServer(NewRouter(database, "test", zerolog.Nop()))
	t.Cleanup(srv.Close)
	return srv, database
}

func createContributorForTest(t *testing.T, database *sql.DB, userName, role string) string {
	t.Helper()
	apiKey, err := identity.GenerateAPIKey()
	if err != nil {
		t.Fatalf("generate api key: %v", err)
	}
	store := docstore.New(database)
	if err := store.CreateContributor(context.Background(), userName, userName, role, identity.HashAPIKey(apiKey)); err != nil {
		t.Fatalf("create contributor %s: %v", userName, err)
	}
	return apiKey
}

func doReq(t *testing.T, baseURL, apiKey, method, path string, body any) *http.Response {
	t.Helper()
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal req: %v", err)
		}
	}
	req, err := http.NewRequest(method, baseURL+path, bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	return resp
}

func decodeJSON(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("decode json: %v", err)
	}
}

func decodeQuestion(t *testing.T, resp *http.Response) models.Question {
	t.Helper()
	var q models.Question
	decodeJSON(t, resp, &q)
	return q
}

func questionPath(t *testing.T, q models.Question) string {
	t.Helper()
	bare := q.ID
	bare = bare[len("/questions/") : len(bare)-len(".json")]
	return "/v1/questions/" + bare
}

func TestStatusWhoAmIAndMetrics(t *testing.T) {
	server, database := setupTestServer(t)
	joeKey := createContributorForTest(t, database, "joe", "contributor")

	status := doReq(t, server.URL, "", http.MethodGet, "/v1/status", nil)
	if status.StatusCode != http.StatusOK {
		t.Fatalf("status endpoint returned %d", status.StatusCode)
	}
	var statusPayload struct {
		Status  string `json:"status"`
		Version string `json:"version"`
	}
	decodeJSON(t, status, &statusPayload)
	if statusPayload.Status != "ok" || statusPayload.Version != "test" {
		t.Fatalf("unexpected status payload: %+v", statusPayload)
	}

	// whoami works unauthenticated: anonymous is a first-class caller.
	anonWho := doReq(t, server.URL, "", http.MethodGet, "/v1/whoami", nil)
	if anonWho.StatusCode != http.StatusOK {
		t.Fatalf("anonymous whoami returned %d", anonWho.StatusCode)
	}
	var anonPayload struct {
		UserName string `json:"userName"`
		Role     string `json:"role"`
	}
	decodeJSON(t, anonWho, &anonPayload)
	if anonPayload.Role != "anonymous" || anonPayload.UserName != "" {
		t.Fatalf("unexpected anonymous identity: %+v", anonPayload)
	}

	who := doReq(t, server.URL, joeKey, http.MethodGet, "/v1/whoami", nil)
	var whoPayload struct {
		UserName string `json:"userName"`
		Role     string `json:"role"`
	}
	decodeJSON(t, who, &whoPayload)
	if whoPayload.UserName != "joe" || whoPayload.Role != "contributor" {
		t.Fatalf("unexpected identity: %+v", whoPayload)
	}

	// A token that matches nothing is rejected, not downgraded to anonymous.
	badWho := doReq(t, server.URL, "qna_ak_bogus", http.MethodGet, "/v1/whoami", nil)
	if badWho.StatusCode != http.StatusUnauthorized {
		t.Fatalf("bogus key returned %d, want 401", badWho.StatusCode)
	}
	_ = badWho.Body.Close()

	metrics := doReq(t, server.URL, "", http.MethodGet, "/metrics", nil)
	if metrics.StatusCode != http.StatusOK {
		t.Fatalf("metrics endpoint returned %d", metrics.StatusCode)
	}
	_ = metrics.Body.Close()
}

func TestQuestionLifecycleAndAcceptance(t *testing.T) {
	server, database := setupTestServer(t)
	joeKey := createContributorForTest(t, database, "joe", "contributor")
	maryKey := createContributorForTest(t, database, "mary", "admin")

	// Validation happens before anything is stored.
	bad := doReq(t, server.URL, joeKey, http.MethodPost, "/v1/questions", map[string]any{
		"title": "   ",
		"body":  "body",
	})
	if bad.StatusCode != http.StatusBadRequest {
		t.Fatalf("blank title returned %d, want 400", bad.StatusCode)
	}
	_ = bad.Body.Close()

	// Anonymous callers cannot ask.
	anonAsk := doReq(t, server.URL, "", http.MethodPost, "/v1/questions", map[string]any{
		"title": "t", "body": "b",
	})
	if anonAsk.StatusCode != http.StatusUnauthorized {
		t.Fatalf("anonymous ask returned %d, want 401", anonAsk.StatusCode)
	}
	_ = anonAsk.Body.Close()

	askResp := doReq(t, server.URL, joeKey, http.MethodPost, "/v1/questions", map[string]any{
		"title": "Question from contributor",
		"body":  "What is the answer?",
		"tags":  []string{"test"},
	})
	if askResp.StatusCode != http.StatusCreated {
		t.Fatalf("ask returned %d, want 201", askResp.StatusCode)
	}
	question := decodeQuestion(t, askResp)
	if question.Owner.UserName != "joe" {
		t.Fatalf("owner = %q, want joe", question.Owner.UserName)
	}

	// Unresolved questions are invisible to anonymous readers and search.
	anonGet := doReq(t, server.URL, "", http.MethodGet, questionPath(t, question), nil)
	if anonGet.StatusCode != http.StatusNotFound {
		t.Fatalf("anonymous read of unresolved question returned %d, want 404", anonGet.StatusCode)
	}
	_ = anonGet.Body.Close()
	assertSearchTotal(t, server.URL, "", 0)
	assertSearchTotal(t, server.URL, maryKey, 1)

	answerResp := doReq(t, server.URL, maryKey, http.MethodPost, questionPath(t, question)+"/answers", map[string]any{
		"text": "here's an answer for ya",
	})
	if answerResp.StatusCode != http.StatusCreated {
		t.Fatalf("answer returned %d, want 201", answerResp.StatusCode)
	}
	question = decodeQuestion(t, answerResp)
	if len(question.Answers) != 1 {
		t.Fatalf("expected 1 answer, got %d", len(question.Answers))
	}
	answerID := question.Answers[0].ID

	commentResp := doReq(t, server.URL, joeKey, http.MethodPost, questionPath(t, question)+"/comments", map[string]any{
		"text": "clarifying comment",
	})
	if commentResp.StatusCode != http.StatusCreated {
		t.Fatalf("comment returned %d, want 201", commentResp.StatusCode)
	}
	question = decodeQuestion(t, commentResp)
	if len(question.Comments) != 1 {
		t.Fatalf("expected 1 question comment, got %d", len(question.Comments))
	}

	answerCommentResp := doReq(t, server.URL, joeKey, http.MethodPost, questionPath(t, question)+"/answers/"+answerID+"/comments", map[string]any{
		"text": "thanks, that helps",
	})
	if answerCommentResp.StatusCode != http.StatusCreated {
		t.Fatalf("answer comment returned %d, want 201", answerCommentResp.StatusCode)
	}
	question = decodeQuestion(t, answerCommentResp)
	if len(question.Answers[0].Comments) != 1 {
		t.Fatalf("expected 1 answer comment, got %d", len(question.Answers[0].Comments))
	}

	upResp := doReq(t, server.URL, joeKey, http.MethodPost, questionPath(t, question)+"/upvotes", nil)
	if upResp.StatusCode != http.StatusCreated {
		t.Fatalf("question upvote returned %d, want 201", upResp.StatusCode)
	}
	question = decodeQuestion(t, upResp)
	if question.Upvotes != 1 {
		t.Fatalf("question upvotes = %d, want 1", question.Upvotes)
	}

	downResp := doReq(t, server.URL, maryKey, http.MethodPost, questionPath(t, question)+"/answers/"+answerID+"/downvotes", nil)
	if downResp.StatusCode != http.StatusCreated {
		t.Fatalf("answer downvote returned %d, want 201", downResp.StatusCode)
	}
	question = decodeQuestion(t, downResp)
	if question.Answers[0].Downvotes != 1 {
		t.Fatalf("answer downvotes = %d, want 1", question.Answers[0].Downvotes)
	}

	// Acceptance: owner only, even for the admin.
	adminAccept := doReq(t, server.URL, maryKey, http.MethodPost, questionPath(t, question)+"/answers/"+answerID+"/accept", nil)
	if adminAccept.StatusCode != http.StatusForbidden {
		t.Fatalf("admin accept returned %d, want 403", adminAccept.StatusCode)
	}
	_ = adminAccept.Body.Close()

	anonAccept := doReq(t, server.URL, "", http.MethodPost, questionPath(t, question)+"/answers/"+answerID+"/accept", nil)
	if anonAccept.StatusCode != http.StatusUnauthorized {
		t.Fatalf("anonymous accept returned %d, want 401", anonAccept.StatusCode)
	}
	_ = anonAccept.Body.Close()

	accept := doReq(t, server.URL, joeKey, http.MethodPost, questionPath(t, question)+"/answers/"+answerID+"/accept", nil)
	if accept.StatusCode != http.StatusOK {
		t.Fatalf("owner accept returned %d, want 200", accept.StatusCode)
	}
	question = decodeQuestion(t, accept)
	if question.AcceptedAnswerID == nil || *question.AcceptedAnswerID != answerID {
		t.Fatalf("acceptedAnswerId = %v, want %q", question.AcceptedAnswerID, answerID)
	}

	// Re-accepting the same answer is an idempotent success.
	again := doReq(t, server.URL, joeKey, http.MethodPost, questionPath(t, question)+"/answers/"+answerID+"/accept", nil)
	if again.StatusCode != http.StatusOK {
		t.Fatalf("re-accept returned %d, want 200", again.StatusCode)
	}
	_ = again.Body.Close()

	// Acceptance opens the question to anonymous readers.
	anonGet = doReq(t, server.URL, "", http.MethodGet, questionPath(t, question), nil)
	if anonGet.StatusCode != http.StatusOK {
		t.Fatalf("anonymous read after accept returned %d, want 200", anonGet.StatusCode)
	}
	_ = anonGet.Body.Close()
	assertSearchTotal(t, server.URL, "", 1)

	// Accepting a detached answer is a 404.
	detached := doReq(t, server.URL, joeKey, http.MethodPost, questionPath(t, question)+"/answers/not-attached/accept", nil)
	if detached.StatusCode != http.StatusNotFound {
		t.Fatalf("detached accept returned %d, want 404", detached.StatusCode)
	}
	_ = detached.Body.Close()
}

func assertSearchTotal(t *testing.T, baseURL, apiKey string, want int) {
	t.Helper()
	resp := doReq(t, baseURL, apiKey, http.MethodPost, "/v1/search", map[string]any{"query": ""})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("search returned %d", resp.StatusCode)
	}
	var payload struct {
		Results []models.Question `json:"results"`
		Total   int               `json:"total"`
	}
	decodeJSON(t, resp, &payload)
	if payload.Total != want || len(payload.Results) != want {
		t.Fatalf("search total = %d (results %d), want %d", payload.Total, len(payload.Results), want)
	}
}

func TestSearchMatchesText(t *testing.T) {
	server, database := setupTestServer(t)
	joeKey := createContributorForTest(t, database, "joe", "contributor")

	for _, spec := range []struct{ title, body string }{
		{"Scaling write throughput", "Sharded counters and batching."},
		{"Terminal color handling", "ANSI escapes misbehave over ssh."},
	} {
		resp := doReq(t, server.URL, joeKey, http.MethodPost, "/v1/questions", map[string]any{
			"title": spec.title, "body": spec.body,
		})
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("ask returned %d", resp.StatusCode)
		}
		_ = resp.Body.Close()
	}

	resp := doReq(t, server.URL, joeKey, http.MethodPost, "/v1/search", map[string]any{"query": "throughput"})
	var payload struct {
		Results []models.Question `json:"results"`
		Total   int               `json:"total"`
	}
	decodeJSON(t, resp, &payload)
	if payload.Total != 1 || payload.Results[0].Title != "Scaling write throughput" {
		t.Fatalf("unexpected search results: %+v", payload)
	}
}

func TestQuestionListAndAdminPurge(t *testing.T) {
	server, database := setupTestServer(t)
	joeKey := createContributorForTest(t, database, "joe", "contributor")
	maryKey := createContributorForTest(t, database, "mary", "admin")

	resp := doReq(t, server.URL, joeKey, http.MethodPost, "/v1/questions", map[string]any{
		"title": "t", "body": "b",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("ask returned %d", resp.StatusCode)
	}
	_ = resp.Body.Close()

	list := doReq(t, server.URL, joeKey, http.MethodGet, "/v1/questions", nil)
	var listPayload struct {
		Questions []models.Question `json:"questions"`
		Total     int               `json:"total"`
	}
	decodeJSON(t, list, &listPayload)
	if listPayload.Total != 1 {
		t.Fatalf("list total = %d, want 1", listPayload.Total)
	}

	denied := doReq(t, server.URL, joeKey, http.MethodDelete, "/v1/questions", nil)
	if denied.StatusCode != http.StatusForbidden {
		t.Fatalf("contributor purge returned %d, want 403", denied.StatusCode)
	}
	_ = denied.Body.Close()

	purge := doReq(t, server.URL, maryKey, http.MethodDelete, "/v1/questions", nil)
	if purge.StatusCode != http.StatusNoContent {
		t.Fatalf("admin purge returned %d, want 204", purge.StatusCode)
	}
	_ = purge.Body.Close()

	list = doReq(t, server.URL, maryKey, http.MethodGet, "/v1/questions", nil)
	decodeJSON(t, list, &listPayload)
	if listPayload.Total != 0 {
		t.Fatalf("list total after purge = %d, want 0", listPayload.Total)
	}
}

func TestContributorEndpointsAreAdminOnly(t *testing.T) {
	server, database := setupTestServer(t)
	joeKey := createContributorForTest(t, database, "joe", "contributor")
	maryKey := createContributorForTest(t, database, "mary", "admin")

	anon := doReq(t, server.URL, "", http.MethodGet, "/v1/contributors", nil)
	if anon.StatusCode != http.StatusUnauthorized {
		t.Fatalf("anonymous contributor list returned %d, want 401", anon.StatusCode)
	}
	_ = anon.Body.Close()

	denied := doReq(t, server.URL, joeKey, http.MethodGet, "/v1/contributors", nil)
	if denied.StatusCode != http.StatusForbidden {
		t.Fatalf("contributor list as non-admin returned %d, want 403", denied.StatusCode)
	}
	_ = denied.Body.Close()

	created := doReq(t, server.URL, maryKey, http.MethodPost, "/v1/contributors", map[string]any{
		"userName":    "sam",
		"displayName": "Sam",
	})
	if created.StatusCode != http.StatusCreated {
		t.Fatalf("create contributor returned %d, want 201", created.StatusCode)
	}
	var createdPayload struct {
		UserName string `json:"userName"`
		Role     string `json:"role"`
		APIKey   string `json:"apiKey"`
	}
	decodeJSON(t, created, &createdPayload)
	if createdPayload.Role != "contributor" || createdPayload.APIKey == "" {
		t.Fatalf("unexpected create payload: %+v", createdPayload)
	}

	// The freshly minted key authenticates.
	who := doReq(t, server.URL, createdPayload.APIKey, http.MethodGet, "/v1/whoami", nil)
	var whoPayload struct {
		UserName string `json:"userName"`
	}
	decodeJSON(t, who, &whoPayload)
	if whoPayload.UserName != "sam" {
		t.Fatalf("new key resolved to %q, want sam", whoPayload.UserName)
	}

	dup := doReq(t, server.URL, maryKey, http.MethodPost, "/v1/contributors", map[string]any{
		"userName": "sam",
	})
	if dup.StatusCode != http.StatusConflict {
		t.Fatalf("duplicate contributor returned %d, want 409", dup.StatusCode)
	}
	_ = dup.Body.Close()

	info := doReq(t, server.URL, maryKey, http.MethodGet, "/v1/contributors/sam", nil)
	if info.StatusCode != http.StatusOK {
		t.Fatalf("contributor info returned %d, want 200", info.StatusCode)
	}
	_ = info.Body.Close()

	removed := doReq(t, server.URL, maryKey, http.MethodDelete, "/v1/contributors/sam", nil)
	if removed.StatusCode != http.StatusNoContent {
		t.Fatalf("delete contributor returned %d, want 204", removed.StatusCode)
	}
	_ = removed.Body.Close()

	missing := doReq(t, server.URL, maryKey, http.MethodGet, "/v1/contributors/sam", nil)
	if missing.StatusCode != http.StatusNotFound {
		t.Fatalf("deleted contributor info returned %d, want 404", missing.StatusCode)
	}
	_ = missing.Body.Close()
}
