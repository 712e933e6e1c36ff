package e2e_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"reviewengine/internal/config"
	"reviewengine/internal/domain"
	"reviewengine/internal/idgen"
	"reviewengine/internal/service"
	"reviewengine/internal/storage/postgres"
	httptransport "reviewengine/internal/transport/http"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func TestE2EFlow(t *testing.T) {
	t.Run("reviewer onboarding", func(t *testing.T) {
		server := newTestServer(t)
		defer server.Close()

		client := server.Client()

		alice := invite(t, client, server.URL, "Alice", "alice@example.com", "cardiology")
		got := getReviewer(t, client, server.URL, alice.ReviewerID)
		if len(got.Expertise) != 1 || got.Expertise[0].Priority != domain.DefaultExpertisePriority {
			t.Fatalf("unexpected expertise: %+v", got.Expertise)
		}

		resp := doRequest(t, client, http.MethodPost, server.URL+"/reviewers/invite", map[string]any{
			"name":  "Alice again",
			"email": "ALICE@example.com",
		})
		resp.Body.Close()
		if resp.StatusCode != http.StatusConflict {
			t.Fatalf("duplicate invite status: %d", resp.StatusCode)
		}
	})

	t.Run("distribution and task lifecycle", func(t *testing.T) {
		server := newTestServer(t)
		defer server.Close()

		client := server.Client()

		alice := invite(t, client, server.URL, "Alice", "alice@example.com", "cardiology")
		bob := invite(t, client, server.URL, "Bob", "bob@example.com", "cardiology")
		setPriority(t, client, server.URL, alice.ReviewerID, "cardiology", 1)

		createProduct(t, client, server.URL, "p1", "cardiology")
		createProduct(t, client, server.URL, "p2", "cardiology")
		createProduct(t, client, server.URL, "p3", "radiology")

		report := autoDistribute(t, client, server.URL, "cardiology", "radiology")
		if len(report.Persisted.Created) != 2 {
			t.Fatalf("expected 2 created tasks, got %+v", report.Persisted.Created)
		}
		for _, task := range report.Persisted.Created {
			if task.ReviewerID == nil || *task.ReviewerID != alice.ReviewerID {
				t.Fatalf("expected alice to win on priority, got %+v", task)
			}
		}
		if len(report.Plan.Unassignable) != 1 || report.Plan.Unassignable[0] != "p3" {
			t.Fatalf("expected p3 unassignable, got %v", report.Plan.Unassignable)
		}

		resp := doRequest(t, client, http.MethodPost, server.URL+"/assignments", map[string]string{
			"product_id":  "p1",
			"reviewer_id": bob.ReviewerID,
		})
		resp.Body.Close()
		if resp.StatusCode != http.StatusConflict {
			t.Fatalf("expected conflict for assigned product, got %d", resp.StatusCode)
		}

		var p1Task string
		for _, task := range report.Persisted.Created {
			if task.ProductID == "p1" {
				p1Task = task.TaskID
			}
		}

		started := taskAction(t, client, http.MethodPost, server.URL+"/tasks/"+p1Task+"/start", nil)
		if started.Status != string(domain.StatusInProgress) || started.StartedAt == nil {
			t.Fatalf("unexpected started task: %+v", started)
		}
		completed := taskAction(t, client, http.MethodPost, server.URL+"/tasks/"+p1Task+"/complete", nil)
		if completed.Status != string(domain.StatusCompleted) || completed.CompletedAt == nil {
			t.Fatalf("unexpected completed task: %+v", completed)
		}

		resp = doRequest(t, client, http.MethodPost, server.URL+"/tasks/"+p1Task+"/start", nil)
		resp.Body.Close()
		if resp.StatusCode != http.StatusConflict {
			t.Fatalf("expected conflict restarting completed task, got %d", resp.StatusCode)
		}

		resp = doRequest(t, client, http.MethodPost, server.URL+"/assignments", map[string]string{
			"product_id":  "p1",
			"reviewer_id": bob.ReviewerID,
			"priority":    "HIGH",
		})
		resp.Body.Close()
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("reassign after completion status: %d", resp.StatusCode)
		}

		workloads := workload(t, client, server.URL)
		if workloads[alice.ReviewerID] != 1 || workloads[bob.ReviewerID] != 1 {
			t.Fatalf("unexpected workloads: %v", workloads)
		}
	})

	t.Run("health", func(t *testing.T) {
		server := newTestServer(t)
		defer server.Close()

		client := server.Client()

		resp, err := client.Get(server.URL + "/health")
		if err != nil {
			t.Fatalf("health request: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("health status: %d", resp.StatusCode)
		}
	})
}

// Helpers

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	ctx := context.Background()

	postgresContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:15-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "test",
				"POSTGRES_PASSWORD": "test",
				"POSTGRES_DB":       "test",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	t.Cleanup(func() {
		if err := postgresContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate postgres container: %v", err)
		}
	})

	host, err := postgresContainer.Host(ctx)
	if err != nil {
		t.Fatalf("failed to get postgres host: %v", err)
	}

	port, err := postgresContainer.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("failed to get postgres port: %v", err)
	}

	pgConfig := config.PostgresConfig{
		Host:     host,
		Port:     port.Port(),
		User:     "test",
		Password: "test",
		DBName:   "test",
		SSLMode:  "disable",
		MaxConns: 4,
	}

	store, err := postgres.New(ctx, pgConfig)
	if err != nil {
		t.Fatalf("failed to create postgres store: %v", err)
	}

	t.Cleanup(func() {
		store.Close()
	})

	ids, err := idgen.NewSnowflake(1)
	if err != nil {
		t.Fatalf("failed to create id generator: %v", err)
	}

	svc := service.New(store, ids, nil, nil)
	handler := httptransport.NewHandler(svc, nil)

	return httptest.NewServer(handler.Router())
}

type preferencePayload struct {
	Scope    string `json:"scope"`
	Key      string `json:"key"`
	Priority int    `json:"priority"`
}

type reviewerPayload struct {
	ReviewerID string              `json:"reviewer_id"`
	Name       string              `json:"name"`
	Email      string              `json:"email"`
	Role       string              `json:"role"`
	Expertise  []preferencePayload `json:"expertise"`
}

type taskPayload struct {
	TaskID      string     `json:"task_id"`
	ProductID   string     `json:"product_id"`
	ReviewerID  *string    `json:"reviewer_id"`
	Status      string     `json:"status"`
	Priority    string     `json:"priority"`
	StartedAt   *time.Time `json:"startedAt"`
	CompletedAt *time.Time `json:"completedAt"`
}

type distributionPayload struct {
	Plan struct {
		Unassignable    []string `json:"unassignable"`
		AlreadyAssigned []string `json:"already_assigned"`
	} `json:"plan"`
	Persisted struct {
		Created []taskPayload `json:"created"`
	} `json:"persisted"`
}

func invite(t *testing.T, client *http.Client, baseURL, name, email, category string) reviewerPayload {
	t.Helper()

	body := map[string]any{
		"name":  name,
		"email": email,
		"role":  "REVIEWER",
		"expertise": []map[string]string{
			{"scope": "CATEGORY", "key": category},
		},
	}

	resp := doRequest(t, client, http.MethodPost, baseURL+"/reviewers/invite", body)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("invite status: %d", resp.StatusCode)
	}

	var response struct {
		Reviewer reviewerPayload `json:"reviewer"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		t.Fatalf("decode reviewer: %v", err)
	}
	if response.Reviewer.ReviewerID == "" {
		t.Fatalf("invite response missing reviewer_id")
	}
	return response.Reviewer
}

func getReviewer(t *testing.T, client *http.Client, baseURL, id string) reviewerPayload {
	t.Helper()

	resp, err := client.Get(baseURL + "/reviewers/" + id)
	if err != nil {
		t.Fatalf("get reviewer: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get reviewer status: %d", resp.StatusCode)
	}

	var response struct {
		Reviewer reviewerPayload `json:"reviewer"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		t.Fatalf("decode reviewer: %v", err)
	}
	return response.Reviewer
}

func setPriority(t *testing.T, client *http.Client, baseURL, reviewerID, category string, priority int) {
	t.Helper()

	body := map[string]any{"scope": "CATEGORY", "key": category, "priority": priority}
	resp := doRequest(t, client, http.MethodPut, baseURL+"/reviewers/"+reviewerID+"/preferences/priority", body)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("set priority status: %d", resp.StatusCode)
	}
}

func createProduct(t *testing.T, client *http.Client, baseURL, id, category string) {
	t.Helper()

	body := map[string]string{
		"product_id": id,
		"name":       "Product " + id,
		"company_id": "acme",
		"category":   category,
	}
	resp := doRequest(t, client, http.MethodPost, baseURL+"/products", body)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("create product status: %d", resp.StatusCode)
	}
}

func autoDistribute(t *testing.T, client *http.Client, baseURL string, categories ...string) distributionPayload {
	t.Helper()

	resp := doRequest(t, client, http.MethodPost, baseURL+"/assignments/auto", map[string]any{
		"categories": categories,
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("auto distribute status: %d", resp.StatusCode)
	}

	var response distributionPayload
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		t.Fatalf("decode distribution: %v", err)
	}
	return response
}

func taskAction(t *testing.T, client *http.Client, method, url string, payload any) taskPayload {
	t.Helper()

	resp := doRequest(t, client, method, url, payload)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("%s %s status: %d", method, url, resp.StatusCode)
	}

	var response struct {
		Task taskPayload `json:"task"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		t.Fatalf("decode task: %v", err)
	}
	return response.Task
}

func workload(t *testing.T, client *http.Client, baseURL string) map[string]int {
	t.Helper()

	resp, err := client.Get(baseURL + "/workload")
	if err != nil {
		t.Fatalf("get workload: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("workload status: %d", resp.StatusCode)
	}

	var payload struct {
		Reviewers []struct {
			ReviewerID  string `json:"reviewer_id"`
			ActiveTasks int    `json:"active_tasks"`
		} `json:"reviewers"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode workload: %v", err)
	}

	result := make(map[string]int, len(payload.Reviewers))
	for _, r := range payload.Reviewers {
		result[r.ReviewerID] = r.ActiveTasks
	}
	return result
}

func doRequest(t *testing.T, client *http.Client, method, url string, payload any) *http.Response {
	t.Helper()

	var body bytes.Buffer
	if payload != nil {
		if err := json.NewEncoder(&body).Encode(payload); err != nil {
			t.Fatalf("encode payload: %v", err)
		}
	}

	req, err := http.NewRequestWithContext(context.Background(), method, url, &body)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}

	req.Header.Set("Content-Type", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}

	return resp
}
