package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func testClient(baseURL string) *Client {
	return NewClient(Options{
		BaseURL:           baseURL,
		APIKey:            "test-key",
		Timeout:           time.Second,
		RequestsPerMinute: 6000,
	}, noopLogger())
}

func TestClientMissingAPIKey(t *testing.T) {
	c := NewClient(Options{BaseURL: "http://localhost"}, noopLogger())
	if _, err := c.LiveMatches(context.Background()); err == nil {
		t.Fatal("缺少 api key 时应返回错误")
	}
}

func TestClientHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"message":"quota exceeded"}`))
	}))
	defer srv.Close()

	if _, err := testClient(srv.URL).LiveMatches(context.Background()); err == nil {
		t.Fatal("HTTP 429 应返回错误")
	}
}

func TestClientLiveMatches(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get(apiKeyHeader); got != "test-key" {
			t.Fatalf("缺少 api key header, 实际 %q", got)
		}
		if got := r.URL.Query().Get("live"); got != "all" {
			t.Fatalf("live 参数不正确: %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"response":[{
			"fixture":{"id":1035000,"status":{"short":"2H","elapsed":67}},
			"teams":{"home":{"name":"Alpha"},"away":{"name":"Beta"}},
			"goals":{"home":1,"away":null}
		}]}`))
	}))
	defer srv.Close()

	matches, err := testClient(srv.URL).LiveMatches(context.Background())
	if err != nil {
		t.Fatalf("成功响应不应报错: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("期望 1 场比赛, 实际 %d", len(matches))
	}
	match := matches[0]
	if match.FixtureID != 1035000 || match.Home != "Alpha" || match.Away != "Beta" {
		t.Fatalf("比赛字段解析不正确: %+v", match)
	}
	if match.Minute != 67 {
		t.Fatalf("elapsed 解析不正确: %d", match.Minute)
	}
	if match.HomeGoals != 1 || match.AwayGoals != 0 {
		t.Fatalf("null 进球应按 0 处理: %+v", match)
	}
}

func TestClientStatisticsMixedValueTypes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("fixture"); got != "55" {
			t.Fatalf("fixture 参数不正确: %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"response":[
			{"team":{"id":10,"name":"Alpha"},"statistics":[
				{"type":"Total attacks","value":54},
				{"type":"Shots on Goal","value":"4"},
				{"type":"Corner Kicks","value":null},
				{"type":"Ball Possession","value":"61%"}
			]},
			{"team":{"id":11,"name":"Beta"},"statistics":[
				{"type":"Total attacks","value":30},
				{"type":"Shots on Goal","value":1},
				{"type":"Corner Kicks","value":2}
			]}
		]}`))
	}))
	defer srv.Close()

	snapshot, err := testClient(srv.URL).Statistics(context.Background(), 55)
	if err != nil {
		t.Fatalf("成功响应不应报错: %v", err)
	}
	if len(snapshot) != 2 {
		t.Fatalf("期望 2 支球队, 实际 %d", len(snapshot))
	}
	if snapshot[0].TeamName != "Alpha" || len(snapshot[0].Statistics) != 4 {
		t.Fatalf("主队统计解析不正确: %+v", snapshot[0])
	}
}

func TestClientCurrentScore(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"response":[{
			"fixture":{"id":77,"status":{"short":"2H","elapsed":80}},
			"teams":{"home":{"name":"Alpha"},"away":{"name":"Beta"}},
			"goals":{"home":2,"away":0}
		}]}`))
	}))
	defer srv.Close()

	score, err := testClient(srv.URL).CurrentScore(context.Background(), 77)
	if err != nil {
		t.Fatalf("成功响应不应报错: %v", err)
	}
	if score.HomeGoals != 2 || score.AwayGoals != 0 || score.Total() != 2 {
		t.Fatalf("比分解析不正确: %+v", score)
	}
}

func TestClientCurrentScoreNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"response":[]}`))
	}))
	defer srv.Close()

	if _, err := testClient(srv.URL).CurrentScore(context.Background(), 404); err == nil {
		t.Fatal("空响应应报错")
	}
}

func noopLogger() zerolog.Logger {
	return zerolog.Nop()
}
