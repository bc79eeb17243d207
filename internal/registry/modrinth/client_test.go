package modrinth

import (
	"context"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/modfetch/modfetch/internal/domain"
	"github.com/modfetch/modfetch/internal/log"
)

var testTarget = domain.Target{GameVersion: "1.21.5", Loader: "fabric"}

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, "", 5*time.Second, log.NullLogger()), srv
}

func TestSearch(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("query") != "lithium" {
			t.Errorf("query = %q", q.Get("query"))
		}
		facets := q.Get("facets")
		if facets != `[["versions:1.21.5"],["categories:fabric"]]` {
			t.Errorf("facets = %s", facets)
		}
		fmt.Fprint(w, `{"hits":[
			{"project_id":"gvQqBUqZ","slug":"lithium","title":"Lithium","description":"optimization mod","downloads":12000000},
			{"project_id":"abc","slug":"lithium-lite","title":"Lithium Lite","description":"","downloads":100}
		],"total_hits":2}`)
	})

	projects, err := client.Search(context.Background(), "lithium", testTarget, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(projects) != 2 {
		t.Fatalf("got %d projects, want 2", len(projects))
	}
	if projects[0].Slug != "lithium" || projects[0].Source != "modrinth" {
		t.Errorf("first hit = %+v", projects[0])
	}
	if projects[0].Downloads != 12000000 {
		t.Errorf("downloads = %d", projects[0].Downloads)
	}
}

func TestSearchRejectsBadInput(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	})

	if _, err := client.Search(context.Background(), "", testTarget, 10); err == nil {
		t.Error("empty term should be rejected")
	}
	if _, err := client.Search(context.Background(), "lithium", domain.Target{Loader: "fabric"}, 10); err == nil {
		t.Error("incomplete target should be rejected")
	}
}

func TestResolveSelectsNewestCompatible(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/project/lithium/version" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		fmt.Fprint(w, `[
			{"id":"v-old","project_id":"gvQqBUqZ","name":"Lithium 0.15","version_number":"0.15",
			 "game_versions":["1.21.5"],"loaders":["fabric"],"date_published":"2025-01-01T00:00:00Z",
			 "files":[{"url":"https://cdn.example/old.jar","filename":"lithium-0.15.jar","primary":true,"hashes":{"sha512":"aa"}}]},
			{"id":"v-new","project_id":"gvQqBUqZ","name":"Lithium 0.16","version_number":"0.16",
			 "game_versions":["1.21.4","1.21.5"],"loaders":["fabric"],"date_published":"2025-06-01T00:00:00Z",
			 "files":[{"url":"https://cdn.example/new.jar","filename":"lithium-0.16.jar","primary":true,"hashes":{"sha512":"bb","sha1":"cc"}}],
			 "dependencies":[{"project_id":"P7dR8mSH","dependency_type":"required"},{"project_id":"opt","dependency_type":"optional"}]},
			{"id":"v-other","project_id":"gvQqBUqZ","name":"Lithium forge","version_number":"0.16",
			 "game_versions":["1.21.5"],"loaders":["forge"],"date_published":"2025-07-01T00:00:00Z",
			 "files":[{"url":"https://cdn.example/forge.jar","filename":"lithium-forge.jar","primary":true,"hashes":{"sha512":"dd"}}]}
		]`)
	})

	v, err := client.Resolve(context.Background(), "lithium", testTarget)
	if err != nil {
		t.Fatal(err)
	}
	if v.VersionID != "v-new" {
		t.Errorf("selected %s, want v-new (newest compatible)", v.VersionID)
	}
	if v.Checksum.Algo != "sha512" || v.Checksum.Value != "bb" {
		t.Errorf("checksum = %+v, want declared sha512", v.Checksum)
	}
	if len(v.Dependencies) != 1 || v.Dependencies[0] != "P7dR8mSH" {
		t.Errorf("dependencies = %v, want required only", v.Dependencies)
	}
}

func TestResolveNoCompatibleVersion(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"id":"v1","project_id":"p","name":"n","version_number":"1",
			"game_versions":["1.19.2"],"loaders":["fabric"],"date_published":"2023-01-01T00:00:00Z",
			"files":[{"url":"u","filename":"f.jar","primary":true,"hashes":{"sha512":"aa"}}]}]`)
	})

	_, err := client.Resolve(context.Background(), "oldmod", testTarget)
	if !errors.Is(err, domain.ErrNoVersion) {
		t.Errorf("err = %v, want ErrNoVersion", err)
	}
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		status int
		check  func(error) bool
		name   string
	}{
		{http.StatusNotFound, func(err error) bool { return errors.Is(err, domain.ErrNotFound) }, "not found"},
		{http.StatusTooManyRequests, func(err error) bool { return errors.Is(err, domain.ErrRateLimited) }, "rate limited"},
		{http.StatusBadGateway, func(err error) bool {
			var te *domain.TransportError
			return errors.As(err, &te)
		}, "server error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			})
			_, err := client.Resolve(context.Background(), "anything", testTarget)
			if err == nil || !tt.check(err) {
				t.Errorf("status %d mapped to %v", tt.status, err)
			}
		})
	}
}

func TestDownloadVerifiesChecksum(t *testing.T) {
	payload := []byte("jar bytes")
	sum := sha512.Sum512(payload)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(payload)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "", 5*time.Second, log.NullLogger())

	good := &domain.Version{
		Filename: "mod.jar",
		URL:      srv.URL + "/mod.jar",
		Checksum: domain.Checksum{Algo: "sha512", Value: hex.EncodeToString(sum[:])},
	}
	data, err := client.Download(context.Background(), good)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != string(payload) {
		t.Error("downloaded bytes differ from payload")
	}

	bad := &domain.Version{
		Filename: "mod.jar",
		URL:      srv.URL + "/mod.jar",
		Checksum: domain.Checksum{Algo: "sha512", Value: "deadbeef"},
	}
	_, err = client.Download(context.Background(), bad)
	if !errors.Is(err, domain.ErrIntegrity) {
		t.Errorf("mismatched checksum: err = %v, want ErrIntegrity", err)
	}
}
