package main

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/okian/guessconv/internal/config"
	"github.com/okian/guessconv/internal/domain/types"
	"github.com/okian/guessconv/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

func testConfig() *config.Config {
	cfg := config.New(context.Background())
	cfg.StoreDriver = config.DriverMemory
	cfg.AdminToken = "admin"
	return cfg
}

func TestBuildHandler(t *testing.T) {
	convey.Convey("Given the assembled server", t, func() {
		ctx := context.Background()
		cfg := testConfig()
		log := logger.Nop()

		svc, hub, err := buildService(ctx, cfg, log)
		convey.So(err, convey.ShouldBeNil)
		defer hub.Close()
		h, err := buildHandler(ctx, cfg, svc, hub, log)
		convey.So(err, convey.ShouldBeNil)

		get := func(path string) *httptest.ResponseRecorder {
			w := httptest.NewRecorder()
			h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
			return w
		}

		convey.Convey("Then every surface is routed", func() {
			for _, path := range []string{"/", "/api/leaderboard", "/api/companies", "/api/share.png", "/healthz", "/stats", "/openapi.yaml"} {
				convey.So(get(path).Code, convey.ShouldEqual, http.StatusOK)
			}
		})

		convey.Convey("Then the leaderboard starts empty", func() {
			var resp types.LeaderboardResponse
			convey.So(json.Unmarshal(get("/api/leaderboard").Body.Bytes(), &resp), convey.ShouldBeNil)
			convey.So(resp.Error, convey.ShouldBeEmpty)
			convey.So(resp.Leaderboard, convey.ShouldBeEmpty)
		})
	})

	convey.Convey("Given postgres without a DSN", t, func() {
		cfg := testConfig()
		cfg.StoreDriver = config.DriverPostgres
		cfg.PostgresDSN = ""

		svc, hub, err := buildService(context.Background(), cfg, logger.Nop())
		convey.So(err, convey.ShouldBeNil)
		defer hub.Close()
		h, err := buildHandler(context.Background(), cfg, svc, hub, logger.Nop())
		convey.So(err, convey.ShouldBeNil)

		convey.Convey("Then the leaderboard reports missing configuration", func() {
			w := httptest.NewRecorder()
			h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/leaderboard", nil))
			var resp types.LeaderboardResponse
			convey.So(json.Unmarshal(w.Body.Bytes(), &resp), convey.ShouldBeNil)
			convey.So(resp.Error, convey.ShouldEqual, "Database configuration missing")
		})
	})

	convey.Convey("Given an unknown order", t, func() {
		cfg := testConfig()
		cfg.LeaderboardOrder = "fastest"
		_, _, err := buildService(context.Background(), cfg, logger.Nop())
		convey.So(err, convey.ShouldNotBeNil)
	})
}

func TestRun(t *testing.T) {
	convey.Convey("Given a server on a free port", t, func() {
		l, err := net.Listen("tcp", "127.0.0.1:0")
		convey.So(err, convey.ShouldBeNil)
		port := l.Addr().(*net.TCPAddr).Port
		convey.So(l.Close(), convey.ShouldBeNil)

		cfg := testConfig()
		cfg.Addr = "127.0.0.1:" + strconv.Itoa(port)
		cfg.ShutdownTimeoutMS = 1000

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- run(ctx, cfg, logger.Nop()) }()

		convey.Convey("Then it serves until canceled", func() {
			var resp *http.Response
			for i := 0; i < 50; i++ {
				resp, err = http.Get("http://" + cfg.Addr + "/api/leaderboard")
				if err == nil {
					break
				}
				time.Sleep(20 * time.Millisecond)
			}
			convey.So(err, convey.ShouldBeNil)
			_ = resp.Body.Close()
			convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusOK)

			cancel()
			select {
			case err := <-done:
				convey.So(err, convey.ShouldBeNil)
			case <-time.After(3 * time.Second):
				t.Fatal("server did not stop")
			}
		})
	})
}
