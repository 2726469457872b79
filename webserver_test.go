package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/valyala/fasthttp"
)

func newTestServer(t *testing.T) *WebServer {
	t.Helper()
	config, err := LoadDefaultConfig()
	if err != nil {
		t.Fatalf("LoadDefaultConfig() error = %v", err)
	}
	ws, err := NewWebServer(config, "127.0.0.1:0")
	if err != nil {
		t.Fatalf("NewWebServer() error = %v", err)
	}
	ws.now = func() time.Time { return time.Date(2025, time.June, 30, 12, 0, 0, 0, time.UTC) }
	return ws
}

// serve runs one request through the router without a network listener
func serve(ws *WebServer, method, path string, body any) *fasthttp.RequestCtx {
	ctx := &fasthttp.RequestCtx{}
	ctx.Request.Header.SetMethod(method)
	ctx.Request.SetRequestURI(path)
	switch b := body.(type) {
	case nil:
	case string:
		ctx.Request.SetBodyString(b)
	default:
		data, _ := json.Marshal(b)
		ctx.Request.SetBody(data)
	}
	ws.Handler()(ctx)
	return ctx
}

func decodeResponse[T any](t *testing.T, ctx *fasthttp.RequestCtx) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(ctx.Response.Body(), &v); err != nil {
		t.Fatalf("response is not JSON: %v\n%s", err, ctx.Response.Body())
	}
	return v
}

func TestWebServer_Calculate(t *testing.T) {
	ws := newTestServer(t)

	t.Run("Given no inputs, When calculating, Then the configured defaults are used", func(t *testing.T) {
		ctx := serve(ws, fasthttp.MethodPost, "/api/calculate", "")
		if ctx.Response.StatusCode() != fasthttp.StatusOK {
			t.Fatalf("status = %d: %s", ctx.Response.StatusCode(), ctx.Response.Body())
		}
		resp := decodeResponse[APICalculationResponse](t, ctx)

		if !resp.Success || resp.TaxYear != "2024/25" || resp.Passes != 1 || resp.Rebalanced {
			t.Errorf("unexpected response: %+v", resp)
		}
		if _, err := uuid.Parse(resp.CalculationID); err != nil {
			t.Errorf("calculation_id %q is not a UUID: %v", resp.CalculationID, err)
		}
		assertMoneyEquals(t, 47015, resp.Results.PocketMoney, "pocket money")
		if resp.Display["corporation_tax"] != "£19,235.84" {
			t.Errorf("display corporation_tax = %q", resp.Display["corporation_tax"])
		}
		assertMoneyEquals(t, 99309, resp.Limits.Salary, "salary slider limit")
	})

	t.Run("Given overflowing inputs, When calculating, Then the corrected inputs and notes are returned", func(t *testing.T) {
		in := Inputs{Rate: 100, Days: 10, Expense: 800, EmployerNI: 500, Dividend: 50}
		ctx := serve(ws, fasthttp.MethodPost, "/api/calculate", APICalculationRequest{TaxYear: "2025/26", Inputs: &in})
		resp := decodeResponse[APICalculationResponse](t, ctx)

		if !resp.Rebalanced || resp.Passes != 2 || resp.TaxYear != "2025/26" {
			t.Errorf("unexpected response: %+v", resp)
		}
		assertMoneyEquals(t, 200, resp.Inputs.EmployerNI, "employer NI after rebalancing")
		assertMoneyEquals(t, 0, resp.Inputs.Dividend, "dividend after rebalancing")
		if len(resp.Notes) != 2 {
			t.Errorf("notes = %v; want two", resp.Notes)
		}
	})

	t.Run("Given a rate that overflows gross profit, When calculating, Then the inputs are clamped and the response is finite", func(t *testing.T) {
		in := Inputs{Rate: 1e308, Days: 10}
		ctx := serve(ws, fasthttp.MethodPost, "/api/calculate", APICalculationRequest{Inputs: &in})
		if ctx.Response.StatusCode() != fasthttp.StatusOK {
			t.Fatalf("status = %d: %s", ctx.Response.StatusCode(), ctx.Response.Body())
		}
		resp := decodeResponse[APICalculationResponse](t, ctx)
		assertMoneyEquals(t, maxInputAmount, resp.Inputs.Rate, "clamped rate")
		assertMoneyEquals(t, maxInputAmount*10, resp.Results.GrossProfit, "gross profit")
		if resp.Display["net_profit"] == "n/a" {
			t.Errorf("net profit is not finite: %+v", resp.Results)
		}
	})

	t.Run("Given each request, When calculating twice, Then calculation ids differ", func(t *testing.T) {
		a := decodeResponse[APICalculationResponse](t, serve(ws, fasthttp.MethodPost, "/api/calculate", ""))
		b := decodeResponse[APICalculationResponse](t, serve(ws, fasthttp.MethodPost, "/api/calculate", ""))
		if a.CalculationID == b.CalculationID {
			t.Error("calculation ids should be unique")
		}
	})
}

func TestWebServer_Errors(t *testing.T) {
	ws := newTestServer(t)
	tests := []struct {
		name        string
		method      string
		path        string
		body        any
		status      int
		errContains string
	}{
		{"unknown tax year", fasthttp.MethodPost, "/api/calculate", APICalculationRequest{TaxYear: "1990/91"}, fasthttp.StatusBadRequest, "unknown tax year"},
		{"malformed body", fasthttp.MethodPost, "/api/calculate", "{not json", fasthttp.StatusBadRequest, "Invalid request body"},
		{"wrong method", fasthttp.MethodGet, "/api/calculate", nil, fasthttp.StatusMethodNotAllowed, "Method not allowed"},
		{"wrong method on config", fasthttp.MethodPost, "/api/config", nil, fasthttp.StatusMethodNotAllowed, "Method not allowed"},
		{"unknown goal", fasthttp.MethodPost, "/api/optimize", APICalculationRequest{Goal: "fastest"}, fasthttp.StatusBadRequest, "unknown optimisation goal"},
		{"step too fine", fasthttp.MethodPost, "/api/optimize", APICalculationRequest{Step: 0.0001}, fasthttp.StatusBadRequest, "salary increment must be at least"},
		{"negative step", fasthttp.MethodPost, "/api/optimize", APICalculationRequest{Step: -5}, fasthttp.StatusBadRequest, "salary increment must be at least"},
		{"unknown path", fasthttp.MethodGet, "/api/nothing", nil, fasthttp.StatusNotFound, "Not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := serve(ws, tt.method, tt.path, tt.body)
			if ctx.Response.StatusCode() != tt.status {
				t.Errorf("status = %d; want %d", ctx.Response.StatusCode(), tt.status)
			}
			resp := decodeResponse[APICalculationResponse](t, ctx)
			if resp.Success || !strings.Contains(resp.Error, tt.errContains) {
				t.Errorf("response = %+v; want error containing %q", resp, tt.errContains)
			}
		})
	}
}

func TestWebServer_ConfigAndTaxYears(t *testing.T) {
	ws := newTestServer(t)

	cfg := decodeResponse[APIConfigResponse](t, serve(ws, fasthttp.MethodGet, "/api/config", nil))
	if cfg.DefaultTaxYear != "2024/25" || len(cfg.TaxYears) != 2 || cfg.Inputs != DefaultInputs() {
		t.Errorf("unexpected config response: %+v", cfg)
	}

	years := decodeResponse[[]TaxYearConstants](t, serve(ws, fasthttp.MethodGet, "/api/tax-years", nil))
	if len(years) != 2 || years[0].Label != "2024/25" || years[1].Label != "2025/26" {
		t.Errorf("unexpected tax years: %+v", years)
	}
}

func TestWebServer_Optimize(t *testing.T) {
	ws := newTestServer(t)

	ctx := serve(ws, fasthttp.MethodPost, "/api/optimize", APICalculationRequest{Goal: "tax", Step: 5000})
	resp := decodeResponse[APIOptimizationResponse](t, ctx)

	if !resp.Success || resp.Goal != "Minimise Tax" || resp.Evaluated == 0 || resp.Best == nil {
		t.Fatalf("unexpected response: %+v", resp)
	}
	want := OptimizeExtraction(DefaultInputs(), DefaultTaxYear(), OptimizationOptions{Goal: GoalMinTax, Step: 5000})
	assertMoneyEquals(t, want.Best.Results.MoneyLostToTaxes, resp.Best.Results.MoneyLostToTaxes, "best taxes paid")
}

func TestWebServer_Exports(t *testing.T) {
	ws := newTestServer(t)

	t.Run("PDF", func(t *testing.T) {
		ctx := serve(ws, fasthttp.MethodPost, "/api/export-pdf", APICalculationRequest{})
		if got := string(ctx.Response.Header.ContentType()); got != "application/pdf" {
			t.Errorf("content type = %q", got)
		}
		if !bytes.HasPrefix(ctx.Response.Body(), []byte("%PDF-")) {
			t.Error("body is not a PDF")
		}
		disposition := string(ctx.Response.Header.Peek("Content-Disposition"))
		if !strings.Contains(disposition, "tax-calculation-2025-06-30-120000.pdf") {
			t.Errorf("Content-Disposition = %q", disposition)
		}
	})

	t.Run("HTML", func(t *testing.T) {
		ctx := serve(ws, fasthttp.MethodPost, "/api/export-html", APICalculationRequest{})
		body := string(ctx.Response.Body())
		if !strings.HasPrefix(string(ctx.Response.Header.ContentType()), "text/html") || !strings.Contains(body, "<table>") {
			t.Errorf("unexpected HTML export: %s", body)
		}
	})
}

func TestWebServer_Index(t *testing.T) {
	ws := newTestServer(t)
	ctx := serve(ws, fasthttp.MethodGet, "/", nil)
	body := string(ctx.Response.Body())
	if !strings.Contains(body, "Business Owner Tax Calculator") || !strings.Contains(body, "/api/calculate") {
		t.Error("index page does not contain the calculator UI")
	}
}

func TestWebServer_RejectsInvalidConfig(t *testing.T) {
	config := &Config{TaxYears: []TaxYearConstants{withLabel("2024/25"), withLabel("2024/25")}}
	if _, err := NewWebServer(config, "127.0.0.1:0"); err == nil {
		t.Error("expected duplicate tax years to be rejected")
	}
}

func TestWebServer_StartForEmbedded(t *testing.T) {
	ws := newTestServer(t)
	url, cleanup, err := ws.StartForEmbedded()
	if err != nil {
		t.Skipf("cannot listen on loopback: %v", err)
	}
	defer cleanup()

	status, body, err := fasthttp.Get(nil, url+"/api/config")
	if err != nil {
		t.Fatalf("GET /api/config: %v", err)
	}
	if status != fasthttp.StatusOK || !bytes.Contains(body, []byte(`"default_tax_year":"2024/25"`)) {
		t.Errorf("status %d, body %s", status, body)
	}
}
