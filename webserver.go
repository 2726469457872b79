package main

import (
	"fmt"
	"log"
	"net"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/valyala/fasthttp"
)

// WebServer serves the calculator UI and JSON API
type WebServer struct {
	config   *Config
	registry *TaxYearRegistry
	addr     string
	now      func() time.Time
}

// NewWebServer creates a new web server instance. The configured tax years
// are validated here, once, before any request is served.
func NewWebServer(config *Config, addr string) (*WebServer, error) {
	if config == nil {
		var err error
		if config, err = LoadDefaultConfig(); err != nil {
			return nil, fmt.Errorf("loading default config: %w", err)
		}
	}
	registry, err := config.Registry()
	if err != nil {
		return nil, err
	}
	return &WebServer{
		config:   config,
		registry: registry,
		addr:     addr,
		now:      time.Now,
	}, nil
}

// APICalculationRequest is the body of calculate, optimise and export calls
type APICalculationRequest struct {
	TaxYear string  `json:"tax_year"`         // Empty selects the default year
	Inputs  *Inputs `json:"inputs,omitempty"` // Nil uses the configured inputs
	Goal    string  `json:"goal,omitempty"`   // Optimise only: "pocket" or "tax"
	Step    float64 `json:"step,omitempty"`   // Optimise only: salary increment
}

// APICalculationResponse is the result of one calculation
type APICalculationResponse struct {
	Success       bool              `json:"success"`
	Error         string            `json:"error,omitempty"`
	CalculationID string            `json:"calculation_id,omitempty"`
	TaxYear       string            `json:"tax_year,omitempty"`
	Inputs        *Inputs           `json:"inputs,omitempty"`
	Results       *Results          `json:"results,omitempty"`
	Limits        *SliderLimits     `json:"limits,omitempty"`
	Rebalanced    bool              `json:"rebalanced"`
	Passes        int               `json:"passes,omitempty"`
	Notes         []string          `json:"notes,omitempty"`
	Display       map[string]string `json:"display,omitempty"`
}

// APIOptimizationResponse is the result of a salary sweep
type APIOptimizationResponse struct {
	Success   bool                    `json:"success"`
	Error     string                  `json:"error,omitempty"`
	Goal      string                  `json:"goal,omitempty"`
	Evaluated int                     `json:"evaluated"`
	Best      *APICalculationResponse `json:"best,omitempty"`
}

// APIConfigResponse describes the server's defaults
type APIConfigResponse struct {
	DefaultTaxYear string   `json:"default_tax_year"`
	TaxYears       []string `json:"tax_years"`
	Inputs         Inputs   `json:"inputs"`
}

// Handler returns the request router
func (ws *WebServer) Handler() fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		switch string(ctx.Path()) {
		case "/":
			ws.handleIndex(ctx)
		case "/api/config":
			ws.handleGetConfig(ctx)
		case "/api/tax-years":
			ws.handleTaxYears(ctx)
		case "/api/calculate":
			ws.handleCalculate(ctx)
		case "/api/optimize":
			ws.handleOptimize(ctx)
		case "/api/export-pdf":
			ws.handleExportPDF(ctx)
		case "/api/export-html":
			ws.handleExportHTML(ctx)
		default:
			sendJSONError(ctx, fasthttp.StatusNotFound, "Not found: "+string(ctx.Path()))
		}
	}
}

func (ws *WebServer) newServer() *fasthttp.Server {
	return &fasthttp.Server{
		Handler:      ws.Handler(),
		Name:         "goTakeHomeCalculator",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
}

// listen opens the listener and works out the browsable URL
func (ws *WebServer) listen() (net.Listener, string, error) {
	// Listen on the address (use :0 for auto-assign)
	listener, err := net.Listen("tcp", ws.addr)
	if err != nil {
		return nil, "", err
	}

	actualAddr := listener.Addr().String()
	url := fmt.Sprintf("http://%s", actualAddr)

	// If listening on all interfaces, use localhost for the URL
	if strings.HasPrefix(actualAddr, ":") || strings.HasPrefix(actualAddr, "0.0.0.0:") || strings.HasPrefix(actualAddr, "[::]:") {
		port := actualAddr[strings.LastIndex(actualAddr, ":")+1:]
		url = fmt.Sprintf("http://localhost:%s", port)
	}
	return listener, url, nil
}

// Start starts the web server, opens the browser and blocks
func (ws *WebServer) Start() error {
	listener, url, err := ws.listen()
	if err != nil {
		return err
	}

	log.Printf("Starting web server on %s", listener.Addr())
	log.Printf("Opening %s in your browser...", url)

	go openBrowser(url)

	return ws.newServer().Serve(listener)
}

// StartForEmbedded starts the server and returns the URL and a cleanup function.
// Unlike Start(), this does NOT open the browser and does NOT block.
func (ws *WebServer) StartForEmbedded() (url string, cleanup func(), err error) {
	listener, url, err := ws.listen()
	if err != nil {
		return "", nil, err
	}

	log.Printf("Starting embedded web server on %s", listener.Addr())

	server := ws.newServer()
	go func() {
		if err := server.Serve(listener); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	cleanup = func() {
		if err := server.Shutdown(); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
	}

	return url, cleanup, nil
}

// handleIndex serves the main web UI
func (ws *WebServer) handleIndex(ctx *fasthttp.RequestCtx) {
	if !ctx.IsGet() {
		sendJSONError(ctx, fasthttp.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	ctx.SetContentType("text/html; charset=utf-8")
	ctx.SetBodyString(webUIHTML)
}

// handleGetConfig returns the default inputs and available tax years
func (ws *WebServer) handleGetConfig(ctx *fasthttp.RequestCtx) {
	if !ctx.IsGet() {
		sendJSONError(ctx, fasthttp.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	sendJSON(ctx, fasthttp.StatusOK, APIConfigResponse{
		DefaultTaxYear: ws.registry.DefaultLabel(),
		TaxYears:       ws.registry.Labels(),
		Inputs:         ws.config.Inputs,
	})
}

// handleTaxYears returns every configured tax-year table
func (ws *WebServer) handleTaxYears(ctx *fasthttp.RequestCtx) {
	if !ctx.IsGet() {
		sendJSONError(ctx, fasthttp.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	sendJSON(ctx, fasthttp.StatusOK, ws.registry.All())
}

// parseRequest decodes a calculation request and resolves its tax year
func (ws *WebServer) parseRequest(ctx *fasthttp.RequestCtx) (APICalculationRequest, TaxYearConstants, Inputs, bool) {
	var req APICalculationRequest
	if !ctx.IsPost() {
		sendJSONError(ctx, fasthttp.StatusMethodNotAllowed, "Method not allowed")
		return req, TaxYearConstants{}, Inputs{}, false
	}
	if body := ctx.PostBody(); len(body) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			sendJSONError(ctx, fasthttp.StatusBadRequest, "Invalid request body: "+err.Error())
			return req, TaxYearConstants{}, Inputs{}, false
		}
	}

	ty, err := ws.registry.Get(req.TaxYear)
	if err != nil {
		sendJSONError(ctx, fasthttp.StatusBadRequest, err.Error())
		return req, TaxYearConstants{}, Inputs{}, false
	}

	in := ws.config.Inputs
	if req.Inputs != nil {
		in = *req.Inputs
	}
	return req, ty, in.Sanitize(), true
}

// handleCalculate runs the compute/rebalance pipeline for one snapshot
func (ws *WebServer) handleCalculate(ctx *fasthttp.RequestCtx) {
	_, ty, in, ok := ws.parseRequest(ctx)
	if !ok {
		return
	}
	sendJSON(ctx, fasthttp.StatusOK, buildCalculationResponse(ty, in, Recalculate(in, ty)))
}

// handleOptimize sweeps salary levels for the best split
func (ws *WebServer) handleOptimize(ctx *fasthttp.RequestCtx) {
	req, ty, in, ok := ws.parseRequest(ctx)
	if !ok {
		return
	}
	goal, err := parseOptimizationGoal(req.Goal)
	if err != nil {
		sendJSONError(ctx, fasthttp.StatusBadRequest, err.Error())
		return
	}
	if err := validateOptimizationStep(req.Step); err != nil {
		sendJSONError(ctx, fasthttp.StatusBadRequest, err.Error())
		return
	}

	opt := OptimizeExtraction(in, ty, OptimizationOptions{Goal: goal, Step: req.Step})
	// The sweep sets salary and dividend itself, so there is nothing to report as cut
	best := buildCalculationResponse(ty, opt.Best.Inputs, opt.Best)
	sendJSON(ctx, fasthttp.StatusOK, APIOptimizationResponse{
		Success:   true,
		Goal:      goal.String(),
		Evaluated: opt.Evaluated,
		Best:      &best,
	})
}

// handleExportPDF returns PDF content directly for browser download
func (ws *WebServer) handleExportPDF(ctx *fasthttp.RequestCtx) {
	_, ty, in, ok := ws.parseRequest(ctx)
	if !ok {
		return
	}
	now := ws.now()
	pdfBytes, err := GenerateCalculationPDF(ty, in, Recalculate(in, ty), now)
	if err != nil {
		log.Printf("PDF export failed: %v", err)
		sendJSONError(ctx, fasthttp.StatusInternalServerError, "Failed to generate PDF: "+err.Error())
		return
	}

	ctx.SetContentType("application/pdf")
	ctx.Response.Header.Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="tax-calculation-%s.pdf"`, now.Format("2006-01-02-150405")))
	ctx.SetBody(pdfBytes)
}

// handleExportHTML returns the standalone HTML report
func (ws *WebServer) handleExportHTML(ctx *fasthttp.RequestCtx) {
	_, ty, in, ok := ws.parseRequest(ctx)
	if !ok {
		return
	}
	page, err := RenderHTMLReport(ty, in, Recalculate(in, ty), ws.now())
	if err != nil {
		log.Printf("HTML export failed: %v", err)
		sendJSONError(ctx, fasthttp.StatusInternalServerError, "Failed to render report: "+err.Error())
		return
	}
	ctx.SetContentType("text/html; charset=utf-8")
	ctx.SetBody(page)
}

// buildCalculationResponse packages a pipeline run for the API
func buildCalculationResponse(ty TaxYearConstants, requested Inputs, calc Calculation) APICalculationResponse {
	limits := SliderLimitsFor(calc.Inputs, calc.Results)
	return APICalculationResponse{
		Success:       true,
		CalculationID: uuid.New().String(),
		TaxYear:       ty.Label,
		Inputs:        &calc.Inputs,
		Results:       &calc.Results,
		Limits:        &limits,
		Rebalanced:    calc.Rebalanced,
		Passes:        calc.Passes,
		Notes:         RebalanceNotes(requested, calc.Inputs),
		Display:       DisplayValues(calc.Results),
	}
}

// parseOptimizationGoal maps the API/flag spelling to a goal
func parseOptimizationGoal(s string) (OptimizationGoal, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "pocket", "income":
		return GoalMaxPocketMoney, nil
	case "tax":
		return GoalMinTax, nil
	default:
		return GoalMaxPocketMoney, fmt.Errorf("unknown optimisation goal %q (use \"pocket\" or \"tax\")", s)
	}
}

// sendJSON writes v as the JSON response body
func sendJSON(ctx *fasthttp.RequestCtx, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Printf("Encoding response failed: %v", err)
		ctx.Error("Internal Server Error", fasthttp.StatusInternalServerError)
		return
	}
	ctx.SetContentType("application/json")
	ctx.SetStatusCode(status)
	ctx.SetBody(data)
}

// sendJSONError sends a JSON error response
func sendJSONError(ctx *fasthttp.RequestCtx, status int, message string) {
	sendJSON(ctx, status, APICalculationResponse{
		Success: false,
		Error:   message,
	})
}

// webUIHTML is the embedded web interface HTML
const webUIHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>Business Owner Tax Calculator</title>
<style>
body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; margin: 0; background: #f5f7fa; color: #222; }
.calculator-container { max-width: 1100px; margin: 0 auto; padding: 24px; }
.calculator-title { color: #2c3e50; }
.calculator-grid { display: grid; grid-template-columns: 1fr 1fr; gap: 24px; }
.input-section, .result-section { background: #fff; border-radius: 8px; padding: 16px 20px; box-shadow: 0 1px 3px rgba(0,0,0,0.1); }
.input-group { margin-bottom: 12px; }
.input-group label { display: block; font-weight: 600; margin-bottom: 4px; }
.input-group input[type=range] { width: 100%; }
.flex { display: flex; gap: 12px; }
.result-section { margin-bottom: 16px; }
.result-section.green { border-top: 4px solid #27ae60; }
.result-section.yellow { border-top: 4px solid #f1c40f; }
.result-section.purple { border-top: 4px solid #8e44ad; }
.result-items p { display: flex; justify-content: space-between; margin: 6px 0; }
.label { color: #555; }
.notice { background: #fff8e1; border-left: 4px solid #f39c12; padding: 8px 12px; margin: 12px 0; display: none; }
button { margin-right: 8px; padding: 6px 12px; }
</style>
</head>
<body>
<div class="calculator-container">
  <h1 class="calculator-title">Business Owner Tax Calculator</h1>
  <div class="calculator-grid">
    <div class="input-section">
      <div class="input-group">
        <label for="taxYear">Tax Year</label>
        <select id="taxYear"></select>
      </div>
      <div class="flex">
        <div class="input-group"><label for="rate">Daily Rate (£)</label><input id="rate" type="number" min="0"></div>
        <div class="input-group"><label for="days">Working Days in a Year</label><input id="days" type="number" min="0" max="366"></div>
        <div class="input-group"><label>= Gross Profit (£)</label><span id="grossProfit"></span></div>
      </div>
      <h2>Expenses</h2>
      <div class="input-group"><label for="expense">Expenses <span id="expenseValue"></span></label><input id="expense" type="range" min="0"></div>
      <div class="input-group"><label for="employer_ni">Employer NIC <span id="employer_niValue"></span></label><input id="employer_ni" type="range" min="0"></div>
      <div class="input-group"><label for="salary">Payout Salary <span id="salaryValue"></span></label><input id="salary" type="range" min="0"></div>
      <div class="input-group"><label for="pension">Employer Pension <span id="pensionValue"></span></label><input id="pension" type="range" min="0"></div>
      <div class="input-group">Profits after expenses <p id="profit"></p></div>
      <h2>Payout (After Corporation Tax)</h2>
      <div class="input-group"><label for="dividend">Dividend Payout <span id="dividendValue"></span></label><input id="dividend" type="range" min="0"></div>
      <div class="input-group"><label for="dividend_allowance">Dividend Allowance (£)</label><input id="dividend_allowance" type="number" min="0"></div>
      <div id="notice" class="notice"></div>
      <button id="optimize">Optimise salary / dividend</button>
      <button id="pdf">Download PDF</button>
    </div>
    <div class="results-sections">
      <div class="result-section green"><h2>Calculated Values</h2><div class="result-items">
        <p><span class="label">Profit:</span><span data-key="profit"></span></p>
        <p><span class="label">Final Corporation Tax:</span><span data-key="corporation_tax"></span></p>
        <p><span class="label">Net Profit:</span><span data-key="net_profit"></span></p>
        <p><span class="label">Dividends:</span><span data-key="dividend"></span></p>
        <p><span class="label">Left in Business:</span><span data-key="left_in_business"></span></p>
      </div></div>
      <div class="result-section yellow"><h2>Pocket Money</h2><div class="result-items">
        <p><span class="label">Salary (after tax):</span><span data-key="salary_after_tax"></span></p>
        <p><span class="label">Dividends (after tax):</span><span data-key="dividends_after_tax"></span></p>
        <p><span class="label">Total Pocket Money:</span><span data-key="pocket_money"></span></p>
      </div></div>
      <div class="result-section purple"><h2>Taxes</h2><div class="result-items">
        <p><span class="label">Total Money Kept:</span><span data-key="total_money_kept"></span></p>
        <p><span class="label">Corporate Tax:</span><span data-key="corporation_tax"></span></p>
        <p><span class="label">Personal Dividend Tax:</span><span data-key="personal_dividend_tax"></span></p>
        <p><span class="label">Personal Salary Tax:</span><span data-key="personal_salary_tax"></span></p>
        <p><span class="label">Employee NI:</span><span data-key="employee_ni"></span></p>
        <p><span class="label">Employer NI:</span><span data-key="employer_ni"></span></p>
        <p><span class="label">Taxes Paid:</span><span data-key="money_lost_to_taxes"></span></p>
      </div></div>
    </div>
  </div>
</div>
<script>
const fields = ['rate', 'days', 'expense', 'employer_ni', 'pension', 'salary', 'dividend', 'dividend_allowance'];
const sliders = ['expense', 'employer_ni', 'salary', 'pension', 'dividend'];
let pending = null;

function currentInputs() {
  const inputs = {};
  for (const f of fields) { inputs[f] = parseFloat(document.getElementById(f).value) || 0; }
  return inputs;
}

function currentRequest(extra) {
  return Object.assign({ tax_year: document.getElementById('taxYear').value, inputs: currentInputs() }, extra || {});
}

function render(resp) {
  if (!resp.success) { showNotice(resp.error); return; }
  for (const s of sliders) {
    const el = document.getElementById(s);
    el.max = resp.limits[s];
    el.value = resp.inputs[s];
    document.getElementById(s + 'Value').textContent = resp.display[s];
  }
  document.getElementById('salary').value = resp.inputs.salary;
  document.getElementById('grossProfit').textContent = resp.display.gross_profit;
  document.getElementById('profit').textContent = '= ' + resp.display.profit;
  document.querySelectorAll('[data-key]').forEach(el => { el.textContent = resp.display[el.dataset.key]; });
  showNotice(resp.rebalanced ? resp.notes.join('; ') : '');
}

function showNotice(text) {
  const n = document.getElementById('notice');
  n.textContent = text || '';
  n.style.display = text ? 'block' : 'none';
}

async function post(path, body) {
  const r = await fetch(path, { method: 'POST', headers: { 'Content-Type': 'application/json' }, body: JSON.stringify(body) });
  return r.json();
}

function recalculate() {
  clearTimeout(pending);
  pending = setTimeout(async () => render(await post('/api/calculate', currentRequest())), 60);
}

async function init() {
  const cfg = await (await fetch('/api/config')).json();
  const sel = document.getElementById('taxYear');
  for (const label of cfg.tax_years) {
    const opt = document.createElement('option');
    opt.value = label; opt.textContent = label;
    if (label === cfg.default_tax_year) opt.selected = true;
    sel.appendChild(opt);
  }
  for (const f of fields) {
    const el = document.getElementById(f);
    el.max = 1e9;
    el.value = cfg.inputs[f];
    el.addEventListener('input', recalculate);
  }
  sel.addEventListener('change', recalculate);
  document.getElementById('optimize').addEventListener('click', async () => {
    const resp = await post('/api/optimize', currentRequest({ goal: 'pocket' }));
    if (resp.success) { render(resp.best); } else { showNotice(resp.error); }
  });
  document.getElementById('pdf').addEventListener('click', async () => {
    const r = await fetch('/api/export-pdf', { method: 'POST', headers: { 'Content-Type': 'application/json' }, body: JSON.stringify(currentRequest()) });
    const url = URL.createObjectURL(await r.blob());
    const a = document.createElement('a');
    a.href = url; a.download = 'tax-calculation.pdf'; a.click();
    URL.revokeObjectURL(url);
  });
  render(await post('/api/calculate', currentRequest()));
}

init();
</script>
</body>
</html>
`
