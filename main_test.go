package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
)

func TestApplyInputOverrides(t *testing.T) {
	in := applyInputOverrides(DefaultInputs(), map[string]float64{
		"salary":             9100,
		"dividend":           0,
		"employer-ni":        0,
		"dividend-allowance": 1000,
	})

	want := DefaultInputs()
	want.Salary = 9100
	want.Dividend = 0
	want.EmployerNI = 0
	want.DividendAllowance = 1000
	if in != want {
		t.Errorf("got %+v; want %+v", in, want)
	}

	if got := applyInputOverrides(DefaultInputs(), nil); got != DefaultInputs() {
		t.Errorf("no overrides changed inputs: %+v", got)
	}
}

func TestParseOptimizationGoal(t *testing.T) {
	tests := []struct {
		input   string
		want    OptimizationGoal
		wantErr bool
	}{
		{"", GoalMaxPocketMoney, false},
		{"pocket", GoalMaxPocketMoney, false},
		{"Income", GoalMaxPocketMoney, false},
		{" TAX ", GoalMinTax, false},
		{"cheapest", GoalMaxPocketMoney, true},
	}
	for _, tt := range tests {
		got, err := parseOptimizationGoal(tt.input)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("parseOptimizationGoal(%q) = %v, %v", tt.input, got, err)
		}
	}
}

func TestLoadConfigOrDefault(t *testing.T) {
	config, err := loadConfigOrDefault(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("missing file should fall back to defaults: %v", err)
	}
	if config.DefaultTaxYear != "2024/25" {
		t.Errorf("DefaultTaxYear = %q", config.DefaultTaxYear)
	}

	if _, err := loadConfigOrDefault(writeFile(t, "bad.yaml", "tax_years: [oops\n")); err == nil {
		t.Error("a broken file must not silently fall back to defaults")
	}
}

func TestWithDefaultTaxYear(t *testing.T) {
	config, err := LoadDefaultConfig()
	if err != nil {
		t.Fatalf("LoadDefaultConfig() error = %v", err)
	}

	t.Run("Given a tax year flag, When starting the web server, Then it defaults to that year", func(t *testing.T) {
		updated, err := withDefaultTaxYear(config, "2025/26")
		if err != nil {
			t.Fatalf("withDefaultTaxYear() error = %v", err)
		}
		if config.DefaultTaxYear != "2024/25" {
			t.Errorf("original config was modified: %q", config.DefaultTaxYear)
		}

		ws, err := NewWebServer(updated, "127.0.0.1:0")
		if err != nil {
			t.Fatalf("NewWebServer() error = %v", err)
		}
		resp := decodeResponse[APICalculationResponse](t, serve(ws, "POST", "/api/calculate", ""))
		if resp.TaxYear != "2025/26" {
			t.Errorf("tax_year = %q; want 2025/26", resp.TaxYear)
		}
		cfg := decodeResponse[APIConfigResponse](t, serve(ws, "GET", "/api/config", nil))
		if cfg.DefaultTaxYear != "2025/26" {
			t.Errorf("default_tax_year = %q; want 2025/26", cfg.DefaultTaxYear)
		}
	})

	t.Run("Given no tax year, When resolving, Then the config is returned as is", func(t *testing.T) {
		if got, err := withDefaultTaxYear(config, ""); err != nil || got != config {
			t.Errorf("withDefaultTaxYear(\"\") = %p, %v", got, err)
		}
	})

	t.Run("Given an unknown tax year, When resolving, Then an error is returned", func(t *testing.T) {
		if _, err := withDefaultTaxYear(config, "1999/00"); err == nil {
			t.Error("expected an unknown tax year error")
		}
	})
}

func TestRunConsoleMode(t *testing.T) {
	config, err := LoadDefaultConfig()
	if err != nil {
		t.Fatalf("LoadDefaultConfig() error = %v", err)
	}

	t.Run("Given flag overrides, When running, Then the rebalanced calculation is printed", func(t *testing.T) {
		var out bytes.Buffer
		err := runConsoleMode(strings.NewReader(""), &out, config, consoleOptions{
			overrides: map[string]float64{"rate": 100, "days": 10, "expense": 800, "employer-ni": 500, "salary": 0, "pension": 0, "dividend": 0},
		})
		if err != nil {
			t.Fatalf("runConsoleMode() error = %v", err)
		}
		if !strings.Contains(out.String(), "Employer NIC reduced from £500.00 to £200.00") {
			t.Errorf("missing rebalance note:\n%s", out.String())
		}
	})

	t.Run("Given an overflowing rate flag, When running, Then the report prints without panicking", func(t *testing.T) {
		var out bytes.Buffer
		err := runConsoleMode(strings.NewReader(""), &out, config, consoleOptions{
			overrides: map[string]float64{"rate": 1e308, "days": 10},
		})
		if err != nil {
			t.Fatalf("runConsoleMode() error = %v", err)
		}
		if strings.Contains(out.String(), "n/a") {
			t.Errorf("non-finite figure in report:\n%s", out.String())
		}
	})

	t.Run("Given an inputs file and report paths, When running, Then every report is written", func(t *testing.T) {
		dir := t.TempDir()
		opts := consoleOptions{
			taxYear:      "2025/26",
			inputsFile:   writeFile(t, "owner.hjson", "{\n  rate: 500\n  days: 200\n  salary: 12570\n  dividend: 30000\n  dividend_allowance: 500\n}\n"),
			optimize:     "pocket",
			step:         5000,
			pdfFile:      filepath.Join(dir, "out.pdf"),
			htmlFile:     filepath.Join(dir, "out.html"),
			markdownFile: filepath.Join(dir, "out.md"),
		}
		var out bytes.Buffer
		if err := runConsoleMode(strings.NewReader(""), &out, config, opts); err != nil {
			t.Fatalf("runConsoleMode() error = %v", err)
		}
		for _, want := range []string{"Tax year 2025/26", "Optimisation (Maximise Pocket Money)", "PDF report written", "HTML report written", "Markdown report written"} {
			if !strings.Contains(out.String(), want) {
				t.Errorf("output missing %q", want)
			}
		}
		for _, p := range []string{opts.pdfFile, opts.htmlFile, opts.markdownFile} {
			assertFileNotEmpty(t, p)
		}
	})

	t.Run("Given interactive mode, When answers are piped in, Then they are used", func(t *testing.T) {
		var out bytes.Buffer
		err := runConsoleMode(strings.NewReader("\n800\n"), &out, config, consoleOptions{interactive: true})
		if err != nil {
			t.Fatalf("runConsoleMode() error = %v", err)
		}
		if !strings.Contains(out.String(), "£800.00") {
			t.Errorf("interactive rate not used:\n%s", out.String())
		}
	})

	t.Run("Given an unknown tax year or goal, When running, Then an error is returned", func(t *testing.T) {
		var out bytes.Buffer
		if err := runConsoleMode(strings.NewReader(""), &out, config, consoleOptions{taxYear: "1999/00"}); err == nil {
			t.Error("expected an unknown tax year error")
		}
		if err := runConsoleMode(strings.NewReader(""), &out, config, consoleOptions{optimize: "fastest"}); err == nil {
			t.Error("expected an unknown goal error")
		}
		if err := runConsoleMode(strings.NewReader(""), &out, config, consoleOptions{optimize: "pocket", step: 0.0001}); err == nil {
			t.Error("expected a step error")
		}
		if err := runConsoleMode(strings.NewReader(""), &out, config, consoleOptions{inputsFile: "missing.yaml"}); err == nil {
			t.Error("expected a missing inputs file error")
		}
	})
}

func TestPrintTaxYears(t *testing.T) {
	config, err := LoadDefaultConfig()
	if err != nil {
		t.Fatalf("LoadDefaultConfig() error = %v", err)
	}

	var out bytes.Buffer
	if err := printTaxYears(&out, config); err != nil {
		t.Fatalf("printTaxYears() error = %v", err)
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected two tax years, got:\n%s", out.String())
	}
	if !strings.HasPrefix(lines[0], "* 2024/25") || !strings.HasPrefix(lines[1], "  2025/26") {
		t.Errorf("default year should be marked:\n%s", out.String())
	}
	if !strings.Contains(lines[0], "CT 19%/25%") || !strings.Contains(lines[0], "dividend 8.75%/33.75%/39.35%") {
		t.Errorf("unexpected rates line: %s", lines[0])
	}
}
