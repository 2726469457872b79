package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"github.com/joho/godotenv"
)

func main() {
	// .env is optional; real environment variables take precedence
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Ignoring .env: %v", err)
	}

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `Business Owner Take-Home Calculator

Works out corporation tax, salary tax, National Insurance and dividend tax
for the owner of a UK limited company, and how much of the gross profit
ends up in the owner's pocket. Allocations that do not fit within the
profit are cut back automatically (expenses first, then employer NI,
salary and pension) and dividends are capped at net profit.

Usage:
  %s [options]

Options:
`, os.Args[0])
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Examples:
  %s                               Embedded window (falls back to console)
  %s -console                      Print the calculation for config.yaml
  %s -console -salary 12570 -dividend 50000
  %s -inputs owner.hjson -pdf out.pdf
  %s -interactive                  Answer prompts for each input
  %s -optimize pocket              Find the salary/dividend split with most take-home
  %s -web -addr :8080              Web server mode (opens external browser)
  %s -list-tax-years               Show the configured tax years

Environment:
  TAKEHOME_CONFIG    default for -config
  TAKEHOME_ADDR      default for -addr
  TAKEHOME_TAX_YEAR  default for -tax-year
  A .env file in the working directory is loaded first if present.
`, os.Args[0], os.Args[0], os.Args[0], os.Args[0], os.Args[0], os.Args[0], os.Args[0], os.Args[0])
	}

	configFile := flag.String("config", envOr("TAKEHOME_CONFIG", "config.yaml"), "Path to YAML configuration file")
	taxYear := flag.String("tax-year", envOr("TAKEHOME_TAX_YEAR", ""), "Tax year label, e.g. 2024/25 or \"current\" (default from config)")
	inputsFile := flag.String("inputs", "", "Inputs snapshot file (.yaml, .yml, .json or .hjson)")

	overrides := make(map[string]*float64)
	overrides["rate"] = flag.Float64("rate", 0, "Daily rate (£)")
	overrides["days"] = flag.Float64("days", 0, "Working days in the year")
	overrides["expense"] = flag.Float64("expense", 0, "Business expenses (£)")
	overrides["employer-ni"] = flag.Float64("employer-ni", 0, "Employer NIC (£)")
	overrides["pension"] = flag.Float64("pension", 0, "Employer pension contribution (£)")
	overrides["salary"] = flag.Float64("salary", 0, "Salary (£)")
	overrides["dividend"] = flag.Float64("dividend", 0, "Dividend payout (£)")
	overrides["dividend-allowance"] = flag.Float64("dividend-allowance", 0, "Dividend allowance (£)")

	consoleMode := flag.Bool("console", false, "Use console output instead of the embedded window")
	interactive := flag.Bool("interactive", false, "Prompt for each input on the terminal")
	optimize := flag.String("optimize", "", "Sweep salary levels: \"pocket\" (max take-home) or \"tax\" (min tax)")
	step := flag.Float64("step", defaultOptimizationStep, "Salary increment for -optimize (£)")
	pdfFile := flag.String("pdf", "", "Write a PDF report to this file")
	htmlFile := flag.String("html", "", "Write an HTML report to this file")
	markdownFile := flag.String("markdown", "", "Write a Markdown report to this file")
	initConfig := flag.String("init-config", "", "Write the built-in configuration to this file and exit")
	listTaxYears := flag.Bool("list-tax-years", false, "List the configured tax years and exit")
	webMode := flag.Bool("web", false, "Start web server mode (opens external browser)")
	uiMode := flag.Bool("ui", false, "Start embedded browser mode (webview window)")
	webAddr := flag.String("addr", envOr("TAKEHOME_ADDR", "localhost:0"), "Web server address (for -web mode, use :0 for auto port)")
	flag.Parse()

	set := make(map[string]float64)
	taxYearGiven := false
	flag.Visit(func(f *flag.Flag) {
		if v, ok := overrides[f.Name]; ok {
			set[f.Name] = *v
		}
		if f.Name == "tax-year" {
			taxYearGiven = true
		}
	})

	config, err := loadConfigOrDefault(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	if *initConfig != "" {
		if err := SaveConfig(config, *initConfig); err != nil {
			fmt.Fprintf(os.Stderr, "Error saving config: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Configuration saved to %s\n", *initConfig)
		return
	}

	if *listTaxYears {
		if err := printTaxYears(os.Stdout, config); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	// The browser front ends open on the requested year
	if config, err = withDefaultTaxYear(config, *taxYear); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// Embedded browser mode
	if *uiMode {
		if err := runEmbeddedUI(config); err != nil {
			fmt.Fprintf(os.Stderr, "Embedded UI error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	// Web server mode (external browser)
	if *webMode {
		server, err := NewWebServer(config, *webAddr)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if err := server.Start(); err != nil {
			fmt.Fprintf(os.Stderr, "Web server error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	opts := consoleOptions{
		taxYear:      *taxYear,
		inputsFile:   *inputsFile,
		overrides:    set,
		interactive:  *interactive,
		optimize:     *optimize,
		step:         *step,
		pdfFile:      *pdfFile,
		htmlFile:     *htmlFile,
		markdownFile: *markdownFile,
	}

	// Any input or output flag means the user is scripting, not browsing
	useConsole := *consoleMode || *interactive || *optimize != "" || *inputsFile != "" ||
		*pdfFile != "" || *htmlFile != "" || *markdownFile != "" || len(set) > 0 || taxYearGiven

	if !useConsole {
		err := runEmbeddedUI(config)
		if err == nil {
			return
		}
		fmt.Fprintf(os.Stderr, "GUI error: %v\n", err)
		fmt.Println("Falling back to console mode...")
	}

	if err := runConsoleMode(os.Stdin, os.Stdout, config, opts); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// withDefaultTaxYear returns a copy of config whose default year is label,
// resolved through the registry so "current" works. An empty label leaves
// config untouched.
func withDefaultTaxYear(config *Config, label string) (*Config, error) {
	if label == "" {
		return config, nil
	}
	registry, err := config.Registry()
	if err != nil {
		return nil, err
	}
	ty, err := registry.Get(label)
	if err != nil {
		return nil, err
	}
	updated := *config
	updated.DefaultTaxYear = ty.Label
	return &updated, nil
}

// loadConfigOrDefault reads the user's configuration, using the built-in
// tables when the file does not exist
func loadConfigOrDefault(filename string) (*Config, error) {
	config, err := LoadConfig(filename)
	if err == nil {
		return config, nil
	}
	if !os.IsNotExist(err) {
		return nil, err
	}
	return LoadDefaultConfig()
}

// consoleOptions collects the console-mode flags
type consoleOptions struct {
	taxYear      string
	inputsFile   string
	overrides    map[string]float64 // Flag name -> value, only flags given on the command line
	interactive  bool
	optimize     string
	step         float64
	pdfFile      string
	htmlFile     string
	markdownFile string
}

// runConsoleMode resolves the inputs, prints the calculation and writes any
// requested reports
func runConsoleMode(stdin io.Reader, stdout io.Writer, config *Config, opts consoleOptions) error {
	registry, err := config.Registry()
	if err != nil {
		return err
	}

	ty, err := registry.Get(opts.taxYear)
	if err != nil {
		return err
	}

	in := config.Inputs
	if opts.inputsFile != "" {
		if in, err = LoadInputs(opts.inputsFile); err != nil {
			return fmt.Errorf("loading inputs: %w", err)
		}
	}
	in = applyInputOverrides(in, opts.overrides)

	if opts.interactive {
		builder := NewInteractiveInputBuilder(stdin, stdout, registry, in)
		ty, in = builder.Build(ty.Label)
	}
	in = in.Sanitize()

	PrintHeader(stdout, ty)

	requested := in
	calc := Recalculate(in, ty)

	if opts.optimize != "" {
		goal, err := parseOptimizationGoal(opts.optimize)
		if err != nil {
			return err
		}
		if err := validateOptimizationStep(opts.step); err != nil {
			return err
		}
		opt := OptimizeExtraction(in, ty, OptimizationOptions{Goal: goal, Step: opts.step})
		PrintOptimization(stdout, opt)
		calc = opt.Best
		requested = calc.Inputs
	}

	PrintCalculation(stdout, requested, calc)

	if opts.pdfFile != "" {
		if err := GeneratePDFReportFile(ty, requested, calc, opts.pdfFile); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "PDF report written to %s\n", opts.pdfFile)
	}
	if opts.markdownFile != "" {
		if err := GenerateMarkdownReport(ty, requested, calc, opts.markdownFile); err != nil {
			return fmt.Errorf("writing markdown report: %w", err)
		}
		fmt.Fprintf(stdout, "Markdown report written to %s\n", opts.markdownFile)
	}
	if opts.htmlFile != "" {
		if err := GenerateHTMLReport(ty, requested, calc, opts.htmlFile); err != nil {
			return fmt.Errorf("writing HTML report: %w", err)
		}
		fmt.Fprintf(stdout, "HTML report written to %s\n", opts.htmlFile)
	}
	return nil
}

// applyInputOverrides replaces the fields named by command line flags
func applyInputOverrides(in Inputs, set map[string]float64) Inputs {
	for name, v := range set {
		switch name {
		case "rate":
			in.Rate = v
		case "days":
			in.Days = v
		case "expense":
			in.Expense = v
		case "employer-ni":
			in.EmployerNI = v
		case "pension":
			in.Pension = v
		case "salary":
			in.Salary = v
		case "dividend":
			in.Dividend = v
		case "dividend-allowance":
			in.DividendAllowance = v
		}
	}
	return in
}

// printTaxYears lists every configured table, marking the default
func printTaxYears(w io.Writer, config *Config) error {
	registry, err := config.Registry()
	if err != nil {
		return err
	}
	for _, label := range registry.Labels() {
		ty, _ := registry.Get(label)
		marker := " "
		if label == registry.DefaultLabel() {
			marker = "*"
		}
		fmt.Fprintf(w, "%s %s  CT %s/%s  PA %s  basic band %s  dividend %s/%s/%s  NI %s/%s\n",
			marker, label,
			formatPercent(ty.CorporationTax.SmallRate), formatPercent(ty.CorporationTax.MainRate),
			FormatMoneyShort(ty.IncomeTax.PersonalAllowance), FormatMoneyShort(ty.IncomeTax.BasicRateLimit),
			formatPercent(ty.DividendTax.BasicRate), formatPercent(ty.DividendTax.HigherRate),
			formatPercent(ty.DividendTax.AdditionalRate),
			formatPercent(ty.NationalInsurance.MainRate), formatPercent(ty.NationalInsurance.UpperRate))
	}
	return nil
}

// openBrowser opens a URL in the default browser
func openBrowser(url string) {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", strings.ReplaceAll(url, "&", "^&"))
	default:
		fmt.Fprintf(os.Stderr, "Cannot open browser on %s\n", runtime.GOOS)
		return
	}

	if err := cmd.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "Error opening browser: %v\n", err)
	}
}
