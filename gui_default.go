//go:build !console

package main

import (
	"fmt"

	webview "github.com/webview/webview_go"
)

// runEmbeddedUI starts the web server on a free local port and shows the
// calculator in a native webview window until it is closed
func runEmbeddedUI(config *Config) error {
	ws, err := NewWebServer(config, "localhost:0")
	if err != nil {
		return err
	}

	url, cleanup, err := ws.StartForEmbedded()
	if err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	defer cleanup()

	// false = no devtools
	w := webview.New(false)
	defer w.Destroy()

	w.SetTitle("Business Owner Tax Calculator")
	w.SetSize(1200, 860, webview.HintNone)
	w.Navigate(url)

	// Run blocks until window is closed
	w.Run()

	return nil
}
