// Package setup implements the interactive terminal configuration wizard.
package setup

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/ladder/config"
	"gopkg.in/yaml.v3"
)

var (
	subtle    = lipgloss.AdaptiveColor{Light: "#D9DCCF", Dark: "#383838"}
	highlight = lipgloss.AdaptiveColor{Light: "#874BFD", Dark: "#7D56F4"}
	special   = lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"}

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Background(highlight).
			Padding(1, 2).
			Bold(true).
			MarginBottom(1)

	stepStyle = lipgloss.NewStyle().
			Foreground(special).
			Bold(true).
			MarginTop(1).
			MarginBottom(0)
)

// RunTUI launches the terminal configuration wizard and writes the result
// to config.gen.yaml.
func RunTUI() error {
	var (
		platform         string
		symbolsStr       string
		orderValueStr    string
		belowPercentStr  string
		profitPercentStr string
		maxOrdersStr     string
		orderTTLStr      string
		listenAddr       string
		webhookToken     string
		confirm          bool
	)

	// defaults
	orderValueStr = "100"
	belowPercentStr = "0.5"
	profitPercentStr = "2"
	maxOrdersStr = "10"
	orderTTLStr = "5m"
	listenAddr = ":8080"

	fmt.Print("\033[H\033[2J")
	fmt.Println(headerStyle.Render("LADDER CONFIG WIZARD"))
	fmt.Println(lipgloss.NewStyle().Foreground(subtle).Render("Let's set up your trading bot.\n"))

	// platform
	fmt.Println(stepStyle.Render("STEP 1: PLATFORM"))
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Select Exchange Platform").
				Options(
					huh.NewOption("Binance", "binance"),
					huh.NewOption("Bybit", "bybit"),
				).
				Value(&platform),
		),
	).Run()
	if err != nil {
		return err
	}

	// symbols
	fmt.Print("\033[H\033[2J")
	fmt.Println(headerStyle.Render("LADDER CONFIG WIZARD"))
	fmt.Println(stepStyle.Render("STEP 2: SYMBOLS"))
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Trading Symbols").
				Description("Comma separated (e.g. BTCUSDT,ETHUSDT)").
				Value(&symbolsStr).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("at least one symbol is required")
					}
					return nil
				}),
		),
	).Run()
	if err != nil {
		return err
	}

	// strategy settings
	fmt.Print("\033[H\033[2J")
	fmt.Println(headerStyle.Render("LADDER CONFIG WIZARD"))
	fmt.Println(stepStyle.Render("STEP 3: STRATEGY SETTINGS"))
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Order Value").
				Description("Quote asset amount per buy order (e.g. 100)").
				Value(&orderValueStr).
				Validate(validatePositiveDecimal),
			huh.NewInput().
				Title("Buy Step %").
				Description("Each next entry sits this far below the last (e.g. 0.5)").
				Value(&belowPercentStr).
				Validate(validatePositiveDecimal),
			huh.NewInput().
				Title("Take Profit %").
				Description("Price rise above average entry to exit (e.g. 2)").
				Value(&profitPercentStr).
				Validate(validatePositiveDecimal),
			huh.NewInput().
				Title("Max Open Orders").
				Description("Cap on open lots per symbol (e.g. 10)").
				Value(&maxOrdersStr),
			huh.NewInput().
				Title("Order TTL").
				Description("Unfilled order lifetime before re-quote (e.g. 5m)").
				Value(&orderTTLStr).
				Validate(func(s string) error {
					_, err := time.ParseDuration(s)
					return err
				}),
		),
	).Run()
	if err != nil {
		return err
	}

	// web settings
	fmt.Print("\033[H\033[2J")
	fmt.Println(headerStyle.Render("LADDER CONFIG WIZARD"))
	fmt.Println(stepStyle.Render("STEP 4: WEB"))
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Listen Address").
				Description("Address for webhook and dashboard (e.g. :8080)").
				Value(&listenAddr),
			huh.NewInput().
				Title("Webhook Token").
				Description("Shared secret for inbound signals, empty disables auth").
				Value(&webhookToken).
				EchoMode(huh.EchoModePassword),
		),
	).Run()
	if err != nil {
		return err
	}

	// confirmation
	fmt.Print("\033[H\033[2J")
	fmt.Println(headerStyle.Render("LADDER CONFIG WIZARD"))
	fmt.Println(stepStyle.Render("FINAL CONFIRMATION"))

	summary := fmt.Sprintf(
		"Platform: %s\nSymbols: %s\nOrder value: %s\nBuy step: %s%%\nTake profit: %s%%\nMax orders: %s\nOrder TTL: %s\nListen: %s\n",
		platform, symbolsStr, orderValueStr, belowPercentStr, profitPercentStr, maxOrdersStr, orderTTLStr, listenAddr,
	)
	fmt.Println(lipgloss.NewStyle().Border(lipgloss.NormalBorder()).Padding(1).Render(summary))

	err = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Save Configuration?").
				Affirmative("Yes, save").
				Negative("No, exit").
				Value(&confirm),
		),
	).Run()
	if err != nil {
		return err
	}

	if !confirm {
		return fmt.Errorf("setup cancelled by user")
	}

	orderTTL, _ := time.ParseDuration(orderTTLStr)
	maxOrders := 0
	fmt.Sscanf(maxOrdersStr, "%d", &maxOrders)

	symbols := make([]string, 0)
	for _, s := range strings.Split(symbolsStr, ",") {
		if trimmed := strings.ToUpper(strings.TrimSpace(s)); trimmed != "" {
			symbols = append(symbols, trimmed)
		}
	}

	cfgTmp := config.ConfigTmp{
		Platform:         platform,
		Symbols:          symbols,
		OrderValueStr:    orderValueStr,
		BelowPercentStr:  belowPercentStr,
		ProfitPercentStr: profitPercentStr,
		MaxOrders:        maxOrders,
		OrderTTL:         orderTTL,
		ListenAddr:       listenAddr,
		WebhookToken:     webhookToken,
	}

	data, err := yaml.Marshal(cfgTmp)
	if err != nil {
		return fmt.Errorf("failed to generate yaml: %w", err)
	}

	filename := "config.gen.yaml"
	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to save config file: %w", err)
	}

	fmt.Println(lipgloss.NewStyle().Foreground(special).Render(fmt.Sprintf("\n✓ Configuration saved to %s", filename)))
	return nil
}

func validatePositiveDecimal(s string) error {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return fmt.Errorf("must be a valid number")
	}
	if d.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("must be positive")
	}
	return nil
}
