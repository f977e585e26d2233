package setup

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/vadiminshakov/purse/config"
	"gopkg.in/yaml.v3"
)

const configFileName = "config.yaml"

var (
	subtle = lipgloss.AdaptiveColor{Light: "#A8A8A8", Dark: "#4A4A4A"}
	accent = lipgloss.AdaptiveColor{Light: "#1E6FD9", Dark: "#5EA2EF"}
	okGood = lipgloss.AdaptiveColor{Light: "#2E8B57", Dark: "#7CE38B"}

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("230")).
			Background(accent).
			Padding(0, 2).
			Bold(true).
			MarginBottom(1)

	stepStyle = lipgloss.NewStyle().
			Foreground(okGood).
			Bold(true).
			MarginTop(1)
)

// Run launches the terminal configuration wizard and writes config.yaml.
func Run() error {
	var (
		platform        string
		feedURL         string
		symbolsStr      string
		dataDir         string
		listenAddr      string
		refreshInterval string
		confirm         bool
	)

	// defaults
	feedURL = config.DefaultFeedURL
	symbolsStr = "btc,eth,usdt"
	dataDir = config.DefaultDataDir
	listenAddr = config.DefaultListenAddr
	refreshInterval = "1m"

	fmt.Print("\033[H\033[2J") // Clear screen
	fmt.Println(headerStyle.Render("PURSE CONFIG WIZARD"))
	fmt.Println(lipgloss.NewStyle().Foreground(subtle).Render("A local wallet ledger, set up in a minute.\n"))

	fmt.Println(stepStyle.Render("STEP 1: PRICE SOURCE"))
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Where should prices come from?").
				Options(
					huh.NewOption("Snapshot feed (JSON endpoint)", config.PlatformSnapshot),
					huh.NewOption("Binance spot tickers", config.PlatformBinance),
					huh.NewOption("Bybit spot tickers", config.PlatformBybit),
				).
				Value(&platform),
		),
	).Run()
	if err != nil {
		return err
	}

	fmt.Println(stepStyle.Render("STEP 2: SOURCE DETAILS"))
	if platform == config.PlatformSnapshot {
		err = huh.NewForm(
			huh.NewGroup(
				huh.NewInput().
					Title("Feed URL").
					Value(&feedURL),
			),
		).Run()
	} else {
		err = huh.NewForm(
			huh.NewGroup(
				huh.NewInput().
					Title("Symbols to track (comma-separated)").
					Value(&symbolsStr),
			),
		).Run()
	}
	if err != nil {
		return err
	}

	fmt.Println(stepStyle.Render("STEP 3: DAEMON"))
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Data directory").
				Value(&dataDir),
			huh.NewInput().
				Title("Listen address").
				Value(&listenAddr),
			huh.NewInput().
				Title("Price refresh interval").
				Validate(func(v string) error {
					_, perr := time.ParseDuration(v)
					return perr
				}).
				Value(&refreshInterval),
			huh.NewConfirm().
				Title("Write config.yaml?").
				Value(&confirm),
		),
	).Run()
	if err != nil {
		return err
	}

	if !confirm {
		fmt.Println(lipgloss.NewStyle().Foreground(subtle).Render("Aborted, nothing written."))
		return nil
	}

	interval, err := time.ParseDuration(refreshInterval)
	if err != nil {
		return err
	}

	file := config.File{
		Platform:        platform,
		DataDir:         dataDir,
		ListenAddr:      listenAddr,
		RefreshInterval: interval,
	}
	if platform == config.PlatformSnapshot {
		file.FeedURL = feedURL
	} else {
		for _, s := range strings.Split(symbolsStr, ",") {
			if s = strings.TrimSpace(strings.ToLower(s)); s != "" {
				file.Symbols = append(file.Symbols, s)
			}
		}
	}

	payload, err := yaml.Marshal(file)
	if err != nil {
		return err
	}

	if err := os.WriteFile(configFileName, payload, 0o644); err != nil {
		return err
	}

	fmt.Println(stepStyle.Render("DONE"))
	fmt.Printf("Wrote %s. Start the daemon with: purse --config %s\n", configFileName, configFileName)

	return nil
}
