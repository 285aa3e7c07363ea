package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/tatianab/gtfoklahoma/internal/app"
	"github.com/tatianab/gtfoklahoma/internal/autopilot"
	"github.com/tatianab/gtfoklahoma/internal/config"
	"github.com/tatianab/gtfoklahoma/internal/logging"
	"github.com/tatianab/gtfoklahoma/internal/random"
)

func main() {
	fs := flag.NewFlagSet("simulate", flag.ExitOnError)
	runs := fs.Int("runs", 1, "number of journeys to play")
	useGemini := fs.Bool("gemini", false, "let Gemini choose (needs GEMINI_API_KEY)")
	save := fs.Bool("save", false, "save finished sessions")

	cfg, err := config.Parse(fs, os.Args[1:])
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	// Headless runs go as fast as the chooser allows.
	cfg.TickDelay = 0

	logger, closer, err := logging.Open(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		log.Fatalf("Failed to open log: %v", err)
	}
	defer closer.Close()

	ctx := context.Background()
	rt, err := app.Open(cfg, logger)
	if err != nil {
		log.Fatalf("Failed to open runtime: %v", err)
	}
	defer rt.Close()

	_, seed, err := random.FromConfig(cfg.Seed)
	if err != nil {
		log.Fatalf("Failed to seed: %v", err)
	}
	var chooser autopilot.Chooser = autopilot.NewRandomChooser(random.New(seed))
	if *useGemini {
		gc, err := autopilot.NewGeminiChooser(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, chooser, logger)
		if err != nil {
			log.Fatalf("Failed to create player client: %v", err)
		}
		defer gc.Close()
		chooser = gc
	}

	endings := map[string]int{}
	for run := 1; run <= *runs; run++ {
		fmt.Printf("--- Journey %d ---\n", run)
		session, err := rt.Session("", fmt.Sprintf("simulation %d", run))
		if err != nil {
			log.Fatalf("Failed to create session: %v", err)
		}
		if cfg.Seed != 0 {
			// Same config seed, different journeys.
			session.Seed = cfg.Seed + uint64(run-1)
		}
		eng, lib, err := rt.Launch(session)
		if err != nil {
			log.Fatalf("Failed to launch: %v", err)
		}
		pilot := autopilot.New(ctx, chooser, logger)
		eng.RegisterObserver(pilot)

		start := time.Now()
		if err := eng.Start(ctx); err != nil {
			log.Fatalf("Failed to start: %v", err)
		}
		<-eng.Done()
		pilot.Wait()
		if err := eng.Err(); err != nil {
			fmt.Printf("Error running journey: %v\n", err)
			continue
		}

		for _, h := range session.History.Entries {
			fmt.Printf("Mile %3d %02d:00  %-28s -> %s\n", h.Mile, h.Hour, h.Title, h.Action)
			if h.Outcome != "" {
				fmt.Printf("                 %s\n", h.Outcome)
			}
		}
		st := session.State.Stats
		ending, _ := pilot.Ending()
		fmt.Printf("Ending: %s\n", ending.DisplayName)
		fmt.Printf("Stats: Health=%d, Money=$%d, Mile=%d, Inventory=%d items, seed=%d, %s\n\n",
			st.Health, st.MoneyRemaining, session.State.Mile, len(session.State.Items(lib.Items)), session.Seed, time.Since(start).Round(time.Millisecond))
		endings[ending.DisplayName]++

		if *save {
			if err := rt.Store.Save(session); err != nil {
				fmt.Printf("Error saving session: %v\n", err)
			}
		}
	}

	fmt.Println("--- Endings ---")
	for name, n := range endings {
		fmt.Printf("%-30s %d\n", name, n)
	}
}
