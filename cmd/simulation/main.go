package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"geoassist-be/internal/bootstrap"
	"geoassist-be/internal/config"
	"geoassist-be/internal/pkg/logger"
	"geoassist-be/internal/repository/memory"
	"geoassist-be/internal/service"
	"geoassist-be/pkg/geo"
	"geoassist-be/pkg/mode"
	"geoassist-be/pkg/workflow"

	"github.com/fatih/color"
)

const userID = "simulated-user"

// printSender shows replies the way a chat client would.
type printSender struct{}

func (printSender) Send(_ context.Context, _ string, text string, keyboard []string) error {
	color.Green("BOT: %s", strings.ReplaceAll(text, "\n", "\n     "))
	if len(keyboard) > 0 {
		color.HiBlack("     [%s]", strings.Join(keyboard, "] ["))
	}
	return nil
}

// printPersistence shows what would be stored.
type printPersistence struct{}

func (printPersistence) SaveResult(_ context.Context, _ string, result workflow.Result) {
	payload, _ := json.Marshal(result)
	if len(payload) > 160 {
		payload = append(payload[:160], "..."...)
	}
	color.Magenta("     saved %s %s", result.ResultType(), payload)
}

type step struct {
	label string
	event workflow.Event
}

func main() {
	cfg := config.Load()

	workDir, err := os.MkdirTemp("", "geoassist-simulation")
	if err != nil {
		log.Fatalf("Failed to create work dir: %v", err)
	}
	defer os.RemoveAll(workDir)

	sysLogger := logger.NewNopLogger()
	archives := service.NewArchiveService(workDir, sysLogger)
	activity := service.NewActivityService(nil, memory.NewActivityStatsRepository(), sysLogger, true)
	manager := bootstrap.NewModeManager(cfg, bootstrap.Collaborators{
		Persistence: printPersistence{},
		Compressor:  archives,
		Extractor:   service.NewExtractorService(sysLogger),
		Remover:     archives,
		Observers:   []mode.Observer{activity},
	}, sysLogger)
	bot := service.NewBotService(manager, printSender{}, sysLogger)

	photo := writeFile(workDir, "site.jpg", "not really a jpeg")
	notes := writeFile(workDir, "notes.txt", "survey notes")

	script := []step{
		{"/help", workflow.Command("help", "")},
		{"/location", workflow.Command("location", "")},
		{"-7.257056, 112.648000", workflow.Text("-7.257056, 112.648000")},
		{"(shares location)", workflow.Location(geo.NewPoint(-7.6382862, 112.7372882))},
		{"/profile foot", workflow.Command("profile", "foot")},
		{"/export", workflow.Command("export", "")},
		{"/kml", workflow.Command("kml", "")},
		{"/start river walk", workflow.Command("start", "river walk")},
		{"-7.2575, 112.7521", workflow.Text("-7.2575, 112.7521")},
		{"-7.2650, 112.7430", workflow.Text("-7.2650, 112.7430")},
		{"/end", workflow.Command("end", "")},
		{"/export", workflow.Command("export", "river")},
		{"/geotags", workflow.Command("geotags", "")},
		{"(sends site.jpg)", workflow.File(photo)},
		{"(shares location)", workflow.Location(geo.NewPoint(-7.2459, 112.7378))},
		{"/archive", workflow.Command("archive", "")},
		{"(sends notes.txt)", workflow.File(notes)},
		{"/zip survey", workflow.Command("zip", "survey")},
		{"/mode", workflow.Command("mode", "")},
		{"/exit", workflow.Command("exit", "")},
		{"hello?", workflow.Text("hello?")},
	}

	color.Cyan("=== GeoAssist conversation simulation ===")
	ctx := context.Background()
	for _, s := range script {
		color.Yellow("\nUSER: %s", s.label)
		start := time.Now()
		res, err := bot.HandleEvent(ctx, userID, s.event)
		if err != nil {
			color.Red("Failed: %v", err)
			continue
		}
		status := "ok"
		if res.Rejected {
			status = "rejected"
		}
		color.HiBlack("     mode=%s %s (%v)", res.Mode, status, time.Since(start).Round(time.Microsecond))
	}

	stats, err := activity.Stats(ctx)
	if err != nil {
		color.Red("Failed to read activity: %v", err)
		return
	}
	color.Cyan("\n=== Mode activity ===")
	for _, field := range service.SortedStatFields(stats) {
		fmt.Printf("%-28s %d\n", field, stats[field])
	}
}

func writeFile(dir, name, content string) workflow.FileRef {
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		log.Fatalf("Failed to write %s: %v", name, err)
	}
	return workflow.FileRef{ID: name, Name: name, Path: path, Size: int64(len(content))}
}
